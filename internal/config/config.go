package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// TLSConfig holds TLS configuration for the inbound listener
type TLSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// BackendConfig holds the object-storage backend configuration
type BackendConfig struct {
	// Endpoint is the base URL of the account/container/object service,
	// e.g. http://127.0.0.1:8081. The gateway appends /v1/<account>/... paths.
	Endpoint string `mapstructure:"endpoint"`

	// RequestTimeout bounds a single backend round trip in seconds.
	// 0 means no timeout beyond the inbound connection lifetime.
	RequestTimeout int `mapstructure:"request_timeout"`
}

// MonitoringConfig holds the metrics listener configuration
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BindAddress string `mapstructure:"bind_address"`
	MetricsPath string `mapstructure:"metrics_path"`
}

// Config holds the application configuration
type Config struct {
	// Server configuration
	BindAddress     string    `mapstructure:"bind_address"`
	LogLevel        string    `mapstructure:"log_level"`
	LogFormat       string    `mapstructure:"log_format"` // "text" (default) or "json"
	LogRoute        string    `mapstructure:"log_route"`  // logger name for the gateway pipeline
	ShutdownTimeout int       `mapstructure:"shutdown_timeout"`
	TLS             TLSConfig `mapstructure:"tls"`

	// Location is the value answered for GET ?location. "US" means the
	// LocationConstraint body is empty. Normalized to upper case at load.
	Location string `mapstructure:"location"`

	// AuthSentinel is the backend group name that stands in for the
	// AuthenticatedUsers S3 grantee when translating ACLs.
	AuthSentinel string `mapstructure:"auth_sentinel"`

	Backend    BackendConfig    `mapstructure:"backend"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// InitConfig initializes the configuration system
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".swift-s3-gateway")
	}

	viper.SetEnvPrefix("SWIFT_S3_GATEWAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// Load loads the configuration from viper
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Location = strings.ToUpper(cfg.Location)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("bind_address", "0.0.0.0:8080")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("log_route", "swift-s3-gateway")
	viper.SetDefault("shutdown_timeout", 30)

	viper.SetDefault("location", "US")
	viper.SetDefault("auth_sentinel", ".authenticated")

	viper.SetDefault("backend.endpoint", "http://127.0.0.1:8081")
	viper.SetDefault("backend.request_timeout", 0)

	viper.SetDefault("tls.enabled", false)

	viper.SetDefault("monitoring.enabled", false)
	viper.SetDefault("monitoring.bind_address", ":9090")
	viper.SetDefault("monitoring.metrics_path", "/metrics")
}

// validate checks required fields
func validate(cfg *Config) error {
	if cfg.BindAddress == "" {
		return fmt.Errorf("bind_address is required")
	}

	if cfg.Backend.Endpoint == "" {
		return fmt.Errorf("backend.endpoint is required")
	}
	u, err := url.Parse(cfg.Backend.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.endpoint must be a valid URL: %q", cfg.Backend.Endpoint)
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return fmt.Errorf("tls.cert_file and tls.key_file are required when TLS is enabled")
		}
	}

	if cfg.Backend.RequestTimeout < 0 {
		return fmt.Errorf("backend.request_timeout must not be negative")
	}

	return nil
}
