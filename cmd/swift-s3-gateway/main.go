package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gridstore/swift-s3-gateway/internal/config"
	"github.com/gridstore/swift-s3-gateway/internal/gateway"
	"github.com/gridstore/swift-s3-gateway/internal/monitoring"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Build information injected at build time
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "swift-s3-gateway",
		Short: "S3-compatible gateway for account/container/object storage",
		Long: `swift-s3-gateway terminates S3 REST traffic and translates it to the
account/container/object protocol of the storage backend behind it.

Signed requests (AWS signature v2, header or presigned query form) are
canonicalized into an auth token the backend validates; unsigned requests
are proxied to the backend unchanged, so S3 and native traffic share one
endpoint. Bucket and object operations, ACL translation in both
directions, versioned listings and location/logging views are supported.

All configuration is done through YAML configuration files. Use --config
to specify a configuration file, or the gateway will look for
configuration in standard locations.`,
		Run: runGateway,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to configuration file (YAML format)")
}

func initConfig() {
	config.InitConfig(cfgFile)
}

func runGateway(cmd *cobra.Command, args []string) {
	logrus.WithFields(logrus.Fields{
		"version":   version,
		"commit":    commit,
		"buildTime": buildTime,
	}).Info("swift-s3-gateway build information")

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid log level")
	}
	logrus.SetLevel(level)
	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	monitoring.SetServerInfo(version, commit, buildTime)

	gatewayServer, err := gateway.NewServer(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create gateway server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if cfg.Monitoring.Enabled {
		monitoringServer := monitoring.NewServer(&monitoring.Config{
			BindAddress: cfg.Monitoring.BindAddress,
			MetricsPath: cfg.Monitoring.MetricsPath,
		})
		go func() {
			if err := monitoringServer.Start(ctx); err != nil {
				logrus.WithError(err).Error("Monitoring server failed")
			}
		}()
	}

	go func() {
		logrus.WithField("address", cfg.BindAddress).Info("Starting swift-s3-gateway server")
		if err := gatewayServer.Start(ctx); err != nil {
			logrus.WithError(err).Fatal("Gateway server failed")
		}
	}()

	<-sigChan
	logrus.Info("Received shutdown signal, gracefully shutting down...")

	cancel()

	logrus.Info("Server stopped")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
