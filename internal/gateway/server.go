// Package gateway terminates inbound S3 REST traffic and translates it to
// the account/container/object protocol of the backend. Unsigned requests
// are proxied to the backend unchanged.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/gorilla/mux"
	"github.com/gridstore/swift-s3-gateway/internal/backend"
	"github.com/gridstore/swift-s3-gateway/internal/config"
	"github.com/gridstore/swift-s3-gateway/internal/monitoring"
	"github.com/gridstore/swift-s3-gateway/internal/s3api"
	"github.com/sirupsen/logrus"
)

// Server is the S3 gateway server.
type Server struct {
	httpServer  *http.Server
	backend     *backend.Client
	passthrough *httputil.ReverseProxy
	config      *config.Config
	logger      *logrus.Entry
	errors      *s3api.ErrorWriter
	xml         *s3api.XMLWriter
}

// NewServer creates a new gateway server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logrus.WithField("component", cfg.LogRoute)

	backendClient, err := backend.NewClient(&backend.Config{
		Endpoint:       cfg.Backend.Endpoint,
		RequestTimeout: time.Duration(cfg.Backend.RequestTimeout) * time.Second,
	}, logger.WithField("component", "backend-client"))
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	server := &Server{
		backend:     backendClient,
		passthrough: httputil.NewSingleHostReverseProxy(backendClient.Endpoint()),
		config:      cfg,
		logger:      logger,
		errors:      s3api.NewErrorWriter(logger),
		xml:         s3api.NewXMLWriter(logger),
	}

	router := mux.NewRouter()
	server.setupRoutes(router)

	server.httpServer = &http.Server{
		Addr:        cfg.BindAddress,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return server, nil
}

// setupRoutes configures the HTTP routes. Every path goes through the one
// entry handler; dispatch happens on the path shape, not on mux patterns.
func (s *Server) setupRoutes(router *mux.Router) {
	router.Use(s.trackingMiddleware)
	router.Use(s.loggingMiddleware)
	router.Use(monitoring.HTTPMiddleware)

	router.PathPrefix("/").HandlerFunc(s.handleRequest)
}

// Handler returns the configured request handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the gateway server and blocks until ctx is canceled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	serverErrChan := make(chan error, 1)
	go func() {
		if s.config.TLS.Enabled {
			s.logger.WithFields(logrus.Fields{
				"address":   s.config.BindAddress,
				"cert_file": s.config.TLS.CertFile,
				"key_file":  s.config.TLS.KeyFile,
			}).Info("Starting HTTPS server")

			if err := s.httpServer.ListenAndServeTLS(s.config.TLS.CertFile, s.config.TLS.KeyFile); err != nil && err != http.ErrServerClosed {
				serverErrChan <- fmt.Errorf("HTTPS server failed: %w", err)
			}
		} else {
			s.logger.WithField("address", s.config.BindAddress).Info("Starting HTTP server")
			if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErrChan <- fmt.Errorf("HTTP server failed: %w", err)
			}
		}
	}()

	select {
	case err := <-serverErrChan:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(s.config.ShutdownTimeout)*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.WithError(err).Error("Failed to gracefully shutdown server")
			return err
		}

		s.logger.Info("Server stopped")
		return nil
	}
}

// writeError emits an S3 error document and counts it.
func (s *Server) writeError(w http.ResponseWriter, code s3api.ErrorCode) {
	monitoring.RecordError(string(code))
	s.errors.WriteError(w, code)
}

// backendFailure handles transport-level backend errors. The failure is
// logged and the connection is answered with a bare 500; no error document
// leaks transport details to the wire.
func (s *Server) backendFailure(w http.ResponseWriter, err error) {
	s.logger.WithError(err).Error("Backend request failed")
	w.WriteHeader(http.StatusInternalServerError)
}
