// Package api provides the HTTP JSON API server.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/bluefin-ops/healthdeck/internal/cache"
	"github.com/bluefin-ops/healthdeck/internal/models"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address        string        // listen address (default :8080)
	RequestTimeout time.Duration // per-request deadline for source-backed calls
	RecentLimit    int           // rows in the recent-activity view
	Verbose        bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 60 * time.Second
	}
	if c.RecentLimit == 0 {
		c.RecentLimit = 5
	}
}

// Server is the HTTP API server. It is the presentation-boundary caller
// of the loader and view engine: handlers pull tables through the
// loader and compute views per request.
type Server struct {
	config   *Config
	loader   *cache.Loader
	severity *models.SeverityLevels
	server   *http.Server
}

// New creates a new API server.
func New(cfg *Config, loader *cache.Loader, severity *models.SeverityLevels) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	if severity == nil {
		severity = models.DefaultSeverityLevels()
	}

	cfg.SetDefaults()

	s := &Server{
		config:   cfg,
		loader:   loader,
		severity: severity,
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("HTTP API listening on %s", s.config.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down HTTP API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}
