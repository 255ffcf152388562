// Package httpserver builds the HTTP server with project defaults.
package httpserver

import (
	"net/http"
	"time"

	"custodia/internal/platform/config"
)

// New builds an HTTP server from the configured timeouts.
func New(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}
