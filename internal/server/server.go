// Package server assembles the HTTP handlers and runs the server.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/matthewbaird/ioncon/internal/app"
	"github.com/matthewbaird/ioncon/internal/handler"
	"github.com/matthewbaird/ioncon/internal/session"
)

// Config holds server configuration.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	CleanupInterval time.Duration
	Sessions        *session.Manager[*app.Controller]
	Events          handler.Subscriber
	Logger          *zap.Logger
}

// Run serves the screen API until ctx is cancelled. Expired sessions are
// dropped every CleanupInterval.
func Run(ctx context.Context, cfg Config) error {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}

	h := handler.NewScreenHandler(cfg.Sessions, cfg.Events, log)
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      h.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					log.Warn("shutdown", zap.Error(err))
				}
				return
			case <-ticker.C:
				if n := cfg.Sessions.Cleanup(); n > 0 {
					log.Info("dropped expired sessions", zap.Int("count", n))
				}
			}
		}
	}()

	log.Info("starting server", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
