package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/miabis/miabis/internal/config"
	"github.com/miabis/miabis/internal/platform/db"
	"github.com/miabis/miabis/internal/platform/middleware"
	"github.com/miabis/miabis/internal/platform/sandbox"
)

var version = "0.1.0"

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve bundle generation over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg, logger)
		},
	}
}

// newServer wires the HTTP surface. A nil history database leaves
// /health/db unregistered.
func newServer(cfg *config.Config, logger zerolog.Logger, history *db.DB) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit("64K"))
	e.Use(middleware.RequestTimeout(60 * time.Second))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	if history != nil {
		e.GET("/health/db", db.HealthHandler(history))
	}

	sandbox.NewBundleHandler(logger, cfg.MemberLimit, cfg.MaxGenerateCount).RegisterRoutes(e.Group(""))
	return e
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	var history *db.DB
	if cfg.HistoryEnabled() {
		conn, err := db.Open(context.Background(), cfg.HistoryDSN)
		if err != nil {
			logger.Warn().Err(err).Msg("history database unavailable, /health/db disabled")
		} else {
			defer conn.Close()
			history = conn
		}
	}

	e := newServer(cfg, logger, history)

	// Graceful shutdown
	errc := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
