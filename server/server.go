// Package server exposes the bot's operational HTTP surface: healthcheck,
// prometheus metrics, and a JSON snapshot of the indexed totals.
package server

import (
	"context"
	"log/slog"
	"net/http"
	_ "net/http/pprof"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SlagHoedje/sibas/store"
)

type Server struct {
	store  *store.Store
	echo   *echo.Echo
	logger *slog.Logger
}

func New(st *store.Store) *Server {
	s := &Server{
		store:  st,
		echo:   echo.New(),
		logger: slog.Default().With("component", "server"),
	}

	s.echo.HideBanner = true
	s.echo.GET("/health", s.handleHealthcheck)
	s.echo.GET("/stats", s.handleStats)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.Any("/debug/pprof/*", echo.WrapHandler(http.DefaultServeMux))

	return s
}

func (s *Server) Start(address string) error {
	s.logger.Info("starting status server", "address", address)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealthcheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.store.Stats(c.Request().Context())
	if err != nil {
		s.logger.Error("failed to load stats", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	return c.JSON(http.StatusOK, map[string]int64{
		"channels":  stats.Channels,
		"messages":  stats.Messages,
		"reactions": stats.Reactions,
	})
}
