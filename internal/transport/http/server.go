// Package http provides the HTTP server implementation for the run ledger.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/XavTo/dexter/internal/config"
	"github.com/XavTo/dexter/internal/gate"
	"github.com/XavTo/dexter/internal/logging"
	"github.com/XavTo/dexter/internal/service"
	v1 "github.com/XavTo/dexter/internal/transport/http/v1"
	"github.com/XavTo/dexter/internal/transport/ws"
)

// NewServer creates and configures the HTTP server. Everything under /api
// sits behind the access gate; /health does not.
func NewServer(svc *service.Service, cfg *config.Config, logger *zap.Logger) *echo.Echo {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(logging.RequestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	// Handlers
	v1Handler := v1.NewHandler(svc)
	watchServer := ws.NewServer(svc, cfg.WatchInterval, logger)

	// Register Routes
	e.GET("/health", v1Handler.Health)

	api := e.Group("/api", gate.New(cfg.AuthSecret, cfg.AuthUsername).Middleware())
	v1Handler.RegisterRoutes(api)
	watchServer.RegisterRoutes(api)

	return e
}
