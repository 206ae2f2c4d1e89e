// Package v1 provides the HTTP handlers of the run ledger API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/XavTo/dexter/internal/service"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the run routes on g, which is expected to sit
// behind the access gate.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/runs", h.CreateRun)
	g.GET("/runs", h.ListRuns)
	g.GET("/runs/:run_id", h.GetRun)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}
