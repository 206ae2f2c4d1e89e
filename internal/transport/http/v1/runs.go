package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/XavTo/dexter/internal/domain"
)

// CreateRunRequest is the request to start a run.
type CreateRunRequest struct {
	Query string `json:"query"`
}

// CreateRun starts a new run.
// POST /api/runs
func (h *Handler) CreateRun(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateRunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	resp, err := h.service.LaunchRun(ctx, req.Query)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// ListRuns lists all runs, most recent first.
// GET /api/runs
func (h *Handler) ListRuns(c echo.Context) error {
	ctx := c.Request().Context()

	runs, err := h.service.ListRuns(ctx)
	if err != nil {
		return errorResponse(c, err)
	}
	if runs == nil {
		runs = []domain.RunState{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"runs": runs,
	})
}

// GetRun returns a run's state and the tail of its trace.
// GET /api/runs/:run_id
func (h *Handler) GetRun(c echo.Context) error {
	ctx := c.Request().Context()

	detail, err := h.service.GetRunDetail(ctx, c.Param("run_id"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, detail)
}

func errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidQuery), errors.Is(err, domain.ErrQueryRejected):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRunNotFound):
		status = http.StatusNotFound
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
