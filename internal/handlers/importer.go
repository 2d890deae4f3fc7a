package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nckexchange/exchange/internal/schedule"
)

// ImporterHandler lets an operator trigger a mailbox import outside the
// schedule.
type ImporterHandler struct {
	runner schedule.Runner
	logger *slog.Logger
}

// NewImporterHandler creates the manual import trigger handler.
func NewImporterHandler(log *slog.Logger, runner schedule.Runner) *ImporterHandler {
	return &ImporterHandler{
		runner: runner,
		logger: log.With(slog.String("handler", "importer")),
	}
}

// Register mounts POST /admin/importer/run on the Echo instance.
func (h *ImporterHandler) Register(e *echo.Echo) {
	e.POST("/admin/importer/run", h.Run)
}

// Run performs one import pass and reports the outcome. An import that
// is already running skips silently inside the runner.
func (h *ImporterHandler) Run(c echo.Context) error {
	if h.runner == nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "importer not configured")
	}
	if err := h.runner.Run(c.Request().Context()); err != nil {
		h.logger.Error("manual import failed", slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadGateway, "mailbox import failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
