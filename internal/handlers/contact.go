package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nckexchange/exchange/internal/messages"
)

// ContactHandler serves the public contact form endpoint.
type ContactHandler struct {
	service *messages.Service
	logger  *slog.Logger
}

// NewContactHandler creates the public contact form handler.
func NewContactHandler(log *slog.Logger, service *messages.Service) *ContactHandler {
	return &ContactHandler{
		service: service,
		logger:  log.With(slog.String("handler", "contact")),
	}
}

// Register mounts POST /api/contact/submit on the Echo instance.
func (h *ContactHandler) Register(e *echo.Echo) {
	e.POST("/api/contact/submit", h.Submit)
}

// Submit accepts a contact form submission (form-encoded or JSON).
// Rejections report every failing field; transient failures return a
// generic message with no internal detail.
func (h *ContactHandler) Submit(c echo.Context) error {
	if h.service == nil {
		return c.JSON(http.StatusInternalServerError, SubmitResponse{
			Success: false,
			Message: "Something went wrong. Please try again later.",
		})
	}

	var req messages.SubmitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, SubmitResponse{
			Success: false,
			Message: "Invalid request.",
		})
	}

	msg, err := h.service.Submit(c.Request().Context(), req)
	if err != nil {
		if verr, ok := messages.AsValidationError(err); ok {
			return c.JSON(http.StatusBadRequest, SubmitResponse{
				Success: false,
				Message: "Please correct the errors and try again.",
				Errors:  verr.Fields,
			})
		}
		h.logger.Error("contact submission failed", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, SubmitResponse{
			Success: false,
			Message: "Something went wrong. Please try again later.",
		})
	}

	h.logger.Info("contact form submitted", slog.Int64("id", msg.ID))
	return c.JSON(http.StatusOK, SubmitResponse{
		Success: true,
		Message: "Thank you for your message. We will get back to you soon.",
	})
}
