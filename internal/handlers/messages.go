package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nckexchange/exchange/internal/messages"
)

// MessagesHandler serves the JWT-guarded admin review API.
type MessagesHandler struct {
	service *messages.Service
	logger  *slog.Logger
}

// ListResponse wraps the review listing.
type ListResponse struct {
	Items []messages.ContactMessage `json:"items"`
}

// ReplyRequest is the body for POST /admin/messages/:id/reply.
type ReplyRequest struct {
	Answer string `json:"answer" form:"answer"`
}

// NewMessagesHandler creates the admin messages handler.
func NewMessagesHandler(log *slog.Logger, service *messages.Service) *MessagesHandler {
	return &MessagesHandler{
		service: service,
		logger:  log.With(slog.String("handler", "messages")),
	}
}

// Register mounts the admin message routes on the Echo instance.
func (h *MessagesHandler) Register(e *echo.Echo) {
	group := e.Group("/admin/messages")
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	group.POST("/:id/reply", h.Reply)
}

// List returns messages for the review screen, unanswered first, then
// newest first. Query params: limit (int), isAnswered (bool).
func (h *MessagesHandler) List(c echo.Context) error {
	opts := messages.ListOptions{Limit: messages.DefaultListLimit}

	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		opts.Limit = limit
	}
	if raw := c.QueryParam("isAnswered"); raw != "" {
		answered, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "isAnswered must be a boolean")
		}
		opts.IsAnswered = &answered
	}

	items, err := h.service.List(c.Request().Context(), opts)
	if err != nil {
		h.logger.Error("list messages failed", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "an error occurred"})
	}
	return c.JSON(http.StatusOK, ListResponse{Items: items})
}

// Get returns one message by id.
func (h *MessagesHandler) Get(c echo.Context) error {
	id, err := h.messageID(c)
	if err != nil {
		return err
	}
	msg, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, messages.ErrMessageNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "message not found")
		}
		h.logger.Error("get message failed", slog.Int64("id", id), slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "an error occurred"})
	}
	return c.JSON(http.StatusOK, msg)
}

// Reply records an answer and emails it to the original sender.
func (h *MessagesHandler) Reply(c echo.Context) error {
	id, err := h.messageID(c)
	if err != nil {
		return err
	}
	var req ReplyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	msg, err := h.service.Reply(c.Request().Context(), id, req.Answer)
	if err != nil {
		if verr, ok := messages.AsValidationError(err); ok {
			return c.JSON(http.StatusBadRequest, SubmitResponse{
				Success: false,
				Message: "Please correct the errors and try again.",
				Errors:  verr.Fields,
			})
		}
		if errors.Is(err, messages.ErrMessageNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "message not found")
		}
		if errors.Is(err, messages.ErrAlreadyAnswered) {
			return echo.NewHTTPError(http.StatusConflict, "message already answered")
		}
		h.logger.Error("reply failed", slog.Int64("id", id), slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "sending the reply failed"})
	}
	return c.JSON(http.StatusOK, msg)
}

func (h *MessagesHandler) messageID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id must be a positive integer")
	}
	return id, nil
}
