package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/minjae-ko/ticket-rush/internal/gate"
	"github.com/minjae-ko/ticket-rush/internal/model"
)

// QueueHandler exposes the waiting room over HTTP.  The JWT middleware
// has already authenticated the caller; entries are addressed by the
// opaque token handed out on entry, so status checks and exits need no
// further ownership check.
type QueueHandler struct {
	Gate gate.Gate
}

// NewQueueHandler constructs the handler.
func NewQueueHandler(g gate.Gate) *QueueHandler {
	if g == nil {
		panic("nil gate passed to NewQueueHandler")
	}
	return &QueueHandler{Gate: g}
}

// Enter handles POST /v1/queue.  The caller is either admitted
// immediately or queued at the back of the line; both outcomes are a
// 201 with the entry's token.
func (h *QueueHandler) Enter(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Gate.Enter(c.Request().Context(), userID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"token":      res.Token,
		"status":     res.Status,
		"position":   res.Position,
		"entered_at": res.EnteredAt,
	})
}

// Status handles GET /v1/queue/:token.  WAITING entries report their
// live position; ACTIVE entries report when they were admitted.
func (h *QueueHandler) Status(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing token"})
	}
	res, err := h.Gate.Status(c.Request().Context(), token)
	if err != nil {
		return writeDomainError(c, err)
	}
	body := echo.Map{
		"token":      res.Token,
		"status":     res.Status,
		"entered_at": res.EnteredAt,
	}
	if res.Status == model.QueueWaiting {
		body["position"] = res.Position
	}
	if res.ActivatedAt != nil {
		body["activated_at"] = res.ActivatedAt
	}
	return c.JSON(http.StatusOK, body)
}

// Exit handles DELETE /v1/queue/:token.  Leaving from the ACTIVE set
// frees a slot for the next person in line.
func (h *QueueHandler) Exit(c echo.Context) error {
	token := c.Param("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing token"})
	}
	if err := h.Gate.Exit(c.Request().Context(), token); err != nil {
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
