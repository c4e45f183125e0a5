package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/minjae-ko/ticket-rush/internal/model"
	"github.com/minjae-ko/ticket-rush/internal/ticketing"
)

// TicketingHandler exposes the reservation lifecycle over HTTP.
type TicketingHandler struct {
	Reservations *ticketing.Reservations
}

// NewTicketingHandler constructs the handler.
func NewTicketingHandler(r *ticketing.Reservations) *TicketingHandler {
	if r == nil {
		panic("nil reservations service passed to NewTicketingHandler")
	}
	return &TicketingHandler{Reservations: r}
}

func reservationBody(res *model.Reservation) echo.Map {
	return echo.Map{
		"id":         res.ID,
		"user_id":    res.UserID,
		"round":      res.Round,
		"state":      res.State,
		"created_at": res.CreatedAt,
		"updated_at": res.UpdatedAt,
	}
}

// Create handles POST /v1/reservations: a PENDING reservation in the
// current round, plus the seat ids already held so the client can
// paint the seat map immediately.
func (h *TicketingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, held, err := h.Reservations.Create(c.Request().Context(), userID)
	if err != nil {
		return writeDomainError(c, err)
	}
	if held == nil {
		held = []uint64{}
	}
	body := reservationBody(res)
	body["held_seats"] = held
	return c.JSON(http.StatusCreated, body)
}

// Get handles GET /v1/reservations/:id.
func (h *TicketingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Reservations.Get(c.Request().Context(), userID, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, reservationBody(res))
}

// StartPaying handles POST /v1/reservations/:id/payment-session.  The
// reservation moves to PAYING, its holds are refreshed for a full
// payment window and the session key is returned.
func (h *TicketingHandler) StartPaying(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	key, err := h.Reservations.StartPaying(c.Request().Context(), userID, id)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"session_key": key})
}

type completePaymentRequest struct {
	QueueToken string `json:"queue_token"`
}

// CompletePaying handles POST /v1/reservations/:id/payment.  On
// success the reservation is CONFIRMED and the caller's queue
// admission is consumed.
func (h *TicketingHandler) CompletePaying(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var req completePaymentRequest
	if err := c.Bind(&req); err != nil || req.QueueToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "queue_token is required"})
	}
	res, err := h.Reservations.CompletePaying(c.Request().Context(), userID, id, req.QueueToken)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, reservationBody(res))
}

// Cancel handles POST /v1/reservations/:id/cancel and gives back every
// held seat.
func (h *TicketingHandler) Cancel(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if err := h.Reservations.Cancel(c.Request().Context(), userID, id); err != nil {
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Rank handles GET /v1/reservations/:id/rank: the completion ranking
// of the reservation's round.
func (h *TicketingHandler) Rank(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	ranking, err := h.Reservations.Rank(c.Request().Context(), id)
	if err != nil {
		return writeDomainError(c, err)
	}
	entries := make([]echo.Map, 0, len(ranking))
	for _, e := range ranking {
		entries = append(entries, echo.Map{
			"rank":         e.Rank,
			"name":         e.Name,
			"completed_at": e.CompletedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"ranking": entries})
}
