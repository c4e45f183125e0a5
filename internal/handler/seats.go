package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/minjae-ko/ticket-rush/internal/ticketing"
)

// SeatsHandler exposes seat holds over HTTP.
type SeatsHandler struct {
	Allocator *ticketing.Allocator
}

// NewSeatsHandler constructs the handler.
func NewSeatsHandler(a *ticketing.Allocator) *SeatsHandler {
	if a == nil {
		panic("nil allocator passed to NewSeatsHandler")
	}
	return &SeatsHandler{Allocator: a}
}

type seatRequest struct {
	ReservationID uint64 `json:"reservation_id"`
}

// Hold handles POST /v1/seats/:seatId/hold.  At most one hold per
// seat and round can exist; a losing contender gets a 409.
func (h *SeatsHandler) Hold(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	seatID, err := pathID(c, "seatId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	var req seatRequest
	if err := c.Bind(&req); err != nil || req.ReservationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_id is required"})
	}
	hold, err := h.Allocator.Hold(c.Request().Context(), userID, req.ReservationID, seatID)
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"seat_id":    hold.SeatID,
		"round":      hold.Round,
		"expires_at": hold.ExpiresAt,
	})
}

// Release handles POST /v1/seats/:seatId/release.  Releasing a seat
// the reservation no longer holds is a no-op, so retries are safe.
func (h *SeatsHandler) Release(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	seatID, err := pathID(c, "seatId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	var req seatRequest
	if err := c.Bind(&req); err != nil || req.ReservationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reservation_id is required"})
	}
	if err := h.Allocator.Release(c.Request().Context(), userID, req.ReservationID, seatID); err != nil {
		return writeDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
