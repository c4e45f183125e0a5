package handler // HTTP handlers for the waiting room and the sale

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/minjae-ko/ticket-rush/internal/repository"
	"github.com/minjae-ko/ticket-rush/internal/ticketing"
)

// getUserID extracts the authenticated user's id injected by the JWT
// middleware.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := c.Get("user_id").(uint64)
	if !ok || id == 0 {
		return 0, errors.New("missing user id in context")
	}
	return id, nil
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// writeDomainError maps domain and repository errors onto HTTP
// responses.  Anything unmapped is a 500 with a generic body; the
// detail goes to the log, not to the client.
func writeDomainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrQueueNotFound),
		errors.Is(err, repository.ErrReservationNotFound),
		errors.Is(err, repository.ErrSeatNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, ticketing.ErrNotOwner):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not the owner of this reservation"})
	case repository.IsSeatAlreadyHeld(err):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, ticketing.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": "operation does not apply to the current state"})
	case errors.Is(err, repository.ErrLockTimeout):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "server busy, retry shortly"})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
