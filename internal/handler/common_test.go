package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minjae-ko/ticket-rush/internal/repository"
	"github.com/minjae-ko/ticket-rush/internal/ticketing"
)

func TestWriteDomainErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"user not found", repository.ErrUserNotFound, http.StatusNotFound},
		{"queue entry not found", repository.ErrQueueNotFound, http.StatusNotFound},
		{"reservation not found", repository.ErrReservationNotFound, http.StatusNotFound},
		{"seat not found", repository.ErrSeatNotFound, http.StatusNotFound},
		{"not owner", ticketing.ErrNotOwner, http.StatusForbidden},
		{"seat already held", &repository.SeatAlreadyHeldError{SeatID: 7, Round: 3}, http.StatusConflict},
		{"invalid state", ticketing.ErrInvalidState, http.StatusConflict},
		{"lock timeout", repository.ErrLockTimeout, http.StatusServiceUnavailable},
		{"wrapped lock timeout", fmt.Errorf("begin tx: %w", repository.ErrLockTimeout), http.StatusServiceUnavailable},
		{"anything else", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			require.NoError(t, writeDomainError(c, tc.err))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}
