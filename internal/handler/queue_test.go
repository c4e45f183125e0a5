package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minjae-ko/ticket-rush/internal/gate"
	"github.com/minjae-ko/ticket-rush/internal/model"
	"github.com/minjae-ko/ticket-rush/internal/repository"
)

// stubGate returns scripted results.
type stubGate struct {
	enterResult  gate.EnterResult
	enterErr     error
	statusResult gate.StatusResult
	statusErr    error
	exitErr      error
	exited       []string
}

func (s *stubGate) Enter(context.Context, uint64) (gate.EnterResult, error) {
	return s.enterResult, s.enterErr
}

func (s *stubGate) Status(context.Context, string) (gate.StatusResult, error) {
	return s.statusResult, s.statusErr
}

func (s *stubGate) Exit(_ context.Context, token string) error {
	s.exited = append(s.exited, token)
	return s.exitErr
}

func (s *stubGate) Expire(context.Context, string) error { return nil }
func (s *stubGate) Promote(context.Context) error        { return nil }

func queueContext(method, path string, userID uint64) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set("user_id", userID)
	}
	return c, rec
}

func TestEnterReturnsCreatedEntry(t *testing.T) {
	now := time.Date(2025, 12, 9, 10, 0, 10, 0, time.UTC)
	g := &stubGate{enterResult: gate.EnterResult{
		Token: "tok-1", Status: model.QueueWaiting, Position: 3, EnteredAt: now,
	}}
	h := NewQueueHandler(g)

	c, rec := queueContext(http.MethodPost, "/v1/queue", 1)
	require.NoError(t, h.Enter(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "tok-1", body["token"])
	assert.Equal(t, "WAITING", body["status"])
	assert.Equal(t, float64(3), body["position"])
}

func TestEnterWithoutIdentityIsUnauthorized(t *testing.T) {
	h := NewQueueHandler(&stubGate{})
	c, rec := queueContext(http.MethodPost, "/v1/queue", 0)
	require.NoError(t, h.Enter(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEnterMapsLockTimeoutToServiceUnavailable(t *testing.T) {
	h := NewQueueHandler(&stubGate{enterErr: repository.ErrLockTimeout})
	c, rec := queueContext(http.MethodPost, "/v1/queue", 1)
	require.NoError(t, h.Enter(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusOfUnknownTokenIsNotFound(t *testing.T) {
	h := NewQueueHandler(&stubGate{statusErr: repository.ErrQueueNotFound})
	c, rec := queueContext(http.MethodGet, "/v1/queue/nope", 1)
	c.SetParamNames("token")
	c.SetParamValues("nope")
	require.NoError(t, h.Status(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusOmitsPositionForActiveEntries(t *testing.T) {
	activated := time.Date(2025, 12, 9, 10, 0, 20, 0, time.UTC)
	g := &stubGate{statusResult: gate.StatusResult{
		Token: "tok-1", Status: model.QueueActive, ActivatedAt: &activated,
	}}
	h := NewQueueHandler(g)

	c, rec := queueContext(http.MethodGet, "/v1/queue/tok-1", 1)
	c.SetParamNames("token")
	c.SetParamValues("tok-1")
	require.NoError(t, h.Status(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body, "position")
	assert.Contains(t, body, "activated_at")
}

func TestExitDeletesEntry(t *testing.T) {
	g := &stubGate{}
	h := NewQueueHandler(g)
	c, rec := queueContext(http.MethodDelete, "/v1/queue/tok-1", 1)
	c.SetParamNames("token")
	c.SetParamValues("tok-1")
	require.NoError(t, h.Exit(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"tok-1"}, g.exited)
}
