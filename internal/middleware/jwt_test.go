package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func runJWT(t *testing.T, authHeader string) (*httptest.ResponseRecorder, uint64) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got uint64
	next := func(c echo.Context) error {
		got, _ = c.Get("user_id").(uint64)
		return c.NoContent(http.StatusOK)
	}
	err := JWTAuth(testSecret)(next)(c)
	require.NoError(t, err)
	return rec, got
}

func TestJWTAuthInjectsNumericUserID(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	rec, userID := runJWT(t, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(42), userID)
}

func TestJWTAuthAcceptsNumericSubject(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub": 7,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	rec, userID := runJWT(t, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(7), userID)
}

func TestJWTAuthRejectsBadTokens(t *testing.T) {
	rec, _ := runJWT(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = runJWT(t, "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	wrongKey := signToken(t, "other-secret", jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	rec, _ = runJWT(t, "Bearer "+wrongKey)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired := signToken(t, testSecret, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	rec, _ = runJWT(t, "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
