package middleware // reusable HTTP middleware functions

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"
)

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and injects the token's subject into the request context as a
// numeric user id.  Tokens are issued by the external auth service;
// this application only verifies them with the shared secret.
// Handlers behind this middleware read the id via c.Get("user_id").
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				// reject any signing method other than HMAC
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			userID, ok := subjectID(claims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
			}

			c.Set("user_id", userID)
			return next(c)
		}
	}
}

// subjectID reads the sub claim, accepting both the numeric form and
// the string form different issuers produce.
func subjectID(claims jwt.MapClaims) (uint64, bool) {
	switch v := claims["sub"].(type) {
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		return id, err == nil && id > 0
	case float64:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	}
	return 0, false
}
