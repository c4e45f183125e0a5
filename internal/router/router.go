// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/minjae-ko/ticket-rush/internal/config"
	"github.com/minjae-ko/ticket-rush/internal/handler"
	"github.com/minjae-ko/ticket-rush/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the authenticated API under /v1.  Every route
// requires a valid access token; the queue entry endpoint additionally
// sits behind the Redis rate limiter because it is the one every
// client hammers when the sale opens.
func RegisterAPI(e *echo.Echo, q *handler.QueueHandler, t *handler.TicketingHandler, s *handler.SeatsHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(jwtSecret))

	limited := middleware.NewTokenBucket(rlCfg, rdb)

	// waiting room
	v1.POST("/queue", q.Enter, limited)
	v1.GET("/queue/:token", q.Status)
	v1.DELETE("/queue/:token", q.Exit)

	// reservations
	v1.POST("/reservations", t.Create)
	v1.GET("/reservations/:id", t.Get)
	v1.POST("/reservations/:id/payment-session", t.StartPaying)
	v1.POST("/reservations/:id/payment", t.CompletePaying)
	v1.POST("/reservations/:id/cancel", t.Cancel)
	v1.GET("/reservations/:id/rank", t.Rank)

	// seat holds
	v1.POST("/seats/:seatId/hold", s.Hold)
	v1.POST("/seats/:seatId/release", s.Release)
}
