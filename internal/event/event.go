// Package event defines the domain events the sale emits and the sinks
// that deliver them.  Seat state changes fan out to every client
// watching the round, hold expiries notify the affected buyer, and
// confirmed purchases feed the downstream audit consumer.
package event

import (
	"context"
	"time"
)

// Seat event types.
const (
	SeatHeld     = "HOLD"
	SeatReleased = "RELEASE"
)

// Queue names on the broker.
const (
	SeatEventsQueue = "seats.events"
	TimeoutQueue    = "reservations.timeout"
	ConfirmedQueue  = "reservations.confirmed"
)

// SeatEvent announces that a seat changed state within a round.  It is
// broadcast to everyone watching the seat map so held seats grey out
// and released seats reappear without polling.
type SeatEvent struct {
	Type   string    `json:"type"` // HOLD or RELEASE
	SeatID uint64    `json:"seat_id"`
	Round  int64     `json:"round"`
	At     time.Time `json:"at"`
}

// TimeoutEvent tells one buyer that their payment window closed and
// their reservation moved to TIMEOUT.
type TimeoutEvent struct {
	UserID        uint64    `json:"user_id"`
	ReservationID uint64    `json:"reservation_id"`
	Round         int64     `json:"round"`
	At            time.Time `json:"at"`
}

// ConfirmedEvent is published when a reservation is confirmed.  It
// carries enough for downstream consumers to log or notify without
// querying the primary database.
type ConfirmedEvent struct {
	ReservationID uint64    `json:"reservation_id"`
	UserID        uint64    `json:"user_id"`
	Round         int64     `json:"round"`
	SeatIDs       []uint64  `json:"seat_ids"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

// Sink delivers events.  Delivery is best effort: the domain layers
// log failures and carry on, because a seat map running slightly stale
// is better than a failed purchase.
type Sink interface {
	BroadcastSeat(ctx context.Context, ev SeatEvent) error
	NotifyTimeout(ctx context.Context, ev TimeoutEvent) error
	PublishConfirmed(ctx context.Context, ev ConfirmedEvent) error
}
