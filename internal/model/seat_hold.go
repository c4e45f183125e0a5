package model

import "time"

// SeatHold is a time-boxed exclusive claim on one seat for one sales
// round.  At most one live hold exists per (seat_id, round); the
// unique index on those columns is the final arbiter under concurrent
// insertion.  Holds expire automatically once ExpiresAt passes unless
// the owning reservation refreshes them on payment entry.
//
// Fields:
//
//	ID            – primary key identifier.
//	SeatID        – seat being held.
//	ReservationID – reservation that owns the hold.
//	Round         – sales round the hold belongs to.
//	ExpiresAt     – when the hold lapses without a refresh.
//	CreatedAt     – when the hold was created.
type SeatHold struct {
	ID            uint64    // seat_holds.id
	SeatID        uint64    // seat_holds.seat_id
	ReservationID uint64    // seat_holds.reservation_id
	Round         int64     // seat_holds.round
	ExpiresAt     time.Time // seat_holds.expires_at
	CreatedAt     time.Time // seat_holds.created_at
}
