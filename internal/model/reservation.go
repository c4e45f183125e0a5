package model

import "time"

// ReservationState is the state of a buyer's attempt at one sales
// round.  CONFIRMED, CANCELLED and TIMEOUT are terminal.
type ReservationState string

const (
	ReservationPending   ReservationState = "PENDING"
	ReservationPaying    ReservationState = "PAYING"
	ReservationConfirmed ReservationState = "CONFIRMED"
	ReservationCancelled ReservationState = "CANCELLED"
	ReservationTimeout   ReservationState = "TIMEOUT"
)

// CanTransitionTo reports whether the state may move to target.
// PENDING may become PAYING or CANCELLED; PAYING may become
// CONFIRMED, CANCELLED or TIMEOUT; terminal states never change.
func (s ReservationState) CanTransitionTo(target ReservationState) bool {
	switch s {
	case ReservationPending:
		return target == ReservationPaying || target == ReservationCancelled
	case ReservationPaying:
		return target == ReservationConfirmed || target == ReservationCancelled || target == ReservationTimeout
	default:
		return false
	}
}

// IsTerminal reports whether the state can never change again.
func (s ReservationState) IsTerminal() bool {
	return s == ReservationConfirmed || s == ReservationCancelled || s == ReservationTimeout
}

// Reservation records one buyer's attempt to purchase seats during a
// sales round.  Seat holds reference the reservation; when the last
// hold of a PAYING reservation is swept the reservation times out.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – user who owns the reservation.
//	Round     – sales round the attempt belongs to.
//	State     – PENDING, PAYING, CONFIRMED, CANCELLED or TIMEOUT.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last state change; for CONFIRMED rows this is the
//	            completion time used by the round ranking.
type Reservation struct {
	ID        uint64           // reservations.id
	UserID    uint64           // reservations.user_id
	Round     int64            // reservations.round
	State     ReservationState // reservations.state
	CreatedAt time.Time        // reservations.created_at
	UpdatedAt time.Time        // reservations.updated_at
}
