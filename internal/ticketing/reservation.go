package ticketing

import (
	"context"
	"log"

	"github.com/minjae-ko/ticket-rush/internal/event"
	"github.com/minjae-ko/ticket-rush/internal/gate"
	"github.com/minjae-ko/ticket-rush/internal/model"
	"github.com/minjae-ko/ticket-rush/internal/utils"
)

// Reservations drives the reservation lifecycle.  Every state change
// is a compare-and-set on the previous state, so a concurrent sweep
// or a double-submitted request loses cleanly instead of corrupting
// the state machine.
type Reservations struct {
	store     ReservationStore
	holds     HoldStore
	allocator *Allocator
	gate      gate.Gate
	sink      event.Sink
	clock     *RoundClock
}

// NewReservations constructs the service.
func NewReservations(store ReservationStore, holds HoldStore, allocator *Allocator, g gate.Gate, sink event.Sink, clock *RoundClock) *Reservations {
	return &Reservations{store: store, holds: holds, allocator: allocator, gate: g, sink: sink, clock: clock}
}

// Create opens a PENDING reservation for the user in the current
// round.  Alongside the reservation it returns a snapshot of the seat
// ids already held in that round, so the client can render the seat
// map without a second round trip; the seat-event stream keeps it
// current from there.
func (s *Reservations) Create(ctx context.Context, userID uint64) (*model.Reservation, []uint64, error) {
	round := s.clock.Current()
	res, err := s.store.Create(ctx, userID, round, s.clock.Now())
	if err != nil {
		return nil, nil, err
	}
	held, err := s.allocator.HeldSeats(ctx, round)
	if err != nil {
		return nil, nil, err
	}
	return res, held, nil
}

// Get loads a reservation the user owns.
func (s *Reservations) Get(ctx context.Context, userID, reservationID uint64) (*model.Reservation, error) {
	return s.owned(ctx, userID, reservationID)
}

// StartPaying moves an owned PENDING reservation to PAYING, refreshes
// every seat hold for a full payment window and returns the payment
// session key.  The refresh means a buyer who picked seats slowly
// still gets the whole window to pay.
func (s *Reservations) StartPaying(ctx context.Context, userID, reservationID uint64) (string, error) {
	res, err := s.owned(ctx, userID, reservationID)
	if err != nil {
		return "", err
	}
	if !res.State.CanTransitionTo(model.ReservationPaying) {
		return "", ErrInvalidState
	}
	moved, err := s.store.UpdateState(ctx, reservationID, model.ReservationPending, model.ReservationPaying, s.clock.Now())
	if err != nil {
		return "", err
	}
	if !moved {
		return "", ErrInvalidState
	}
	if err := s.allocator.RefreshForReservation(ctx, reservationID); err != nil {
		return "", err
	}
	return utils.NewSessionKey(), nil
}

// CompletePaying confirms an owned PAYING reservation.  Only the
// reservation's owner may complete it.  On success the confirmed
// event is published and the buyer's queue admission is consumed, so
// the freed slot goes to the next person in line.
func (s *Reservations) CompletePaying(ctx context.Context, userID, reservationID uint64, queueToken string) (*model.Reservation, error) {
	res, err := s.owned(ctx, userID, reservationID)
	if err != nil {
		return nil, err
	}
	if !res.State.CanTransitionTo(model.ReservationConfirmed) {
		return nil, ErrInvalidState
	}
	now := s.clock.Now()
	moved, err := s.store.UpdateState(ctx, reservationID, model.ReservationPaying, model.ReservationConfirmed, now)
	if err != nil {
		return nil, err
	}
	if !moved {
		// lost to the sweep or to a concurrent submit
		return nil, ErrInvalidState
	}
	res.State = model.ReservationConfirmed
	res.UpdatedAt = now

	held, err := s.holds.ListByReservation(ctx, reservationID)
	if err != nil {
		log.Printf("reservations: listing holds after confirm failed: %v", err)
	}
	seatIDs := make([]uint64, 0, len(held))
	for _, h := range held {
		seatIDs = append(seatIDs, h.SeatID)
	}
	if err := s.sink.PublishConfirmed(ctx, event.ConfirmedEvent{
		ReservationID: reservationID,
		UserID:        userID,
		Round:         res.Round,
		SeatIDs:       seatIDs,
		ConfirmedAt:   now,
	}); err != nil {
		log.Printf("reservations: confirmed publish failed: %v", err)
	}

	// The purchase is done either way; failing it over queue
	// bookkeeping would strand a paying customer.
	if err := s.gate.Expire(ctx, queueToken); err != nil {
		log.Printf("reservations: expiring queue token failed: %v", err)
	}
	return res, nil
}

// Cancel moves an owned PENDING or PAYING reservation to CANCELLED
// and gives back every seat it held.
func (s *Reservations) Cancel(ctx context.Context, userID, reservationID uint64) error {
	res, err := s.owned(ctx, userID, reservationID)
	if err != nil {
		return err
	}
	if !res.State.CanTransitionTo(model.ReservationCancelled) {
		return ErrInvalidState
	}
	moved, err := s.store.UpdateState(ctx, reservationID, res.State, model.ReservationCancelled, s.clock.Now())
	if err != nil {
		return err
	}
	if !moved {
		return ErrInvalidState
	}
	return s.allocator.ReleaseAllForReservation(ctx, reservationID)
}

// Rank returns the completion ranking of the reservation's round:
// confirmed reservations ordered by completion time, earliest first.
func (s *Reservations) Rank(ctx context.Context, reservationID uint64) ([]model.RankEntry, error) {
	res, err := s.store.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListConfirmedByRound(ctx, res.Round)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (s *Reservations) owned(ctx context.Context, userID, reservationID uint64) (*model.Reservation, error) {
	res, err := s.store.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, ErrNotOwner
	}
	return res, nil
}
