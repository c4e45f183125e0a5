package ticketing

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/minjae-ko/ticket-rush/internal/event"
	"github.com/minjae-ko/ticket-rush/internal/model"
	"github.com/minjae-ko/ticket-rush/internal/repository"
)

// ErrNotOwner is returned when a user acts on a reservation or hold
// owned by somebody else.
var ErrNotOwner = errors.New("reservation owned by another user")

// ErrInvalidState is returned when an operation does not apply to the
// reservation's current state or round.
var ErrInvalidState = errors.New("invalid reservation state for operation")

// HoldStore is the persistence contract for seat holds.
type HoldStore interface {
	Insert(ctx context.Context, hold *model.SeatHold) error
	Exists(ctx context.Context, seatID uint64, round int64) (bool, error)
	Delete(ctx context.Context, reservationID uint64, round int64, seatID uint64) (bool, error)
	RefreshByReservation(ctx context.Context, reservationID uint64, until time.Time) error
	ListSeatsByRound(ctx context.Context, round int64) ([]uint64, error)
	ListExpired(ctx context.Context, now time.Time) ([]model.SeatHold, error)
	DeleteExpired(ctx context.Context, ids []uint64, now time.Time) (int64, error)
	ListByReservation(ctx context.Context, reservationID uint64) ([]model.SeatHold, error)
	DeleteByReservation(ctx context.Context, reservationID uint64) error
	DeleteAll(ctx context.Context) error
}

// SeatStore checks seats against the catalog.
type SeatStore interface {
	Exists(ctx context.Context, seatID uint64) error
}

// ReservationStore is the persistence contract for reservations.
type ReservationStore interface {
	Create(ctx context.Context, userID uint64, round int64, now time.Time) (*model.Reservation, error)
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	UpdateState(ctx context.Context, id uint64, from, to model.ReservationState, at time.Time) (bool, error)
	ListConfirmedByRound(ctx context.Context, round int64) ([]model.RankEntry, error)
}

// Allocator hands out time-limited exclusive holds on seats.  A hold
// binds one seat to one reservation for the rest of the payment
// window or until its TTL runs out; the UNIQUE (seat_id, round) index
// underneath guarantees exclusivity even when the advisory pre-check
// races.
type Allocator struct {
	holds        HoldStore
	seats        SeatStore
	reservations ReservationStore
	sink         event.Sink
	clock        *RoundClock
	ttl          time.Duration
}

// NewAllocator constructs the allocator.  ttl is how long a fresh
// hold lives before the sweeper may reclaim it.
func NewAllocator(holds HoldStore, seats SeatStore, reservations ReservationStore, sink event.Sink, clock *RoundClock, ttl time.Duration) *Allocator {
	return &Allocator{holds: holds, seats: seats, reservations: reservations, sink: sink, clock: clock, ttl: ttl}
}

// Hold takes an exclusive hold on the seat for the user's reservation
// in the current round.  The existence pre-check answers the common
// case cheaply; when two users race past it, the unique index lets
// exactly one INSERT commit and the loser gets the same
// SeatAlreadyHeldError the pre-check would have produced.
func (a *Allocator) Hold(ctx context.Context, userID, reservationID, seatID uint64) (*model.SeatHold, error) {
	res, err := a.ownedReservation(ctx, userID, reservationID)
	if err != nil {
		return nil, err
	}
	round := a.clock.Current()
	if res.Round != round {
		return nil, ErrInvalidState
	}
	if res.State.IsTerminal() {
		return nil, ErrInvalidState
	}
	if err := a.seats.Exists(ctx, seatID); err != nil {
		return nil, err
	}
	taken, err := a.holds.Exists(ctx, seatID, round)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &repository.SeatAlreadyHeldError{SeatID: seatID, Round: round}
	}

	now := a.clock.Now()
	hold := &model.SeatHold{
		SeatID:        seatID,
		ReservationID: reservationID,
		Round:         round,
		ExpiresAt:     now.Add(a.ttl),
		CreatedAt:     now,
	}
	if err := a.holds.Insert(ctx, hold); err != nil {
		return nil, err
	}
	a.broadcast(ctx, event.SeatHeld, seatID, round)
	return hold, nil
}

// Release gives the seat back.  Releasing a seat the reservation does
// not hold is a no-op, so a client retrying a release never sees an
// error.
func (a *Allocator) Release(ctx context.Context, userID, reservationID, seatID uint64) error {
	res, err := a.ownedReservation(ctx, userID, reservationID)
	if err != nil {
		return err
	}
	deleted, err := a.holds.Delete(ctx, reservationID, res.Round, seatID)
	if err != nil {
		return err
	}
	if deleted {
		a.broadcast(ctx, event.SeatReleased, seatID, res.Round)
	}
	return nil
}

// RefreshForReservation extends every hold of the reservation by a
// full TTL from now.  Called when the buyer enters the payment phase
// so the seats cannot be reclaimed out from under an ongoing payment.
func (a *Allocator) RefreshForReservation(ctx context.Context, reservationID uint64) error {
	return a.holds.RefreshByReservation(ctx, reservationID, a.clock.Now().Add(a.ttl))
}

// HeldSeats returns the ids of every seat currently held in the round.
// Fresh reservations use it to render the seat map; afterwards the
// broadcast events keep the client current.
func (a *Allocator) HeldSeats(ctx context.Context, round int64) ([]uint64, error) {
	return a.holds.ListSeatsByRound(ctx, round)
}

// ReleaseAllForReservation drops every hold the reservation owns and
// broadcasts the releases.  Used when a reservation is cancelled.
func (a *Allocator) ReleaseAllForReservation(ctx context.Context, reservationID uint64) error {
	held, err := a.holds.ListByReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	if err := a.holds.DeleteByReservation(ctx, reservationID); err != nil {
		return err
	}
	for _, h := range held {
		a.broadcast(ctx, event.SeatReleased, h.SeatID, h.Round)
	}
	return nil
}

// Sweep reclaims expired holds.  Each delete re-checks the expiry so
// a hold refreshed after the read survives, and only holds that were
// actually deleted produce RELEASE broadcasts.  A reservation still
// PAYING when one of its holds is reclaimed has outlived its payment
// window: it moves to TIMEOUT and the owner is notified.
func (a *Allocator) Sweep(ctx context.Context) error {
	now := a.clock.Now()
	expired, err := a.holds.ListExpired(ctx, now)
	if err != nil {
		return err
	}
	if len(expired) == 0 {
		return nil
	}

	reclaimed := map[uint64][]model.SeatHold{}
	for _, h := range expired {
		n, err := a.holds.DeleteExpired(ctx, []uint64{h.ID}, now)
		if err != nil {
			return err
		}
		if n == 0 {
			continue // refreshed since the read
		}
		a.broadcast(ctx, event.SeatReleased, h.SeatID, h.Round)
		reclaimed[h.ReservationID] = append(reclaimed[h.ReservationID], h)
	}

	for reservationID, holds := range reclaimed {
		res, err := a.reservations.GetByID(ctx, reservationID)
		if err != nil {
			if errors.Is(err, repository.ErrReservationNotFound) {
				continue
			}
			return err
		}
		if res.State != model.ReservationPaying {
			continue
		}
		moved, err := a.reservations.UpdateState(ctx, reservationID, model.ReservationPaying, model.ReservationTimeout, now)
		if err != nil {
			return err
		}
		if !moved {
			continue // confirmed or cancelled concurrently
		}
		if err := a.sink.NotifyTimeout(ctx, event.TimeoutEvent{
			UserID:        res.UserID,
			ReservationID: reservationID,
			Round:         holds[0].Round,
			At:            now,
		}); err != nil {
			log.Printf("allocator: timeout notify failed: %v", err)
		}
	}
	return nil
}

// ResetRound clears every hold at a round boundary so the new round
// starts with a clean seat map.
func (a *Allocator) ResetRound(ctx context.Context) error {
	return a.holds.DeleteAll(ctx)
}

func (a *Allocator) ownedReservation(ctx context.Context, userID, reservationID uint64) (*model.Reservation, error) {
	res, err := a.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, ErrNotOwner
	}
	return res, nil
}

func (a *Allocator) broadcast(ctx context.Context, typ string, seatID uint64, round int64) {
	ev := event.SeatEvent{Type: typ, SeatID: seatID, Round: round, At: a.clock.Now()}
	if err := a.sink.BroadcastSeat(ctx, ev); err != nil {
		log.Printf("allocator: seat broadcast failed: %v", err)
	}
}
