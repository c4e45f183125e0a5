package ticketing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minjae-ko/ticket-rush/internal/model"
)

type reservationFixture struct {
	service      *Reservations
	allocator    *Allocator
	holds        *fakeHolds
	reservations *fakeReservations
	sink         *recordingSink
	gate         *recordingGate
	at           *time.Time
}

func newReservationFixture(t *testing.T) *reservationFixture {
	t.Helper()
	epoch := time.Date(2025, 12, 9, 10, 0, 0, 0, time.UTC)
	at := epoch.Add(10 * time.Second)
	holds := newFakeHolds()
	reservations := newFakeReservations()
	sink := &recordingSink{}
	g := &recordingGate{}
	clock := testClock(epoch, time.Minute, &at)
	allocator := NewAllocator(holds, seatCatalog(100), reservations, sink, clock, holdTTL)
	return &reservationFixture{
		service:      NewReservations(reservations, holds, allocator, g, sink, clock),
		allocator:    allocator,
		holds:        holds,
		reservations: reservations,
		sink:         sink,
		gate:         g,
		at:           &at,
	}
}

func TestCreateOpensPendingReservationInCurrentRound(t *testing.T) {
	f := newReservationFixture(t)
	res, held, err := f.service.Create(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationPending, res.State)
	assert.Equal(t, int64(0), res.Round)
	assert.Equal(t, uint64(1), res.UserID)
	assert.Empty(t, held, "no seats are held yet")
}

func TestCreateSnapshotsHeldSeats(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	first, _, err := f.service.Create(ctx, 1)
	require.NoError(t, err)
	_, err = f.allocator.Hold(ctx, 1, first.ID, 7)
	require.NoError(t, err)
	_, err = f.allocator.Hold(ctx, 1, first.ID, 3)
	require.NoError(t, err)

	// a second buyer sees the seats the first one already took
	_, held, err := f.service.Create(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 7}, held)
}

func TestStartPayingRefreshesHoldsAndReturnsSession(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	res, _, err := f.service.Create(ctx, 1)
	require.NoError(t, err)
	hold, err := f.allocator.Hold(ctx, 1, res.ID, 7)
	require.NoError(t, err)

	// the buyer picked seats slowly; most of the TTL is gone
	*f.at = f.at.Add(15 * time.Second)
	key, err := f.service.StartPaying(ctx, 1, res.ID)
	require.NoError(t, err)
	assert.Len(t, key, 64)

	assert.Equal(t, model.ReservationPaying, f.reservations.state(res.ID))
	assert.Equal(t, f.at.Add(holdTTL), f.holds.get(hold.ID).ExpiresAt, "payment gets a full window")
}

func TestStartPayingRequiresOwnershipAndPendingState(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	res, _, err := f.service.Create(ctx, 1)
	require.NoError(t, err)

	_, err = f.service.StartPaying(ctx, 2, res.ID)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = f.service.StartPaying(ctx, 1, res.ID)
	require.NoError(t, err)

	// already PAYING
	_, err = f.service.StartPaying(ctx, 1, res.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompletePayingConfirmsAndConsumesAdmission(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	res, _, err := f.service.Create(ctx, 1)
	require.NoError(t, err)
	_, err = f.allocator.Hold(ctx, 1, res.ID, 7)
	require.NoError(t, err)
	_, err = f.allocator.Hold(ctx, 1, res.ID, 8)
	require.NoError(t, err)
	_, err = f.service.StartPaying(ctx, 1, res.ID)
	require.NoError(t, err)

	confirmed, err := f.service.CompletePaying(ctx, 1, res.ID, "queue-token-1")
	require.NoError(t, err)
	assert.Equal(t, model.ReservationConfirmed, confirmed.State)
	assert.Equal(t, model.ReservationConfirmed, f.reservations.state(res.ID))

	require.Len(t, f.sink.confirmed, 1)
	assert.ElementsMatch(t, []uint64{7, 8}, f.sink.confirmed[0].SeatIDs)

	assert.Equal(t, []string{"queue-token-1"}, f.gate.expired, "admission is consumed on purchase")
}

// Regression test: completing a payment must be allowed for the owner
// and only the owner.
func TestCompletePayingRejectsNonOwner(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	res, _, err := f.service.Create(ctx, 1)
	require.NoError(t, err)
	_, err = f.service.StartPaying(ctx, 1, res.ID)
	require.NoError(t, err)

	_, err = f.service.CompletePaying(ctx, 2, res.ID, "stolen-token")
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, model.ReservationPaying, f.reservations.state(res.ID))
	assert.Empty(t, f.gate.expired)

	_, err = f.service.CompletePaying(ctx, 1, res.ID, "queue-token-1")
	assert.NoError(t, err, "the owner completes their own payment")
}

func TestCompletePayingRequiresPayingState(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	res, _, err := f.service.Create(ctx, 1)
	require.NoError(t, err)

	_, err = f.service.CompletePaying(ctx, 1, res.ID, "queue-token-1")
	assert.ErrorIs(t, err, ErrInvalidState)

	// a reservation the sweep already timed out cannot be confirmed
	_, err = f.service.StartPaying(ctx, 1, res.ID)
	require.NoError(t, err)
	moved, err := f.reservations.UpdateState(ctx, res.ID, model.ReservationPaying, model.ReservationTimeout, *f.at)
	require.NoError(t, err)
	require.True(t, moved)

	_, err = f.service.CompletePaying(ctx, 1, res.ID, "queue-token-1")
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Empty(t, f.gate.expired)
}

func TestCancelReleasesHeldSeats(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	res, _, err := f.service.Create(ctx, 1)
	require.NoError(t, err)
	_, err = f.allocator.Hold(ctx, 1, res.ID, 7)
	require.NoError(t, err)
	_, err = f.allocator.Hold(ctx, 1, res.ID, 8)
	require.NoError(t, err)

	require.NoError(t, f.service.Cancel(ctx, 1, res.ID))
	assert.Equal(t, model.ReservationCancelled, f.reservations.state(res.ID))
	assert.Equal(t, 0, f.holds.count())

	// 2 holds and 2 releases
	assert.Len(t, f.sink.seatEvents(), 4)

	// cancelling a terminal reservation fails
	assert.ErrorIs(t, f.service.Cancel(ctx, 1, res.ID), ErrInvalidState)
}

func TestCancelWhilePaying(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	res, _, err := f.service.Create(ctx, 1)
	require.NoError(t, err)
	_, err = f.service.StartPaying(ctx, 1, res.ID)
	require.NoError(t, err)

	require.NoError(t, f.service.Cancel(ctx, 1, res.ID))
	assert.Equal(t, model.ReservationCancelled, f.reservations.state(res.ID))
}

func TestRankOrdersByCompletionTime(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	f.reservations.names = map[uint64]string{1: "ana", 2: "bo", 3: "cy"}

	var ids []uint64
	for userID := uint64(1); userID <= 3; userID++ {
		res, _, err := f.service.Create(ctx, userID)
		require.NoError(t, err)
		_, err = f.service.StartPaying(ctx, userID, res.ID)
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}

	// confirm in reverse order with increasing completion times
	for i := len(ids) - 1; i >= 0; i-- {
		*f.at = f.at.Add(time.Second)
		_, err := f.service.CompletePaying(ctx, uint64(i+1), ids[i], "token")
		require.NoError(t, err)
	}

	ranking, err := f.service.Rank(ctx, ids[0])
	require.NoError(t, err)
	require.Len(t, ranking, 3)
	assert.Equal(t, []string{"cy", "bo", "ana"}, []string{ranking[0].Name, ranking[1].Name, ranking[2].Name})
	assert.Equal(t, 1, ranking[0].Rank)
	assert.Equal(t, 3, ranking[2].Rank)
	assert.True(t, ranking[0].CompletedAt.Before(ranking[2].CompletedAt))
}
