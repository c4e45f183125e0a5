package ticketing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/minjae-ko/ticket-rush/internal/event"
	"github.com/minjae-ko/ticket-rush/internal/gate"
	"github.com/minjae-ko/ticket-rush/internal/model"
	"github.com/minjae-ko/ticket-rush/internal/repository"
)

// fakeHolds is an in-memory HoldStore enforcing the same seat and
// round uniqueness the real table's index does.
type fakeHolds struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*model.SeatHold

	// afterListExpired simulates a refresh landing between the
	// sweep's read and its deletes.
	afterListExpired func()
}

func newFakeHolds() *fakeHolds {
	return &fakeHolds{rows: map[uint64]*model.SeatHold{}}
}

func (f *fakeHolds) Insert(_ context.Context, hold *model.SeatHold) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.rows {
		if h.SeatID == hold.SeatID && h.Round == hold.Round {
			return &repository.SeatAlreadyHeldError{SeatID: hold.SeatID, Round: hold.Round}
		}
	}
	f.nextID++
	hold.ID = f.nextID
	cp := *hold
	f.rows[hold.ID] = &cp
	return nil
}

func (f *fakeHolds) Exists(_ context.Context, seatID uint64, round int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.rows {
		if h.SeatID == seatID && h.Round == round {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeHolds) Delete(_ context.Context, reservationID uint64, round int64, seatID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, h := range f.rows {
		if h.ReservationID == reservationID && h.Round == round && h.SeatID == seatID {
			delete(f.rows, id)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeHolds) RefreshByReservation(_ context.Context, reservationID uint64, until time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.rows {
		if h.ReservationID == reservationID {
			h.ExpiresAt = until
		}
	}
	return nil
}

func (f *fakeHolds) ListSeatsByRound(_ context.Context, round int64) ([]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uint64
	for _, h := range f.rows {
		if h.Round == round {
			out = append(out, h.SeatID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *fakeHolds) ListExpired(_ context.Context, now time.Time) ([]model.SeatHold, error) {
	f.mu.Lock()
	var out []model.SeatHold
	for _, h := range f.rows {
		if h.ExpiresAt.Before(now) {
			out = append(out, *h)
		}
	}
	hook := f.afterListExpired
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeHolds) DeleteExpired(_ context.Context, ids []uint64, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		if h, ok := f.rows[id]; ok && h.ExpiresAt.Before(now) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeHolds) ListByReservation(_ context.Context, reservationID uint64) ([]model.SeatHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SeatHold
	for _, h := range f.rows {
		if h.ReservationID == reservationID {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeHolds) DeleteByReservation(_ context.Context, reservationID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, h := range f.rows {
		if h.ReservationID == reservationID {
			delete(f.rows, id)
		}
	}
	return nil
}

func (f *fakeHolds) DeleteAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = map[uint64]*model.SeatHold{}
	return nil
}

func (f *fakeHolds) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func (f *fakeHolds) get(id uint64) *model.SeatHold {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.rows[id]; ok {
		cp := *h
		return &cp
	}
	return nil
}

// fakeSeats knows a fixed catalog.
type fakeSeats struct{ known map[uint64]bool }

func (f *fakeSeats) Exists(_ context.Context, seatID uint64) error {
	if !f.known[seatID] {
		return repository.ErrSeatNotFound
	}
	return nil
}

func seatCatalog(n uint64) *fakeSeats {
	known := make(map[uint64]bool, n)
	for id := uint64(1); id <= n; id++ {
		known[id] = true
	}
	return &fakeSeats{known: known}
}

// fakeReservations is an in-memory ReservationStore with CAS state
// changes.
type fakeReservations struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*model.Reservation
	names  map[uint64]string
}

func newFakeReservations() *fakeReservations {
	return &fakeReservations{rows: map[uint64]*model.Reservation{}, names: map[uint64]string{}}
}

func (f *fakeReservations) Create(_ context.Context, userID uint64, round int64, now time.Time) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	res := &model.Reservation{
		ID: f.nextID, UserID: userID, Round: round,
		State: model.ReservationPending, CreatedAt: now, UpdatedAt: now,
	}
	f.rows[res.ID] = res
	cp := *res
	return &cp, nil
}

func (f *fakeReservations) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *res
	return &cp, nil
}

func (f *fakeReservations) UpdateState(_ context.Context, id uint64, from, to model.ReservationState, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.rows[id]
	if !ok || res.State != from {
		return false, nil
	}
	res.State = to
	res.UpdatedAt = at
	return true, nil
}

func (f *fakeReservations) ListConfirmedByRound(_ context.Context, round int64) ([]model.RankEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var confirmed []*model.Reservation
	for _, res := range f.rows {
		if res.Round == round && res.State == model.ReservationConfirmed {
			confirmed = append(confirmed, res)
		}
	}
	sort.Slice(confirmed, func(i, j int) bool {
		if !confirmed[i].UpdatedAt.Equal(confirmed[j].UpdatedAt) {
			return confirmed[i].UpdatedAt.Before(confirmed[j].UpdatedAt)
		}
		return confirmed[i].ID < confirmed[j].ID
	})
	out := make([]model.RankEntry, 0, len(confirmed))
	for _, res := range confirmed {
		out = append(out, model.RankEntry{Name: f.names[res.UserID], CompletedAt: res.UpdatedAt})
	}
	return out, nil
}

func (f *fakeReservations) state(id uint64) model.ReservationState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id].State
}

// recordingSink captures every emitted event.
type recordingSink struct {
	mu        sync.Mutex
	seats     []event.SeatEvent
	timeouts  []event.TimeoutEvent
	confirmed []event.ConfirmedEvent
}

func (s *recordingSink) BroadcastSeat(_ context.Context, ev event.SeatEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seats = append(s.seats, ev)
	return nil
}

func (s *recordingSink) NotifyTimeout(_ context.Context, ev event.TimeoutEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeouts = append(s.timeouts, ev)
	return nil
}

func (s *recordingSink) PublishConfirmed(_ context.Context, ev event.ConfirmedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed = append(s.confirmed, ev)
	return nil
}

func (s *recordingSink) seatEvents() []event.SeatEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.SeatEvent(nil), s.seats...)
}

// recordingGate records expired tokens and satisfies gate.Gate.
type recordingGate struct {
	mu      sync.Mutex
	expired []string
}

func (g *recordingGate) Enter(context.Context, uint64) (gate.EnterResult, error) {
	return gate.EnterResult{}, nil
}

func (g *recordingGate) Status(context.Context, string) (gate.StatusResult, error) {
	return gate.StatusResult{}, nil
}

func (g *recordingGate) Exit(context.Context, string) error { return nil }

func (g *recordingGate) Expire(_ context.Context, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expired = append(g.expired, token)
	return nil
}

func (g *recordingGate) Promote(context.Context) error { return nil }

// testClock returns a clock pinned to a controllable instant.
func testClock(epoch time.Time, window time.Duration, at *time.Time) *RoundClock {
	c := NewRoundClock(epoch, window)
	c.now = func() time.Time { return *at }
	return c
}
