package event

import (
	"context"
	"log"
)

// LogSink writes events to the process log.  It stands in for the
// broker in local development and in tests, and as a fallback when no
// broker URL is configured.
type LogSink struct{}

func (LogSink) BroadcastSeat(_ context.Context, ev SeatEvent) error {
	log.Printf("event: seat %s | seat_id=%d round=%d", ev.Type, ev.SeatID, ev.Round)
	return nil
}

func (LogSink) NotifyTimeout(_ context.Context, ev TimeoutEvent) error {
	log.Printf("event: reservation timeout | reservation_id=%d user_id=%d round=%d",
		ev.ReservationID, ev.UserID, ev.Round)
	return nil
}

func (LogSink) PublishConfirmed(_ context.Context, ev ConfirmedEvent) error {
	log.Printf("event: reservation confirmed | reservation_id=%d user_id=%d round=%d seats=%v",
		ev.ReservationID, ev.UserID, ev.Round, ev.SeatIDs)
	return nil
}
