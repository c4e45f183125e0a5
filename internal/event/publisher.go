package event

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPSink publishes events to RabbitMQ.  Each publish dials its own
// connection and tears it down afterwards; the sale's event volume is
// modest and a stale pooled connection must never be the reason a
// purchase fails.  Messages are persistent so they survive broker
// restarts.
type AMQPSink struct {
	url string
}

// NewAMQPSink constructs a sink for the given broker URL.
func NewAMQPSink(url string) *AMQPSink {
	return &AMQPSink{url: url}
}

func (s *AMQPSink) BroadcastSeat(ctx context.Context, ev SeatEvent) error {
	return s.publish(ctx, SeatEventsQueue, ev)
}

func (s *AMQPSink) NotifyTimeout(ctx context.Context, ev TimeoutEvent) error {
	return s.publish(ctx, TimeoutQueue, ev)
}

func (s *AMQPSink) PublishConfirmed(ctx context.Context, ev ConfirmedEvent) error {
	return s.publish(ctx, ConfirmedQueue, ev)
}

// publish declares the durable queue (idempotent) and sends one
// persistent JSON message to it.  Errors are logged and returned so
// the caller can choose to ignore them.
func (s *AMQPSink) publish(ctx context.Context, queue string, payload any) error {
	conn, err := amqp.Dial(s.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish to %s failed: %v", queue, err)
		return err
	}
	return nil
}
