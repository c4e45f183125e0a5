package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartConfirmedConsumer connects to RabbitMQ, declares the durable
// reservations.confirmed queue and appends one line per confirmed
// purchase to logs/confirmed.log.  It runs a reconnect loop with
// exponential backoff and never returns under normal operation;
// messages that cannot be processed are rejected without requeue so a
// poison message cannot wedge the consumer.
func StartConfirmedConsumer(url string) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("confirmed-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeConfirmed(conn); err != nil {
			log.Printf("confirmed-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeConfirmed(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("confirmed-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(ConfirmedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(ConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := appendConfirmedLine(d.Body); err != nil {
			log.Printf("confirmed-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func appendConfirmedLine(body []byte) error {
	var ev ConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	fpath := filepath.Join("logs", "confirmed.log")
	f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	seats := make([]string, len(ev.SeatIDs))
	for i, id := range ev.SeatIDs {
		seats[i] = fmt.Sprintf("%d", id)
	}
	line := fmt.Sprintf("[%s] Reservation confirmed | reservation_id=%d | user_id=%d | round=%d | seats=[%s]\n",
		ev.ConfirmedAt.Format(time.RFC3339), ev.ReservationID, ev.UserID, ev.Round, strings.Join(seats, ","))
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
