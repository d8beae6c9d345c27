package queue

import (
	"context"
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

// DefaultLogPath is where the consumer appends one line per event.
const DefaultLogPath = "logs/seating.log"

// StartSeatingConsumer consumes both seating queues and appends each event
// to logPath.  It reconnects with exponential backoff (capped at 30s) and
// returns only when ctx is cancelled.
func StartSeatingConsumer(ctx context.Context, url, logPath string) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("seating-consumer: dial failed: %v; retrying in %s", err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consume(ctx, conn, logPath)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("seating-consumer: %v; reconnecting", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func consume(ctx context.Context, conn *amqp.Connection, logPath string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("seating-consumer: qos: %v", err)
	}

	var streams [2]<-chan amqp.Delivery
	for i, q := range []string{SeatsAssignedQueue, CheckinRecordedQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare %s: %w", q, err)
		}
		if streams[i], err = ch.Consume(q, "", false, false, false, false, nil); err != nil {
			return fmt.Errorf("consume %s: %w", q, err)
		}
	}

	for {
		var (
			d  amqp.Delivery
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-streams[0]:
		case d, ok = <-streams[1]:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := handle(d.RoutingKey, d.Body, logPath); err != nil {
			log.Printf("seating-consumer: %s: %v", d.RoutingKey, err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

func handle(queue string, body []byte, logPath string) error {
	line, err := FormatLine(queue, body)
	if err != nil {
		return err
	}
	return appendLine(logPath, line)
}

// FormatLine renders a message from queue as a single log line.
func FormatLine(queue string, body []byte) (string, error) {
	switch queue {
	case SeatsAssignedQueue:
		var ev SeatsAssignedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		seats := make([]string, 0, len(ev.Assignments))
		for _, a := range ev.Assignments {
			s := fmt.Sprintf("%d=%s", a.RegistrantID, a.Primary)
			if a.Companion != "" {
				s += "+" + a.Companion
			}
			seats = append(seats, s)
		}
		return fmt.Sprintf("[%s] Seats assigned | run_id=%s | policy=%s | groups=%s | assigned=%d | seats_used=%d | unplaced=%d | seats=[%s]\n",
			ev.AssignedAt, ev.RunID, ev.Policy, strings.Join(ev.Groups, ","), ev.AssignedCount, ev.SeatsUsed,
			len(ev.Unplaced), strings.Join(seats, ",")), nil
	case CheckinRecordedQueue:
		var ev CheckinRecordedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Checked in | registrant_id=%d | list_id=%d | list=%q | seat=%s | by=%s\n",
			ev.CheckedInAt, ev.RegistrantID, ev.CheckinListID, ev.ListName, ev.SeatLabel, ev.CheckedInBy), nil
	}
	return "", fmt.Errorf("unknown queue %q", queue)
}

func appendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
