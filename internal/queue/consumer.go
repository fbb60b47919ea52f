// Package queue contains the background consumer that listens to the
// access.attempts queue and writes one line per attempt to logs/access.log.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartAccessConsumer connects to RabbitMQ, declares the access.attempts
// queue (durable) and appends each message to logDir/access.log.  It runs a
// reconnect loop with capped exponential backoff and returns only when ctx
// is cancelled.  Messages that cannot be handled are rejected without
// requeue so one bad payload cannot wedge the loop.
func StartAccessConsumer(ctx context.Context, url, logDir string) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("access-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, logDir)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("access-consumer: consume loop ended: %v; reconnecting", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("access-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(AccessAttemptsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(AccessAttemptsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleAccessMessage(d.Body, logDir); err != nil {
				log.Printf("access-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleAccessMessage decodes one event and appends it to logDir/access.log.
func HandleAccessMessage(body []byte, logDir string) error {
	var ev AccessAttemptEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line, err := FormatAccessLine(ev)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, "access.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatAccessLine renders the single-line log form of an event.
func FormatAccessLine(ev AccessAttemptEvent) (string, error) {
	if ev.AttemptID == "" {
		return "", errors.New("event without attempt_id")
	}
	status := "DENIED"
	if ev.Success {
		status = "SUCCESS"
	}
	device := ev.DeviceType
	if ev.PhoneModel != nil && *ev.PhoneModel != "" {
		device = fmt.Sprintf("%s (%s)", device, *ev.PhoneModel)
	}
	return fmt.Sprintf("[%s] Access attempt %s | attempt_id=%s | device=%q | browser=%s | os=%s\n",
		ev.CreatedAt, status, ev.AttemptID, device, ev.Browser, ev.OS), nil
}
