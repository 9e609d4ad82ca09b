package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AuditConsumer reads events from the audit queue and appends one line per
// event to <Dir>/audit.log.
type AuditConsumer struct {
	URL    string
	Queue  string
	Dir    string
	Logger *log.Logger
}

// Run dials the broker and consumes until ctx is cancelled. Broken
// connections are redialed with exponential backoff capped at 30s.
// Malformed messages are rejected without requeue to avoid tight loops.
func (a *AuditConsumer) Run(ctx context.Context) error {
	if a.Queue == "" {
		a.Queue = DefaultAuditQueue
	}
	if a.Dir == "" {
		a.Dir = "logs"
	}
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(a.URL)
		if err != nil {
			a.Logger.Warn("audit consumer: dial failed", "err", err, "retry", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = a.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.Logger.Warn("audit consumer: loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (a *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		a.Logger.Warn("audit consumer: set QoS failed", "err", err)
	}
	if _, err := ch.QueueDeclare(a.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(a.Queue, "", false, false, false, false, nil)
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
			if err := a.handle(d.Body); err != nil {
				a.Logger.Error("audit consumer: handle message failed", "err", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (a *AuditConsumer) handle(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", a.Dir, err)
	}
	f, err := os.OpenFile(filepath.Join(a.Dir, "audit.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// FormatLine renders an event as a single audit log line.
func FormatLine(ev Event) string {
	at := ev.OccurredAt.UTC().Format(time.RFC3339)
	switch ev.Type {
	case TypeUserLoggedIn:
		return fmt.Sprintf("[%s] User logged in | user_id=%d | user_name=%q | event_id=%s\n", at, ev.EntityID, ev.UserName, ev.ID)
	default:
		return fmt.Sprintf("[%s] Entity %s | kind=%s | id=%d | event_id=%s\n", at, ev.Action, ev.Kind, ev.EntityID, ev.ID)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
