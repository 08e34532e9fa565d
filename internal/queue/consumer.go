// Package queue carries search audit events: the publisher used by the
// dashboard and the consumer that appends them to a log file.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// DefaultAuditLog is where the consumer appends events when no path is given.
const DefaultAuditLog = "logs/search_audit.log"

// Consumer reads SearchPerformedEvent messages and appends one line per
// event to a file.
type Consumer struct {
	URL     string
	LogPath string
}

// Run connects to the broker and consumes until ctx is cancelled.  Broken
// connections are retried with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	if c.URL == "" {
		return errors.New("audit consumer: broker URL is empty")
	}
	path := c.LogPath
	if path == "" {
		path = DefaultAuditLog
	}

	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("audit-consumer: failed to dial broker")
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
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, path)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("audit-consumer: consume loop ended; reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, path string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("audit-consumer: set QoS failed")
	}

	if _, err := ch.QueueDeclare(SearchQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(SearchQueueName, "", false, false, false, false, nil)
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
			if err := appendEvent(path, d.Body); err != nil {
				log.Error().Err(err).Msg("audit-consumer: handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func appendEvent(path string, body []byte) error {
	var ev SearchPerformedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	_, err = f.WriteString(formatEvent(ev) + "\n")
	return err
}

// formatEvent renders a single human-friendly line for the audit log.
func formatEvent(ev SearchPerformedEvent) string {
	name := ev.Name
	if name == "" {
		name = "*"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s search name=%q votes=[%d,%d] results=%d",
		ev.OccurredAt.UTC().Format(time.RFC3339), name, ev.MinVotes, ev.MaxVotes, ev.Results)
	if ev.Degraded {
		b.WriteString(" degraded=true")
	}
	if ev.RemoteIP != "" {
		fmt.Fprintf(&b, " ip=%s", ev.RemoteIP)
	}
	return b.String()
}
