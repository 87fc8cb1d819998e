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

// AuditConsumer appends every claim.issued event to <dir>/claims.log.
type AuditConsumer struct {
	url string
	dir string
}

// NewAuditConsumer returns a consumer for the broker at url writing
// into dir.
func NewAuditConsumer(url, dir string) *AuditConsumer {
	if dir == "" {
		dir = "logs"
	}
	return &AuditConsumer{url: url, dir: dir}
}

// Run connects, consumes and reconnects with exponential backoff until
// ctx is cancelled.  Malformed messages are logged and rejected without
// requeue.
func (a *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(a.url)
		if err != nil {
			log.Printf("claim-audit: failed to dial broker: %v; retrying in %s", err, backoff)
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
		log.Printf("claim-audit: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (a *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("claim-audit: set QoS failed: %v", err)
	}
	if _, err := declareClaimQueue(ch); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(ClaimIssuedQueue, "", false, false, false, false, nil)
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
				log.Printf("claim-audit: handle message failed: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (a *AuditConsumer) handle(body []byte) error {
	line, err := FormatAuditLine(body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(a.dir, "claims.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatAuditLine renders one claim.issued message as a log line.
func FormatAuditLine(body []byte) (string, error) {
	var ev ClaimIssuedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return "", fmt.Errorf("unmarshal: %w", err)
	}
	if ev.DropID == 0 || ev.UserID == 0 {
		return "", errors.New("event missing drop_id or user_id")
	}
	return fmt.Sprintf("[%s] Claim issued | event_id=%s | drop_id=%d | drop=%q | user_id=%d | position=%d/%d | code=****%s\n",
		ev.IssuedAt, ev.EventID, ev.DropID, ev.DropTitle, ev.UserID, ev.Position, ev.Stock, ev.CodeHint), nil
}
