package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer drains the catalog.product_changed queue and appends one line per
// event to a log file.
type Consumer struct {
	URL     string
	LogPath string // defaults to logs/catalog.log
	Log     *slog.Logger
}

// Run dials the broker and consumes until ctx is cancelled.  Connection loss
// is retried with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	logger := c.Log
	if logger == nil {
		logger = slog.Default()
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			logger.Warn("catalog consumer: dial failed", slog.String("error", err.Error()), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("catalog consumer: loop ended, reconnecting", slog.String("error", err.Error()))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
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

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection, logger *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("catalog consumer: set QoS failed", slog.String("error", err.Error()))
	}
	if _, err := ch.QueueDeclare(ProductChangedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(ProductChangedQueue, "", false, false, false, false, nil)
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
			if err := c.handle(d.Body); err != nil {
				logger.Error("catalog consumer: handle message failed", slog.String("error", err.Error()))
				_ = d.Nack(false, false) // do not requeue
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(body []byte) error {
	path := c.LogPath
	if path == "" {
		path = filepath.Join("logs", "catalog.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	return WriteEvent(f, body)
}

// WriteEvent decodes one message body and writes its log line to w.
func WriteEvent(w io.Writer, body []byte) error {
	var ev ProductChangedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Action == "" || ev.ProductID == "" {
		return errors.New("event is missing action or product id")
	}
	line := fmt.Sprintf("[%s] Product %s | product_id=%s | name=%q | seller_id=%s | catalog_version=%d\n",
		ev.At, ev.Action, ev.ProductID, ev.Name, ev.SellerID, ev.Version)
	if _, err := io.WriteString(w, line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
