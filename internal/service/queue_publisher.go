package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/faizvk/ecommerce-app/internal/queue"
)

// Publisher sends catalog events to RabbitMQ.  Each publish opens its own
// connection, so a broker outage never leaves broken state behind.
type Publisher struct {
	url         string
	dialTimeout time.Duration
	log         *slog.Logger
}

// NewPublisher returns nil when url is empty; a nil *Publisher is a valid
// no-op EventPublisher.
func NewPublisher(url string, logger *slog.Logger) *Publisher {
	if url == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{url: url, dialTimeout: 2 * time.Second, log: logger}
}

// PublishProductChanged publishes ev to the durable catalog.product_changed
// queue as a persistent message.  Errors are returned unlogged; the caller
// owns reporting them.
func (p *Publisher) PublishProductChanged(ctx context.Context, ev q.ProductChangedEvent) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.publish(ctx, q.ProductChangedQueue, body); err != nil {
		return fmt.Errorf("publish to %s: %w", q.ProductChangedQueue, err)
	}
	p.log.Debug("product event published", slog.String("queue", q.ProductChangedQueue), slog.String("product_id", ev.ProductID))
	return nil
}

func (p *Publisher) publish(ctx context.Context, queue string, body []byte) error {
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.dialTimeout)})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
