// Package amqp publishes product change events to RabbitMQ topic exchanges.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	domprod "github.com/kailas-cloud/catalog/internal/domain/product"
	"github.com/kailas-cloud/catalog/internal/metrics"
)

var errClosed = errors.New("publisher is closed")

// channel is the subset of *amqp.Channel the publisher uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends product events. Each event type gets its own exchange and
// durable queue named "<prefix>_<type>".
type Publisher struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     channel
	prefix string
	logger *zap.Logger
	closed bool
}

// Dial connects to the broker and declares the event topics.
func Dial(url, prefix string, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	p, err := newPublisher(ch, prefix, logger)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, prefix string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Publisher{ch: ch, prefix: prefix, logger: logger}
	for _, t := range []domprod.EventType{domprod.EventCreated, domprod.EventUpdated} {
		if err := p.defineTopic(t); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Publisher) defineTopic(t domprod.EventType) error {
	name := p.topic(t)
	if err := p.ch.ExchangeDeclare(name, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	if _, err := p.ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	if err := p.ch.QueueBind(name, name, name, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", name, err)
	}
	return nil
}

func (p *Publisher) topic(t domprod.EventType) string {
	return fmt.Sprintf("%s_%s", p.prefix, t)
}

// Publish sends one event as JSON.
func (p *Publisher) Publish(ctx context.Context, e domprod.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errClosed
	}

	name := p.topic(e.Type)
	err = p.ch.PublishWithContext(ctx, name, name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         string(e.Type),
		Timestamp:    e.OccurredAt,
		Body:         body,
	})
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(e.Type), "error").Inc()
		return fmt.Errorf("publish %s: %w", name, err)
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(e.Type), "ok").Inc()
	p.logger.Debug("Event published", zap.String("topic", name), zap.String("id", e.Product.ID))
	return nil
}

// HealthCheck reports whether the broker connection is usable.
func (p *Publisher) HealthCheck(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errClosed
	}
	if p.conn != nil && p.conn.IsClosed() {
		return errors.New("amqp connection closed")
	}
	return nil
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	err := p.ch.Close()
	if p.conn != nil {
		err = errors.Join(err, p.conn.Close())
	}
	return err
}
