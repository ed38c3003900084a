package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	domprod "github.com/kailas-cloud/catalog/internal/domain/product"
	"github.com/kailas-cloud/catalog/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterCatalogMetrics()
	os.Exit(m.Run())
}

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	exchanges  []string
	queues     []string
	binds      []string
	published  []published
	publishErr error
	declareErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	if f.declareErr != nil {
		return f.declareErr
	}
	if kind != "topic" {
		return errors.New("unexpected kind " + kind)
	}
	f.exchanges = append(f.exchanges, name)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	f.queues = append(f.queues, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	f.binds = append(f.binds, name+"|"+key+"|"+exchange)
	return nil
}

func (f *fakeChannel) PublishWithContext(
	_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing,
) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestNewPublisher_DeclaresTopics(t *testing.T) {
	ch := &fakeChannel{}
	if _, err := newPublisher(ch, "catalog", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"catalog_product_created", "catalog_product_updated"}
	for i, name := range want {
		if ch.exchanges[i] != name || ch.queues[i] != name {
			t.Errorf("topic %d = %s/%s, want %s", i, ch.exchanges[i], ch.queues[i], name)
		}
	}
	if len(ch.binds) != 2 {
		t.Errorf("binds = %v", ch.binds)
	}
}

func TestNewPublisher_DeclareError(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("ACCESS_REFUSED")}
	if _, err := newPublisher(ch, "catalog", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestPublish_JSONBody(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := newPublisher(ch, "catalog", nil)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), domprod.Event{
		Type:       domprod.EventUpdated,
		Product:    domprod.Product{ID: "p-1", Title: "Lamp"},
		OccurredAt: at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("published %d messages", len(ch.published))
	}
	got := ch.published[0]
	if got.exchange != "catalog_product_updated" || got.key != "catalog_product_updated" {
		t.Errorf("routing = %s/%s", got.exchange, got.key)
	}
	if got.msg.ContentType != "application/json" || got.msg.DeliveryMode != amqp.Persistent {
		t.Errorf("message props = %+v", got.msg)
	}
	var e domprod.Event
	if err := json.Unmarshal(got.msg.Body, &e); err != nil {
		t.Fatalf("body: %v", err)
	}
	if e.Product.ID != "p-1" || !e.OccurredAt.Equal(at) {
		t.Errorf("event = %+v", e)
	}
}

func TestPublish_Error(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := newPublisher(ch, "catalog", nil)
	ch.publishErr = errors.New("channel closed")

	if err := p.Publish(context.Background(), domprod.Event{Type: domprod.EventCreated}); err == nil {
		t.Fatal("expected error")
	}
}

func TestClose(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := newPublisher(ch, "catalog", nil)

	if err := p.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ch.closed {
		t.Fatal("channel not closed")
	}
	if err := p.Publish(context.Background(), domprod.Event{Type: domprod.EventCreated}); !errors.Is(err, errClosed) {
		t.Fatalf("expected errClosed, got %v", err)
	}
	if err := p.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected unhealthy after close")
	}
}
