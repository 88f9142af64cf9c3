package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kozaktomas/library-kiosk/internal/config"
	"github.com/kozaktomas/library-kiosk/internal/database"
	amqp "github.com/rabbitmq/amqp091-go"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	published  []published
	publishErr error
	closed     bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
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

func testEvent() database.CirculationEvent {
	return database.CirculationEvent{
		ID:       "0b9c4e0e-1c5e-4f7e-9a55-3d1f0f1f3c11",
		RecordID: 3,
		Name:     "Ada",
		Action:   database.ActionIssue,
		Item:     "BOOK-1",
		At:       time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestRabbitPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := &RabbitPublisher{channel: ch, exchange: "library.circulation", routingKey: "circulation.event"}

	if err := p.Publish(context.Background(), testEvent()); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("published %d messages, want 1", len(ch.published))
	}

	got := ch.published[0]
	if got.exchange != "library.circulation" {
		t.Errorf("exchange = %q", got.exchange)
	}
	if got.key != "circulation.event.issue" {
		t.Errorf("routing key = %q, want circulation.event.issue", got.key)
	}
	if got.msg.DeliveryMode != amqp.Persistent {
		t.Errorf("delivery mode = %d, want persistent", got.msg.DeliveryMode)
	}
	if got.msg.MessageId != testEvent().ID {
		t.Errorf("message id = %q", got.msg.MessageId)
	}

	var body CirculationMessage
	if err := json.Unmarshal(got.msg.Body, &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Name != "Ada" || body.Action != "issue" || body.Item != "BOOK-1" {
		t.Errorf("body = %+v", body)
	}
}

func TestRabbitPublisher_PublishError(t *testing.T) {
	boom := errors.New("channel closed")
	p := &RabbitPublisher{channel: &fakeChannel{publishErr: boom}, exchange: "x", routingKey: "k"}

	err := p.Publish(context.Background(), testEvent())
	if !errors.Is(err, boom) {
		t.Errorf("Publish() error = %v, want wrapped %v", err, boom)
	}
}

func TestRabbitPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	p := &RabbitPublisher{channel: ch}
	if err := p.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if !ch.closed {
		t.Error("expected channel to be closed")
	}
}

func TestNew_WithoutURLIsNoop(t *testing.T) {
	p, err := New(config.EventsConfig{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if _, ok := p.(Noop); !ok {
		t.Errorf("New() = %T, want Noop", p)
	}
	if err := p.Publish(context.Background(), testEvent()); err != nil {
		t.Errorf("Noop.Publish() error: %v", err)
	}
}
