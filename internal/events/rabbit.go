package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/library-kiosk/internal/config"
	"github.com/kozaktomas/library-kiosk/internal/database"
	amqp "github.com/rabbitmq/amqp091-go"
)

// CirculationMessage is the JSON body published for every issue or return.
type CirculationMessage struct {
	EventID  string    `json:"event_id"`
	RecordID int64     `json:"record_id"`
	Name     string    `json:"name"`
	Action   string    `json:"action"`
	Item     string    `json:"item"`
	At       time.Time `json:"at"`
}

func newCirculationMessage(ev database.CirculationEvent) CirculationMessage {
	return CirculationMessage{
		EventID:  ev.ID,
		RecordID: ev.RecordID,
		Name:     ev.Name,
		Action:   string(ev.Action),
		Item:     ev.Item,
		At:       ev.At,
	}
}

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher publishes circulation events to a durable topic exchange.
type RabbitPublisher struct {
	conn       *amqp.Connection
	channel    channel
	exchange   string
	routingKey string
}

// NewRabbitPublisher dials the broker and declares the exchange.
func NewRabbitPublisher(cfg config.EventsConfig) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	return &RabbitPublisher{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
	}, nil
}

// Publish sends the event as a persistent JSON message.
// The routing key is suffixed with the action, e.g. circulation.event.issue.
func (r *RabbitPublisher) Publish(ctx context.Context, ev database.CirculationEvent) error {
	body, err := json.Marshal(newCirculationMessage(ev))
	if err != nil {
		return fmt.Errorf("marshal circulation event: %w", err)
	}

	err = r.channel.PublishWithContext(ctx,
		r.exchange,
		r.routingKey+"."+string(ev.Action),
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    ev.ID,
			Body:         body,
			Timestamp:    ev.At,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish circulation event %s: %w", ev.ID, err)
	}
	return nil
}

// Close closes the channel and the connection.
func (r *RabbitPublisher) Close() error {
	var errs []error
	if r.channel != nil {
		errs = append(errs, r.channel.Close())
	}
	if r.conn != nil {
		errs = append(errs, r.conn.Close())
	}
	return errors.Join(errs...)
}

// New returns a RabbitPublisher when AMQP_URL is set and Noop otherwise.
func New(cfg config.EventsConfig) (Publisher, error) {
	if cfg.AMQPURL == "" {
		return Noop{}, nil
	}
	return NewRabbitPublisher(cfg)
}
