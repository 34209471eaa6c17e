package rabbit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange is the topic exchange job completion events go to.
const Exchange = "cinema.ingest"

const (
	KeyIngestCompleted    = "ingest.completed"
	KeyMigrationCompleted = "migration.completed"
)

// Event announces the outcome of an ingest run or migration.
type Event struct {
	Type     string         `json:"type"`
	RunID    string         `json:"run_id"`
	Mode     string         `json:"mode,omitempty"`
	Success  bool           `json:"success"`
	Duration float64        `json:"duration_seconds"`
	At       time.Time      `json:"at"`
	Details  map[string]any `json:"details,omitempty"`
}

type Publisher struct {
	ch *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open channel")
	}
	if err := declareExchange(ch); err != nil {
		ch.Close()
		return nil, err
	}
	return &Publisher{ch: ch}, nil
}

func (p *Publisher) Publish(ctx context.Context, key string, msg amqp.Publishing) error {
	return p.ch.PublishWithContext(ctx, Exchange, key, false, false, msg)
}

// PublishEvent sends ev as a persistent JSON message routed by its type.
func (p *Publisher) PublishEvent(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return errors.Wrapf(p.Publish(ctx, ev.Type, amqp.Publishing{
		MessageId:    uuid.NewString(),
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.At,
		Body:         body,
	}), "publish %s", ev.Type)
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func declareExchange(ch *amqp.Channel) error {
	return errors.Wrapf(ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil), "declare exchange %s", Exchange)
}
