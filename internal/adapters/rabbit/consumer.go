package rabbit

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

type Consumer struct {
	ch    *amqp.Channel
	queue string
}

// NewConsumer declares queue and binds it to the exchange for every routing
// pattern in bindings.
func NewConsumer(conn *amqp.Connection, queue string, bindings ...string) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "open channel")
	}
	if err := declareExchange(ch); err != nil {
		ch.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, errors.Wrapf(err, "declare queue %s", queue)
	}
	for _, b := range bindings {
		if err := ch.QueueBind(queue, b, Exchange, false, nil); err != nil {
			ch.Close()
			return nil, errors.Wrapf(err, "bind %s to %s", queue, b)
		}
	}
	return &Consumer{ch: ch, queue: queue}, nil
}

// Consume calls handle for every event until ctx is done or the channel
// closes. Deliveries are acked after handle returns nil and requeued once
// otherwise.
func (c *Consumer) Consume(ctx context.Context, handle func(context.Context, Event) error) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrapf(err, "consume %s", c.queue)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("delivery channel closed")
			}
			var ev Event
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				_ = d.Nack(false, false)
				continue
			}
			if err := handle(ctx, ev); err != nil {
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) Close() error {
	return c.ch.Close()
}
