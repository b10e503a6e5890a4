// Package events publishes redirect click events for the downstream
// analytics worker. Publishing is fire-and-forget: the redirect path
// never waits on or fails because of the broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ClickExchange is the exchange click events are published to.
const ClickExchange = "url.events"

// clickRoutingKey routes click events to the analytics queue bindings.
const clickRoutingKey = "url.click"

// ClickEvent records one successful redirect.
type ClickEvent struct {
	ShortCode  string `json:"short_code"`
	OccurredAt string `json:"occurred_at"`
	RequestID  string `json:"request_id"`
}

// Publisher emits click events.
type Publisher interface {
	PublishClick(ctx context.Context, event ClickEvent) error
}

// AMQPPublisher publishes click events to a RabbitMQ exchange.
type AMQPPublisher struct {
	channel  *amqp.Channel
	exchange string
}

// NewAMQPPublisher opens a channel on the given connection and declares
// the click exchange.
func NewAMQPPublisher(conn *amqp.Connection) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		ClickExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", ClickExchange, err)
	}

	return &AMQPPublisher{channel: ch, exchange: ClickExchange}, nil
}

// PublishClick sends one click event as JSON.
func (p *AMQPPublisher) PublishClick(ctx context.Context, event ClickEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal click event: %w", err)
	}

	return p.channel.PublishWithContext(ctx,
		p.exchange,
		clickRoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.Now(),
			Body:        body,
		},
	)
}

// Close releases the underlying channel.
func (p *AMQPPublisher) Close() error {
	return p.channel.Close()
}

var _ Publisher = (*AMQPPublisher)(nil)
