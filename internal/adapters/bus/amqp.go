// Package bus publishes committed changes to a RabbitMQ topic exchange for
// cross-process consumers. The in-process feed broker stays authoritative;
// this is an optional tap that must never block a commit.
package bus

import (
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"weddingmemories/internal/domain"
)

const (
	ExchangeName = "wedding.events"
	ExchangeKind = "topic"
)

// AMQPBus implements domain.ChangeBus over a RabbitMQ topic exchange.
// Routing keys follow "contribution.<kind>.<action>".
type AMQPBus struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// New dials url and declares the exchange.
func New(url string) (*AMQPBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}

	return &AMQPBus{conn: conn, channel: ch}, nil
}

func (b *AMQPBus) Publish(change domain.ChangeEvent) error {
	body, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}
	routingKey := fmt.Sprintf("contribution.%s.%s", change.Kind, change.Action)
	if err := b.channel.Publish(
		ExchangeName,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

func (b *AMQPBus) Close() {
	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		b.conn.Close()
	}
}

// NoopBus discards changes. Used when AMQP_URL is unset.
type NoopBus struct{}

func (NoopBus) Publish(domain.ChangeEvent) error { return nil }
