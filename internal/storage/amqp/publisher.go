// Package amqp publishes reconciled values to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp091 "github.com/rabbitmq/amqp091-go"

	"shadowScope/internal/model"
)

const (
	DefaultExchange = "shadowscope"

	RoutingMetrics = "metrics.snapshot"
	RoutingEvent   = "events.network"
	RoutingBridge  = "bridge.deposit"
)

// Channel is the part of *amqp091.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type Publisher struct {
	conn      *amqp091.Connection
	ch        Channel
	exchange  string
	sessionID string
}

// Dial connects, opens a channel and declares a durable topic exchange.
func Dial(url, exchange, sessionID string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange, sessionID: sessionID}, nil
}

// NewPublisher wraps an already opened channel.
func NewPublisher(ch Channel, exchange, sessionID string) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Publisher{ch: ch, exchange: exchange, sessionID: sessionID}
}

func (p *Publisher) Close() error {
	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (p *Publisher) PutMetricsSnapshot(ctx context.Context, snap model.MetricsSnapshot) error {
	return p.publish(ctx, RoutingMetrics, snap)
}

func (p *Publisher) PutEvents(ctx context.Context, events []model.NetworkEvent) error {
	for _, ev := range events {
		if err := p.publish(ctx, RoutingEvent, ev); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) PutBridgeDeposit(ctx context.Context, dep model.BridgeDeposit) error {
	return p.publish(ctx, RoutingBridge, dep)
}

func (p *Publisher) publish(ctx context.Context, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		AppId:        "shadowscope",
		Headers:      amqp091.Table{"session_id": p.sessionID},
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}
