package _rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// PublishConfig holds configuration for publishing messages
type PublishConfig struct {
	Exchange     string
	RoutingKey   string
	Mandatory    bool
	Immediate    bool
	ContentType  string
	DeliveryMode uint8 // 1 = non-persistent, 2 = persistent
	Priority     uint8
	Expiration   string // expiration time in milliseconds as string
}

// DefaultPublishConfig returns default publish configuration
func DefaultPublishConfig() PublishConfig {
	return PublishConfig{
		Exchange:     "",
		RoutingKey:   "",
		Mandatory:    false,
		Immediate:    false,
		ContentType:  "application/json",
		DeliveryMode: 1, // non-persistent: these are best-effort diagnostics, not ledger entries
		Priority:     0,
		Expiration:   "",
	}
}

// Producer handles publishing messages to RabbitMQ
type Producer struct {
	conn *Connection
}

// NewProducer creates a new RabbitMQ producer
func NewProducer(conn *Connection) *Producer {
	return &Producer{
		conn: conn,
	}
}

// PublishResult contains information about the published message
type PublishResult struct {
	MessageID  string
	Exchange   string
	RoutingKey string
	Timestamp  time.Time
}

// Publish publishes a message to RabbitMQ with auto-generated message ID.
// This is fire-and-forget: it does not wait for a broker confirmation.
func (p *Producer) Publish(ctx context.Context, body []byte, config PublishConfig) (*PublishResult, error) {
	return p.PublishWithID(ctx, body, config, uuid.New().String())
}

// PublishWithID publishes a message to RabbitMQ with a custom message ID.
func (p *Producer) PublishWithID(_ context.Context, body []byte, config PublishConfig, messageID string) (*PublishResult, error) {
	if !p.conn.IsConnected() {
		return nil, fmt.Errorf("not connected to RabbitMQ")
	}

	channel, err := p.conn.GetChannel()
	if err != nil {
		return nil, err
	}

	timestamp := time.Now()

	msg := amqp.Publishing{
		Headers: amqp.Table{
			"message_id": messageID,
			"timestamp":  timestamp.UnixNano(),
		},
		ContentType:   config.ContentType,
		DeliveryMode:  config.DeliveryMode,
		Priority:      config.Priority,
		CorrelationId: messageID,
		Expiration:    config.Expiration,
		MessageId:     messageID,
		Timestamp:     timestamp,
		Body:          body,
	}

	if err := channel.Publish(
		config.Exchange,
		config.RoutingKey,
		config.Mandatory,
		config.Immediate,
		msg,
	); err != nil {
		return nil, fmt.Errorf("failed to publish message: %w", err)
	}

	return &PublishResult{
		MessageID:  messageID,
		Exchange:   config.Exchange,
		RoutingKey: config.RoutingKey,
		Timestamp:  timestamp,
	}, nil
}
