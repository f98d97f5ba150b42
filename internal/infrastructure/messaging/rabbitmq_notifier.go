package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"pay-router.backend/internal/domain/entities"
	"pay-router.backend/pkg/logger"
)

// DefaultExchange is the topic exchange notifications are published to.
const DefaultExchange = "pay-router.notifications"

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQNotifier publishes notifications using the kind as routing key.
type RabbitMQNotifier struct {
	conn     *amqp.Connection
	channel  publishChannel
	exchange string
}

var dialAMQP = amqp.Dial

// NewRabbitMQNotifier connects and declares the durable topic exchange.
func NewRabbitMQNotifier(amqpURL, exchange string) (*RabbitMQNotifier, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := dialAMQP(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &RabbitMQNotifier{conn: conn, channel: channel, exchange: exchange}, nil
}

func newRabbitMQNotifierWithChannel(ch publishChannel, exchange string) *RabbitMQNotifier {
	return &RabbitMQNotifier{channel: ch, exchange: exchange}
}

func (n *RabbitMQNotifier) Notify(ctx context.Context, notification entities.Notification) error {
	if notification.OccurredAt.IsZero() {
		notification.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	err = n.channel.PublishWithContext(ctx,
		n.exchange,
		string(notification.Kind),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    notification.OccurredAt,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	logger.Debug(ctx, "Published notification",
		zap.String("kind", string(notification.Kind)),
		zap.String("subject", notification.Subject),
	)
	return nil
}

// Close closes the channel and connection.
func (n *RabbitMQNotifier) Close() error {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
