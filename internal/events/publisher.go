// Package events publishes portal events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rpggio/salesportal/internal/config"
)

// Envelope wraps every published event.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

const defaultDialTimeout = 2 * time.Second

// Publisher sends events to a durable queue. A disabled publisher drops
// events silently.
type Publisher struct {
	url     string
	queue   string
	enabled bool
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewPublisher creates a new Publisher from broker configuration.
func NewPublisher(cfg config.BrokerConfig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	return &Publisher{
		url:     cfg.URL,
		queue:   cfg.Queue,
		enabled: cfg.Enabled && cfg.URL != "",
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Enabled reports whether events are actually sent.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// NewMessage encodes payload as a persistent JSON message.
func NewMessage(eventType string, payload any, at time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encoding %s payload: %w", eventType, err)
	}
	env := Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: at.UTC(),
		Payload:    body,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encoding %s envelope: %w", eventType, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.ID,
		Type:         eventType,
		Timestamp:    env.OccurredAt,
		Body:         data,
	}, nil
}

// Publish sends one event on its own connection. Connecting is bounded by
// the dial timeout or the context deadline, whichever is sooner, so an
// unreachable broker cannot stall the caller.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) error {
	if !p.enabled {
		return nil
	}
	msg, err := NewMessage(eventType, payload, p.now())
	if err != nil {
		return err
	}

	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return fmt.Errorf("dialing broker: %w", context.DeadlineExceeded)
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return fmt.Errorf("dialing broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("opening channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring queue %s: %w", p.queue, err)
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publishing %s: %w", eventType, err)
	}
	p.logger.Debug("event published", "type", eventType, "id", msg.MessageId, "queue", p.queue)
	return nil
}
