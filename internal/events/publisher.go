// Package events publishes account lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/sbilibin2017/linkbio-auth/internal/logger"
)

//go:generate mockgen -source=publisher.go -destination=mock_publisher.go -package=events

// Event types.
const (
	UserRegistered     = "user.registered"
	UserLoggedIn       = "user.logged_in"
	UserLoggedOut      = "user.logged_out"
	UserExternalLinked = "user.external_linked"
)

// Event is the JSON payload written to the topic. It never carries credentials.
type Event struct {
	EventID   string    `json:"event_id"`
	Type      string    `json:"type"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes account events, keyed by user id.
type Publisher struct {
	writer KafkaWriter
	now    func() time.Time
}

// NewPublisher creates a Publisher. A nil writer turns publishing into a logged no-op.
func NewPublisher(writer KafkaWriter) *Publisher {
	return &Publisher{writer: writer, now: time.Now}
}

// NewKafkaWriter builds a kafka-go writer for the given brokers and topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

// Publish sends an event. Failures are logged and never returned: account
// operations must not fail because the event bus is down.
func (p *Publisher) Publish(ctx context.Context, eventType string, userID uuid.UUID, username, provider string) {
	if p == nil || p.writer == nil {
		logger.Log.Debugw("Kafka writer not configured, skipping publishing", "type", eventType, "user_id", userID)
		return
	}

	ev := Event{
		EventID:   uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Username:  username,
		Provider:  provider,
		Timestamp: p.now().UTC(),
	}

	data, err := json.Marshal(ev)
	if err != nil {
		logger.Log.Errorw("Failed to marshal account event", "event_id", ev.EventID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(userID.String()),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("Failed to publish account event", "event_id", ev.EventID, "type", eventType, "error", err)
		return
	}
	logger.Log.Infow("Account event published", "event_id", ev.EventID, "type", eventType, "user_id", userID)
}

// Close closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
