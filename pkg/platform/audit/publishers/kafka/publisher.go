// Package kafka forwards audit events to a Kafka topic for downstream
// compliance and SIEM consumers. The sink is best-effort: publish failures
// are logged by the caller and never fail the emitting operation.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "valid8/pkg/platform/audit"
)

// Sink publishes audit events to Kafka via franz-go.
type Sink struct {
	client *kgo.Client
	topic  string
}

// wireEvent is the JSON layout published to the topic.
type wireEvent struct {
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	Subject   string    `json:"subject,omitempty"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// New connects to the given brokers (comma-separated) and targets topic.
func New(brokers, topic string) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(strings.Split(brokers, ",")...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Sink{client: client, topic: topic}, nil
}

// Publish produces one event, keyed by user ID so per-user ordering holds
// within a partition.
func (s *Sink) Publish(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(wireEvent{
		Category:  string(event.Category),
		Timestamp: event.Timestamp,
		UserID:    event.UserID.String(),
		Subject:   event.Subject,
		Action:    event.Action,
		Reason:    event.Reason,
		Provider:  event.Provider,
		RequestID: event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.UserID.String()),
		Value: payload,
	}
	return s.client.ProduceSync(ctx, record).FirstErr()
}

// Close flushes outstanding records and releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
