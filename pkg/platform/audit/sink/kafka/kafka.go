// Package kafka ships audit events to a Kafka topic for downstream SIEM and
// retention pipelines. It satisfies the audit.Store interface so the worker
// can tee events to both the database and the broker.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	id "larch/pkg/domain"
	audit "larch/pkg/platform/audit"
)

const defaultTopic = "larch.audit"

// Sink produces one record per audit event, keyed by application id so a
// single application's trail stays ordered within a partition.
type Sink struct {
	client *kgo.Client
	topic  string
}

// New connects to the given brokers. Topic falls back to larch.audit.
func New(brokers []string, topic string) (*Sink, error) {
	if topic == "" {
		topic = defaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &Sink{client: client, topic: topic}, nil
}

type record struct {
	Name          string         `json:"name"`
	Category      string         `json:"category"`
	OccurredAt    string         `json:"occurred_at"`
	ApplicationID string         `json:"application_id"`
	ActorID       string         `json:"actor_id,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	rec := record{
		Name:          string(event.Name),
		Category:      string(event.Category),
		OccurredAt:    event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		ApplicationID: event.ApplicationID.String(),
		Data:          event.Data,
	}
	if !event.ActorID.IsNil() {
		rec.ActorID = event.ActorID.String()
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	res := s.client.ProduceSync(ctx, &kgo.Record{
		Topic: s.topic,
		Key:   []byte(rec.ApplicationID),
		Value: value,
	})
	if err := res.FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

// ListByApplication is not supported by the broker sink; reads go to the
// database store.
func (s *Sink) ListByApplication(context.Context, id.ApplicationID) ([]audit.Event, error) {
	return nil, fmt.Errorf("kafka sink is write-only")
}

func (s *Sink) Close() {
	s.client.Close()
}
