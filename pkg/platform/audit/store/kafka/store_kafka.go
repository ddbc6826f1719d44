// Package kafka produces audit events to a Kafka topic. It is a write-only
// sink: consumers downstream own querying and retention.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "reunite/pkg/platform/audit"
)

type eventRecord struct {
	Timestamp time.Time         `json:"timestamp"`
	CaseID    string            `json:"case_id"`
	Action    string            `json:"action"`
	ActorID   string            `json:"actor_id,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// Store produces audit events to a topic, keyed by case ID so per-case
// ordering is preserved within a partition.
type Store struct {
	client *kgo.Client
	topic  string
}

// New connects to the brokers and ensures the audit topic exists.
func New(ctx context.Context, brokers []string, topic string) (*Store, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Store{client: client, topic: topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	topics, err := adm.ListTopics(ctx)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if topics.Has(topic) {
		return nil
	}
	if _, err := adm.CreateTopic(ctx, 3, 1, nil, topic); err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	return nil
}

// Append produces the event and waits for broker acknowledgement.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(eventRecord{
		Timestamp: event.Timestamp,
		CaseID:    event.CaseID.String(),
		Action:    event.Action,
		ActorID:   event.ActorID,
		RequestID: event.RequestID,
		Detail:    event.Detail,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.CaseID.String()),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// ListByCase is unsupported on the Kafka sink; reads happen downstream.
func (s *Store) ListByCase(context.Context, uuid.UUID) ([]audit.Event, error) {
	return nil, fmt.Errorf("kafka audit store is write-only")
}

// Close flushes buffered records and releases the client.
func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Flush(ctx)
	s.client.Close()
}
