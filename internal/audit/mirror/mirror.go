// Package mirror publishes persisted audit events to a Kafka topic so
// downstream consumers (SIEM ingestion, replication to cold storage) can
// follow the ledger without reading the database. Publication is
// best-effort: the database row is the source of truth and a failed
// publish never unwinds a persisted event.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fsuels/auditledger/internal/audit"
	"github.com/fsuels/auditledger/internal/platform/kafka/producer"
)

type Kafka struct {
	producer *producer.Producer
	topic    string
}

// NewKafka creates the topic if needed and returns a publisher for it.
func NewKafka(ctx context.Context, p *producer.Producer, topic string) (*Kafka, error) {
	if err := p.EnsureTopic(ctx, topic); err != nil {
		return nil, fmt.Errorf("ensure mirror topic %q: %w", topic, err)
	}
	return &Kafka{producer: p, topic: topic}, nil
}

// Publish emits the event keyed by entity so per-entity ordering is
// preserved across partitions.
func (k *Kafka) Publish(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	if err := k.producer.Produce(ctx, k.topic, []byte(event.Source.EntityID), value); err != nil {
		return fmt.Errorf("publish event %s: %w", event.ID, err)
	}
	return nil
}
