// Package source adapts external change notifications into pipeline
// invocations. The interface is deliberately generic: any database
// change stream or message queue that can emit "entity changed" payloads
// can feed it; this file wires the Kafka flavor.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fsuels/auditledger/internal/audit"
	"github.com/fsuels/auditledger/internal/audit/writer"
	"github.com/fsuels/auditledger/internal/platform/kafka/consumer"
)

// Recorder is the pipeline entry point the source drives.
type Recorder interface {
	Record(ctx context.Context, m audit.Mutation) writer.Outcome
}

// KafkaSource consumes mutation messages and records them. Offsets are
// always committed: a mutation that cannot be recorded dead-letters
// inside the pipeline, and a mutation that cannot be parsed gains
// nothing from redelivery.
type KafkaSource struct {
	consumer *consumer.Consumer
	recorder Recorder
	logger   *slog.Logger
}

func NewKafkaSource(c *consumer.Consumer, recorder Recorder, logger *slog.Logger) *KafkaSource {
	return &KafkaSource{consumer: c, recorder: recorder, logger: logger}
}

// Run consumes until the context is cancelled.
func (s *KafkaSource) Run(ctx context.Context) error {
	return s.consumer.Run(ctx, s.handle)
}

func (s *KafkaSource) handle(ctx context.Context, msg consumer.Message) error {
	var m audit.Mutation
	if err := json.Unmarshal(msg.Value, &m); err != nil {
		return fmt.Errorf("decode mutation message: %w", err)
	}
	if m.Collection == "" || m.EntityID == "" || m.Type == "" {
		return fmt.Errorf("mutation message missing collection/entityId/type")
	}

	outcome := s.recorder.Record(ctx, m)
	if outcome.State == writer.StateDeadLettered {
		s.logger.WarnContext(ctx, "mutation dead-lettered from kafka source",
			"collection", m.Collection,
			"entity_id", m.EntityID,
		)
	}
	return nil
}
