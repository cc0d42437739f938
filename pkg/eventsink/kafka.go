package eventsink

import (
	"context"

	"github.com/papertrade/engine/pkg/kafka"
)

// KafkaSink publishes events keyed by symbol so per-instrument ordering
// survives partitioning.
type KafkaSink struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaSink(producer *kafka.Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Emit(ctx context.Context, ev Event) error {
	return s.producer.PublishJSON(ctx, s.topic, ev.Order.Symbol, ev)
}
