// Package kafka is a small kit to publish engine events to Kafka and run
// worker pools consuming a topic in batches.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Time      time.Time
}

type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchBytes   int64
	BatchTimeout time.Duration
}

type Producer struct {
	w *kafkago.Writer
}

func NewProducer(cfg ProducerConfig) *Producer {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchBytes == 0 {
		cfg.BatchBytes = 1 << 20
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	wr := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Balancer:               &kafkago.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchBytes:             cfg.BatchBytes,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafkago.RequireNone,
		Async:                  true,
	}
	return &Producer{w: wr}
}

func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if p == nil || p.w == nil {
		return errors.New("producer not initialized")
	}
	return p.w.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   key,
		Value: value,
		Time:  time.Now(),
	})
}

func (p *Producer) PublishJSON(ctx context.Context, topic, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Publish(ctx, topic, []byte(key), b)
}

func (p *Producer) Close() error {
	if p == nil || p.w == nil {
		return nil
	}
	return p.w.Close()
}

type ConsumerConfig struct {
	Brokers      []string
	GroupID      string
	Topic        string
	WorkerCount  int
	MaxRetries   int
	BackoffMin   time.Duration
	BackoffMax   time.Duration
	BatchSize    int
	BatchTimeout time.Duration
}

// messageReader is the surface of kafkago.Reader the consumer group uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type ConsumerGroup struct {
	r   messageReader
	cfg ConsumerConfig
}

func NewConsumerGroup(cfg ConsumerConfig) *ConsumerGroup {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.BackoffMin == 0 {
		cfg.BackoffMin = 100 * time.Millisecond
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = 10 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 200 * time.Millisecond
	}

	rd := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafkago.FirstOffset,
		MaxWait:     500 * time.Millisecond,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	})

	return &ConsumerGroup{r: rd, cfg: cfg}
}

func (cg *ConsumerGroup) Close() error {
	if cg == nil || cg.r == nil {
		return nil
	}
	return cg.r.Close()
}

// Run fetches messages, groups them into batches, and feeds a worker pool.
// A handler error is retried with exponential backoff up to MaxRetries;
// after that the batch is committed and dropped.
func (cg *ConsumerGroup) Run(ctx context.Context, handler func(context.Context, []Message) error) error {
	if cg == nil || cg.r == nil {
		return errors.New("consumer not initialized")
	}

	batches := make(chan []kafkago.Message, cg.cfg.WorkerCount)

	go func() {
		defer close(batches)
		var buf []kafkago.Message
		deadline := time.Now().Add(cg.cfg.BatchTimeout)
		for {
			fetchCtx, cancel := context.WithDeadline(ctx, deadline)
			m, err := cg.r.FetchMessage(fetchCtx)
			cancel()

			if err == nil {
				buf = append(buf, m)
			} else if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return
			}

			if len(buf) >= cg.cfg.BatchSize || (len(buf) > 0 && time.Now().After(deadline)) {
				select {
				case batches <- buf:
					buf = nil
				case <-ctx.Done():
					return
				}
			}
			if time.Now().After(deadline) {
				deadline = time.Now().Add(cg.cfg.BatchTimeout)
			}
		}
	}()

	// Buffered so workers can exit even after Run has returned on ctx
	// cancellation.
	done := make(chan struct{}, cg.cfg.WorkerCount)
	for i := 0; i < cg.cfg.WorkerCount; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for ms := range batches {
				wrapped := make([]Message, len(ms))
				for i, m := range ms {
					wrapped[i] = Message{
						Topic:     m.Topic,
						Partition: m.Partition,
						Offset:    m.Offset,
						Key:       m.Key,
						Value:     m.Value,
						Time:      m.Time,
					}
				}

				for attempt := 0; ; attempt++ {
					err := handler(ctx, wrapped)
					if err == nil || attempt >= cg.cfg.MaxRetries {
						_ = cg.r.CommitMessages(ctx, ms...)
						break
					}
					select {
					case <-time.After(backoffDuration(cg.cfg.BackoffMin, cg.cfg.BackoffMax, attempt+1)):
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	var exited int
	for {
		select {
		case <-done:
			exited++
			if exited == cg.cfg.WorkerCount {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func backoffDuration(min, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(min) * math.Pow(2, float64(attempt-1)))
	if d > max {
		d = max
	}
	if d > 0 {
		d = time.Duration(rand.Int63n(int64(d)))
	}
	return d
}
