package kafka

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// fakeReader serves queued messages, then blocks until the fetch context
// is done.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafkago.Message
	committed int
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	f.mu.Lock()
	if len(f.msgs) > 0 {
		m := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	f.committed += len(msgs)
	f.mu.Unlock()
	return nil
}

func (f *fakeReader) Close() error { return nil }

func TestConsumerGroupWorkersExitAfterCancel(t *testing.T) {
	fr := &fakeReader{msgs: []kafkago.Message{{Topic: "events", Value: []byte(`{}`)}}}
	cg := &ConsumerGroup{r: fr, cfg: ConsumerConfig{
		WorkerCount:  4,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		BackoffMin:   time.Millisecond,
		BackoffMax:   10 * time.Millisecond,
	}}

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	handler := func(ctx context.Context, ms []Message) error {
		once.Do(func() {
			close(started)
			<-release
		})
		return nil
	}

	before := runtime.NumGoroutine()
	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- cg.Run(ctx, handler) }()

	// Cancel while one worker is still inside the handler; Run returns,
	// but every worker must still be able to finish and exit.
	<-started
	cancel()
	if err := <-runErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("run returned %v, want context.Canceled", err)
	}
	close(release)

	deadline := time.Now().Add(5 * time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatalf("worker goroutines leaked: %d running, started with %d",
				runtime.NumGoroutine(), before)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBackoffDurationBounded(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoffDuration(min, max, attempt)
		if d < 0 || d > max {
			t.Fatalf("attempt %d: backoff %s outside [0, %s]", attempt, d, max)
		}
	}
}
