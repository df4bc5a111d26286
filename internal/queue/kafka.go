package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

// KafkaProducer publishes messages via segmentio/kafka-go, sending in
// groups of at most 10 per API call.
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer constructs a KafkaProducer for the given brokers.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaProducer) Send(ctx context.Context, topic string, msgs ...Message) error {
	for _, group := range chunkMessages(msgs) {
		kmsgs := make([]kafka.Message, len(group))
		for i, m := range group {
			kmsgs[i] = kafka.Message{Topic: topic, Key: []byte(m.Key), Value: m.Value}
		}
		if err := p.writer.WriteMessages(ctx, kmsgs...); err != nil {
			return fmt.Errorf("queue: kafka send: %w", err)
		}
	}
	return nil
}

func (p *KafkaProducer) Close() error { return p.writer.Close() }

// KafkaConsumer runs a bounded worker pool over messages read from one
// topic, committing each message only after its handler succeeds or its
// retries are exhausted.
type KafkaConsumer struct {
	reader      *kafka.Reader
	workerCount int
	dedupe      DedupeStore
	maxAttempts int
}

// KafkaConsumerConfig configures a KafkaConsumer.
type KafkaConsumerConfig struct {
	Brokers     []string
	GroupID     string
	Topic       string
	WorkerCount int
	Dedupe      DedupeStore // optional
	MaxAttempts int         // default 3
}

// NewKafkaConsumer constructs a KafkaConsumer.
func NewKafkaConsumer(cfg KafkaConsumerConfig) *KafkaConsumer {
	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = 4
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    cfg.Topic,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		workerCount: workers,
		dedupe:      cfg.Dedupe,
		maxAttempts: attempts,
	}
}

// Run starts the worker pool and blocks until ctx is canceled or the reader
// fails permanently.
func (c *KafkaConsumer) Run(ctx context.Context, handler Handler) error {
	jobs := make(chan kafka.Message, c.workerCount*4)

	var wg sync.WaitGroup
	wg.Add(c.workerCount)
	for i := 0; i < c.workerCount; i++ {
		go func() {
			defer wg.Done()
			for msg := range jobs {
				c.process(ctx, handler, msg)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for {
			if ctx.Err() != nil {
				return
			}
			m, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				t := time.NewTimer(500 * time.Millisecond)
				select {
				case <-t.C:
				case <-ctx.Done():
					t.Stop()
					return
				}
				continue
			}
			select {
			case jobs <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	return ctx.Err()
}

func (c *KafkaConsumer) process(ctx context.Context, handler Handler, msg kafka.Message) {
	key := string(msg.Key)
	if c.dedupe != nil {
		seen, err := c.dedupe.SeenRecently(ctx, key)
		if err == nil && seen {
			_ = c.reader.CommitMessages(ctx, msg)
			return
		}
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := handler(ctx, Message{Key: key, Value: msg.Value})
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		if attempt < c.maxAttempts && ctx.Err() == nil {
			backoff := time.Duration(200*(1<<uint(attempt-1))) * time.Millisecond
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
			sleepCtx, cancel := context.WithTimeout(ctx, backoff)
			<-sleepCtx.Done()
			cancel()
		}
	}
	_ = lastErr // surfaced to caller via handler's own error logging/metrics

	_ = c.reader.CommitMessages(ctx, msg)
}

func (c *KafkaConsumer) Close() error { return c.reader.Close() }
