package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("event queue is full")

const (
	queueSize    = 256
	maxBatch     = 50
	flushTick    = time.Second
	flushTimeout = 5 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher queues events in memory and writes them in batches from Run,
// so a slow broker never holds up a checkout.
type KafkaPublisher struct {
	writer    messageWriter
	queue     chan kafka.Message
	flushTick time.Duration
	log       *zap.Logger
}

func NewKafkaPublisher(topic string, log *zap.Logger, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, log, flushTick)
}

func newKafkaPublisher(w messageWriter, log *zap.Logger, tick time.Duration) *KafkaPublisher {
	return &KafkaPublisher{
		writer:    w,
		queue:     make(chan kafka.Message, queueSize),
		flushTick: tick,
		log:       log,
	}
}

func (p *KafkaPublisher) Publish(_ context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.SessionID), // keeps a shopper's events ordered
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}

	select {
	case p.queue <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run drains the queue until ctx is done, then flushes what is left and
// closes the writer.
func (p *KafkaPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.flushTick)
	defer ticker.Stop()

	batch := make([]kafka.Message, 0, maxBatch)
	for {
		select {
		case msg := <-p.queue:
			batch = append(batch, msg)
			if len(batch) >= maxBatch {
				batch = p.flush(ctx, batch)
			}
		case <-ticker.C:
			batch = p.flush(ctx, batch)
		case <-ctx.Done():
			p.shutdown(batch)
			return
		}
	}
}

func (p *KafkaPublisher) shutdown(batch []kafka.Message) {
drain:
	for {
		select {
		case msg := <-p.queue:
			batch = append(batch, msg)
		default:
			break drain
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	p.flush(ctx, batch)

	if err := p.writer.Close(); err != nil {
		p.log.Error("failed to close kafka writer", zap.Error(err))
	}
}

func (p *KafkaPublisher) flush(ctx context.Context, batch []kafka.Message) []kafka.Message {
	if len(batch) == 0 {
		return batch
	}
	if err := p.writer.WriteMessages(ctx, batch...); err != nil {
		p.log.Error("failed to publish checkout events",
			zap.Int("count", len(batch)),
			zap.Error(err),
		)
	}
	return batch[:0]
}
