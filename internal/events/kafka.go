package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/efreitasn/mockmaker/internal/domain"
)

// FailureObserver is notified when an event cannot be delivered.
type FailureObserver interface {
	PublishFailed(topic string)
}

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures a KafkaPublisher.
type KafkaConfig struct {
	Brokers     []string
	FillsTopic  string
	QuotesTopic string
}

// KafkaPublisher writes fills and quotes as JSON to two topics, keyed by
// symbol so each symbol's events stay ordered within a partition. Writers
// run asynchronously; delivery failures are logged and counted.
type KafkaPublisher struct {
	fills       messageWriter
	quotes      messageWriter
	fillsTopic  string
	quotesTopic string
	logger      *slog.Logger
	failures    FailureObserver
}

// NewKafkaPublisher creates a publisher for cfg. failures may be nil.
func NewKafkaPublisher(cfg KafkaConfig, logger *slog.Logger, failures FailureObserver) *KafkaPublisher {
	p := &KafkaPublisher{
		fillsTopic:  cfg.FillsTopic,
		quotesTopic: cfg.QuotesTopic,
		logger:      logger,
		failures:    failures,
	}
	p.fills = p.newWriter(cfg.Brokers, cfg.FillsTopic)
	p.quotes = p.newWriter(cfg.Brokers, cfg.QuotesTopic)
	return p
}

func (p *KafkaPublisher) newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				p.failed(topic, len(msgs), err)
			}
		},
	}
}

// PublishFill publishes f to the fills topic.
func (p *KafkaPublisher) PublishFill(ctx context.Context, f domain.FillResult) {
	p.write(ctx, p.fills, p.fillsTopic, f.Symbol, NewFillEvent(f))
}

// PublishQuote publishes q to the quotes topic.
func (p *KafkaPublisher) PublishQuote(ctx context.Context, q domain.DesiredQuote) {
	p.write(ctx, p.quotes, p.quotesTopic, q.Symbol, NewQuoteEvent(q))
}

func (p *KafkaPublisher) write(ctx context.Context, w messageWriter, topic, key string, event any) {
	value, err := json.Marshal(event)
	if err != nil {
		p.failed(topic, 1, err)
		return
	}
	if err := w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		p.failed(topic, 1, err)
	}
}

func (p *KafkaPublisher) failed(topic string, n int, err error) {
	p.logger.Error("event publish failed",
		slog.String("topic", topic),
		slog.Int("messages", n),
		slog.String("error", err.Error()),
	)
	if p.failures != nil {
		for i := 0; i < n; i++ {
			p.failures.PublishFailed(topic)
		}
	}
}

// Close flushes pending messages and closes both writers.
func (p *KafkaPublisher) Close() error {
	return errors.Join(p.fills.Close(), p.quotes.Close())
}
