package outbox

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"clinicsched/backend/internal/store"
	"clinicsched/backend/internal/telemetry"
)

const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers   string
	PollEvery time.Duration
	BatchSize int
}

// Publisher relays committed outbox rows to Kafka. Each event goes to the topic named by its
// type, keyed by aggregate id so every change to one appointment lands on one partition.
type Publisher struct {
	repo      store.OutboxRepository
	log       *slog.Logger
	brokers   []string
	pollEvery time.Duration
	batchSize int
	newWriter func(brokers []string) MessageWriter
}

func NewPublisher(repo store.OutboxRepository, log *slog.Logger, cfg Config) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		repo:      repo,
		log:       log.With(slog.String("component", "outbox.publisher")),
		brokers:   SplitBrokers(cfg.Brokers),
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
		newWriter: func(brokers []string) MessageWriter {
			return &kafka.Writer{
				Addr:                   kafka.TCP(brokers...),
				Balancer:               &kafka.Hash{},
				AllowAutoTopicCreation: true,
			}
		},
	}
}

func (p *Publisher) Enabled() bool {
	return len(p.brokers) > 0
}

// Run polls until ctx is done.
func (p *Publisher) Run(ctx context.Context) {
	if !p.Enabled() {
		p.log.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}

	writer := p.newWriter(p.brokers)
	defer func() {
		if err := writer.Close(); err != nil {
			p.log.Warn("kafka writer close failed", slog.Any("err", err))
		}
	}()

	p.log.Info("outbox publisher started", slog.Any("brokers", p.brokers), slog.Duration("poll_every", p.pollEvery))

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PublishBatch(ctx, writer)
			if err != nil {
				p.log.Error("outbox publish failed", slog.Int("published", n), slog.Any("err", err))
				continue
			}
			if n > 0 {
				p.log.Debug("outbox published", slog.Int("published", n))
			}
		}
	}
}

// PublishBatch sends one batch. Events written before a failure are still marked published.
func (p *Publisher) PublishBatch(ctx context.Context, writer MessageWriter) (int, error) {
	return p.repo.ClaimPending(ctx, p.batchSize, func(ctx context.Context, events []store.OutboxEvent) ([]uuid.UUID, error) {
		sent := make([]uuid.UUID, 0, len(events))
		for _, ev := range events {
			if err := writer.WriteMessages(ctx, message(ctx, ev)); err != nil {
				return sent, err
			}
			sent = append(sent, ev.ID)
		}
		return sent, nil
	})
}

func message(ctx context.Context, ev store.OutboxEvent) kafka.Message {
	msgCtx := telemetry.ContextWithTraceContext(ctx, ev.Traceparent, ev.Tracestate)
	msg := kafka.Message{
		Topic: ev.EventType,
		Key:   []byte(ev.AggregateID.String()),
		Value: ev.Payload,
		Time:  ev.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(ev.ID.String())},
			{Key: HeaderEventType, Value: []byte(ev.EventType)},
		},
	}
	msg.Headers = InjectTraceHeaders(msgCtx, msg.Headers)
	return msg
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
