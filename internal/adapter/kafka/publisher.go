package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flood-risk-service/internal/adapter/geojson"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

const (
	maxAttempts    = 4
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces ward snapshots to a Kafka topic, one message per ward.
// It implements pipeline.SnapshotPublisher.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured snapshot topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSnapshotTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishSnapshot serializes every ward of the snapshot and writes them in a
// single batch, retrying with exponential backoff.
func (p *Publisher) PublishSnapshot(ctx context.Context, snap *domain.Snapshot) error {
	if len(snap.Wards) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snap.Wards))
	for i := range snap.Wards {
		msg, err := serializeToMessage(snap.Wards[i], snap)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		err := p.writer.WriteMessages(ctx, msgs...)
		if err == nil {
			p.logger.Info("snapshot published", "wards", len(msgs), "fingerprint", snap.Fingerprint)
			return nil
		}
		if attempt == maxAttempts || ctx.Err() != nil {
			return fmt.Errorf("publish snapshot after %d attempts: %w", attempt, err)
		}
		p.logger.Warn("publish snapshot failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if !retry.SleepWithContext(ctx, backoff) {
			return fmt.Errorf("publish snapshot: %w", ctx.Err())
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage encodes a scored ward as a GeoJSON feature keyed by ward code.
func serializeToMessage(w domain.Ward, snap *domain.Snapshot) (kafkago.Message, error) {
	computedAt := snap.ComputedAt.UTC().Format(time.RFC3339)

	f := geojson.WardFeature(w)
	f.Properties["computed_at"] = computedAt
	f.Properties["fingerprint"] = snap.Fingerprint
	data, err := f.MarshalJSON()
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize ward %d: %w", w.Code, err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.Itoa(w.Code)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "resilience_level", Value: []byte(w.ResilienceLevel)},
			{Key: "computed_at", Value: []byte(computedAt)},
		},
	}, nil
}
