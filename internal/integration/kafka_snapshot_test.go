//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/flood-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"github.com/couchcryptid/flood-risk-service/internal/pipeline"
	"github.com/couchcryptid/flood-risk-service/internal/synthetic"
)

const testSnapshotTopic = "test-ward-snapshots"

type cityLayers struct {
	ds domain.Dataset
}

func (c cityLayers) LoadLayers(_ context.Context) (domain.Dataset, error) {
	return c.ds, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("flood-risk-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cconn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cconn.Close()

	require.NoError(t, cconn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestSnapshotPublishedToKafka builds a snapshot from a synthetic city and
// verifies that every ward arrives on the snapshot topic keyed by its code.
func TestSnapshotPublishedToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSnapshotTopic)

	cfg := &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSnapshotTopic: testSnapshotTopic,
	}
	publisher := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	ds, err := synthetic.City(synthetic.Options{Seed: 9, Rows: 2, Cols: 2})
	require.NoError(t, err)
	metrics := observability.NewMetricsForTesting()
	svc := pipeline.New(cityLayers{ds: ds}, nil, pipeline.Options{Publisher: publisher}, discardLogger(), metrics)

	snap, err := svc.Refresh(ctx)
	require.NoError(t, err)
	svc.WaitForPublish()

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSnapshotTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	levels := make(map[string]string)
	for range snap.Wards {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from snapshot topic")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		_, err = time.Parse(time.RFC3339, headers["computed_at"])
		require.NoError(t, err, "computed_at should be valid RFC3339")
		levels[string(msg.Key)] = headers["resilience_level"]
	}

	require.Len(t, levels, len(snap.Wards))
	for _, w := range snap.Wards {
		assert.Equal(t, w.ResilienceLevel, levels[strconv.Itoa(w.Code)], w.Name)
	}
}
