//go:build integration

package producer_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"custodyprofile/internal/platform/kafka/producer"
	"custodyprofile/pkg/testutil/containers"
)

func TestProducerPublishRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	redpanda := containers.GetManager().GetRedpanda(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	const topic = "custody-profile.domain-events.test"
	p, err := producer.New(redpanda.Brokers, topic, logger)
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, p.EnsureTopic(ctx, 1, 1))
	// Creating an existing topic is not an error.
	require.NoError(t, p.EnsureTopic(ctx, 1, 1))

	err = p.Publish(ctx, "custody-profile.person.updated", []byte("A1234AA"), []byte(`{"v":1}`))
	require.NoError(t, err)

	client, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer client.Close()

	fetches := client.PollFetches(ctx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	record := records[0]
	require.Equal(t, []byte("A1234AA"), record.Key)
	require.Equal(t, []byte(`{"v":1}`), record.Value)

	var eventType string
	for _, h := range record.Headers {
		if h.Key == "eventType" {
			eventType = string(h.Value)
		}
	}
	require.Equal(t, "custody-profile.person.updated", eventType)
}
