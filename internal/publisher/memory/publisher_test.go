package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "runs", ingest.RunSummary{RunID: "run-1"})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id1)

	id2, err := pub.Publish(context.Background(), "audit", "payload")
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "runs", msgs[0].Topic)
	assert.Equal(t, ingest.RunSummary{RunID: "run-1"}, msgs[0].Payload)

	msgs[0].Topic = "modified"
	assert.Equal(t, "runs", pub.Messages()[0].Topic, "Messages must return a copy")
}

func TestPublisherRequiresTopic(t *testing.T) {
	t.Parallel()

	_, err := New().Publish(context.Background(), "", nil)
	assert.Error(t, err)
	assert.Empty(t, New().Messages())
}
