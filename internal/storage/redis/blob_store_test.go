package redis

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
)

// setupRedis starts a Redis container; the test is skipped when Docker is unavailable.
func setupRedis(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := goredis.NewClient(&goredis.Options{Addr: host + ":" + port.Port()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestKeyPrefix(t *testing.T) {
	t.Parallel()

	client := goredis.NewClient(&goredis.Options{Addr: "localhost:0"})
	defer client.Close()

	store, err := New(client, Config{KeyPrefix: "/pokeapitest/"})
	require.NoError(t, err)
	assert.Equal(t, "pokeapitest/key.json", store.Key("key.json"))

	bare, err := New(client, Config{})
	require.NoError(t, err)
	assert.Equal(t, "key.json", bare.Key("key.json"))
}

func TestNewRequiresClient(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{})
	require.Error(t, err)
}

func TestBlobStoreRoundTrip(t *testing.T) {
	client := setupRedis(t)
	store, err := New(client, Config{KeyPrefix: "pokeapitest"})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.GetObject(ctx, "key.json")
	require.ErrorIs(t, err, ingest.ErrObjectNotFound)

	uri, err := store.PutObject(ctx, "key.json", "application/json", []byte(`{"api_url":"a"}`))
	require.NoError(t, err)
	assert.Equal(t, "redis://pokeapitest/key.json", uri)

	_, err = store.PutObject(ctx, "key.json", "application/json", []byte(`{"api_url":"b"}`))
	require.NoError(t, err)

	data, err := store.GetObject(ctx, "key.json")
	require.NoError(t, err)
	assert.Equal(t, `{"api_url":"b"}`, string(data))
}
