package gcs

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
)

// newTestBlobStore creates a BlobStore pointed at a test server.
func newTestBlobStore(t *testing.T, handler http.Handler) *BlobStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(
		context.Background(),
		option.WithEndpoint(server.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, Config{Bucket: "test-bucket"})
	require.NoError(t, err)
	return store
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer client.Close()

	_, err = New(client, Config{})
	require.Error(t, err)
}

func TestPutObjectUploadsJSON(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/upload/storage/v1/b/test-bucket/o")

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Contains(t, string(body), `{"api_url":"https://example.com"}`)
		assert.Contains(t, string(body), "application/json")

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"key.json","bucket":"test-bucket"}`)
	})
	store := newTestBlobStore(t, handler)

	uri, err := store.PutObject(
		context.Background(),
		"key.json",
		"application/json",
		[]byte(`{"api_url":"https://example.com"}`),
	)
	require.NoError(t, err)
	assert.Equal(t, "gs://test-bucket/key.json", uri)
}

func TestPutObjectServerError(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	store := newTestBlobStore(t, handler)

	_, err := store.PutObject(context.Background(), "key.json", "application/json", []byte("{}"))
	require.Error(t, err)
}

func TestGetObjectReadsBody(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.True(t, strings.Contains(r.URL.Path, "key.json"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"api_url":"https://example.com/next"}`)
	})
	store := newTestBlobStore(t, handler)

	data, err := store.GetObject(context.Background(), "key.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"api_url":"https://example.com/next"}`, string(data))
}

func TestGetObjectMissingMapsToNotFound(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "No such object", http.StatusNotFound)
	})
	store := newTestBlobStore(t, handler)

	_, err := store.GetObject(context.Background(), "key.json")
	require.ErrorIs(t, err, ingest.ErrObjectNotFound)
}

func TestGetObjectOtherErrorIsNotNotFound(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	})
	store := newTestBlobStore(t, handler)

	_, err := store.GetObject(context.Background(), "key.json")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ingest.ErrObjectNotFound)
}
