package indexer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method      string
	path        string
	contentType string
	body        map[string]any
}

// recordingServer captures every request and answers with the given status.
func recordingServer(t *testing.T, status int) (*httptest.Server, func() []recordedRequest) {
	t.Helper()

	var mu sync.Mutex
	var reqs []recordedRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var body map[string]any
		if len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, &body))
		}

		mu.Lock()
		reqs = append(reqs, recordedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})
		mu.Unlock()

		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(server.Close)

	return server, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func newTestClient(url string) *Client {
	return New(Config{
		Enabled: true,
		BaseURL: url,
		Timeout: 2 * time.Second,
	})
}

func TestNewDisabled(t *testing.T) {
	assert.Nil(t, New(DefaultConfig()))
}

func TestNilClientIsNoop(t *testing.T) {
	var c *Client
	ctx := context.Background()

	assert.NoError(t, c.Index(ctx, IndexChunkUpload, "x", nil))
	c.IndexInitialize(ctx, "abc", "/data", "a.mp4", 100)
	c.IndexChunk(ctx, "abc", 0, "/data/abc/chunk_0", "a.mp4")
	c.IndexComplete(ctx, "abc", "/data", "a.mp4", 100, 1)
}

func TestIndexInitialize(t *testing.T) {
	server, requests := recordingServer(t, http.StatusCreated)
	c := newTestClient(server.URL)

	c.IndexInitialize(context.Background(), "abc123", "/data/uploads", "movie.mp4", 5242880)

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.Equal(t, "/initialize_upload/_doc/abc123", reqs[0].path)
	assert.Equal(t, "application/json", reqs[0].contentType)
	assert.Equal(t, map[string]any{
		"directory": "/data/uploads",
		"file_name": "movie.mp4",
		"file_size": float64(5242880),
	}, reqs[0].body)
}

func TestIndexChunk(t *testing.T) {
	server, requests := recordingServer(t, http.StatusOK)
	c := newTestClient(server.URL)

	c.IndexChunk(context.Background(), "abc123", 4, "/data/uploads/abc123/chunk_4", "movie.mp4")

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/chunk_upload/_doc/abc123_4", reqs[0].path)
	assert.Equal(t, map[string]any{
		"chunk_path":  "/data/uploads/abc123/chunk_4",
		"file_name":   "movie.mp4",
		"chunk_index": float64(4),
	}, reqs[0].body)
}

func TestIndexComplete(t *testing.T) {
	server, requests := recordingServer(t, http.StatusOK)
	c := newTestClient(server.URL)

	c.IndexComplete(context.Background(), "abc123", "/data/uploads", "movie.mp4", 5242880, 5)

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/complete_upload/_doc/abc123", reqs[0].path)
	assert.Equal(t, map[string]any{
		"directory":    "/data/uploads",
		"file_name":    "movie.mp4",
		"file_size":    float64(5242880),
		"total_chunks": float64(5),
	}, reqs[0].body)
}

func TestIndexPrefix(t *testing.T) {
	server, requests := recordingServer(t, http.StatusOK)
	c := New(Config{
		Enabled:     true,
		BaseURL:     server.URL + "/",
		IndexPrefix: "vingest_",
		Timeout:     2 * time.Second,
	})

	c.IndexChunk(context.Background(), "abc123", 0, "/data/abc123/chunk_0", "a.mp4")

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/vingest_chunk_upload/_doc/abc123_0", reqs[0].path)
}

func TestIndexNon2xx(t *testing.T) {
	server, _ := recordingServer(t, http.StatusServiceUnavailable)
	c := newTestClient(server.URL)

	err := c.Index(context.Background(), IndexInitializeUpload, "abc", InitializeDoc{FileName: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

// Typed methods swallow failures so the upload path never sees them.
func TestTypedMethodsSwallowFailures(t *testing.T) {
	server, requests := recordingServer(t, http.StatusInternalServerError)
	c := newTestClient(server.URL)
	ctx := context.Background()

	c.IndexInitialize(ctx, "abc", "/data", "a.mp4", 1)
	c.IndexChunk(ctx, "abc", 0, "/data/abc/chunk_0", "a.mp4")
	c.IndexComplete(ctx, "abc", "/data", "a.mp4", 1, 1)

	assert.Len(t, requests(), 3)
}

func TestTypedMethodsSwallowTransportErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	c := newTestClient(server.URL)
	c.IndexChunk(context.Background(), "abc", 0, "/data/abc/chunk_0", "a.mp4")
}

func TestDefaultSingleton(t *testing.T) {
	first := Init(Config{Enabled: true, BaseURL: "http://localhost:9200", Timeout: time.Second})
	require.NotNil(t, first)

	// Default returns the instance Init built; later Init calls cannot
	// replace it.
	assert.Same(t, first, Default())
	assert.Same(t, first, Init(Config{Enabled: true, BaseURL: "http://other:9200", Timeout: time.Second}))
	assert.Same(t, first, Default())
}
