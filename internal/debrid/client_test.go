package debrid

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-app/riptide/internal/testutil"
)

func newTestClient(baseURL string) *Client {
	return New(Config{APIKey: "key", BaseURL: baseURL}, testutil.NopLogger())
}

func TestEnabled(t *testing.T) {
	assert.True(t, newTestClient("http://example").Enabled())
	assert.False(t, New(Config{}, testutil.NopLogger()).Enabled())
}

func TestCheckCached(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Write([]byte(`{
			"aaa111": {"rd": [{"1": {"filename": "x.mkv"}}]},
			"bbb222": []
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	cached, err := client.CheckCached(context.Background(), []string{"AAA111", "bbb222", "ccc333"})
	require.NoError(t, err)

	assert.True(t, cached["AAA111"], "hash lookup should be case-insensitive")
	assert.False(t, cached["bbb222"], "empty-array hash is not cached")
	assert.False(t, cached["ccc333"], "unknown hash is not cached")
}

func TestCheckCachedEmptyInput(t *testing.T) {
	client := newTestClient("http://unreachable.invalid")
	cached, err := client.CheckCached(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, cached)
}

func TestResolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "magnet:?xt=abc", r.PostForm.Get("link"))
		w.Write([]byte(`{"download": "https://cdn.example/file.mkv", "filename": "file.mkv", "filesize": 1234}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resolved, err := client.Resolve(context.Background(), "src-1", "magnet:?xt=abc")
	require.NoError(t, err)

	assert.Equal(t, "src-1", resolved.SourceID)
	assert.Equal(t, "https://cdn.example/file.mkv", resolved.URL)
	assert.Equal(t, "file.mkv", resolved.Filename)
	assert.Equal(t, int64(1234), resolved.SizeBytes)
	assert.False(t, resolved.ExpiresAt.IsZero())
}

func TestResolveNotCached(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"download": ""}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Resolve(context.Background(), "src-1", "link")
	assert.True(t, errors.Is(err, ErrNotCached), "err = %v", err)
}

func TestRetryOnTransientFailure(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"download": "https://cdn.example/ok.mkv"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resolved, err := client.Resolve(context.Background(), "src-1", "link")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/ok.mkv", resolved.URL)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestNoRetryOnClientError(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Resolve(context.Background(), "src-1", "link")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts), "no retries on a 4xx")
}
