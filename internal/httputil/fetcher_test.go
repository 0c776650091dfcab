package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-scout/pkg/types"
)

func TestFetch_ReturnsBodyAndSetsUserAgent(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("<html>ok</html>"))
	}))
	defer ts.Close()

	f := NewFetcherWithClient(ts.Client(), types.CrawlConfig{
		HTTPConfig: types.HTTPConfig{UserAgent: "test-agent/1.0"},
	})

	body, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(body))
	assert.Equal(t, "test-agent/1.0", gotUA)
}

func TestFetch_DefaultUserAgent(t *testing.T) {
	var gotUA string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer ts.Close()

	f := NewFetcherWithClient(ts.Client(), types.CrawlConfig{})
	_, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, defaultUserAgent, gotUA)
}

func TestFetch_NonOKIsFetchError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.NotFound(w, nil)
	}))
	defer ts.Close()

	f := NewFetcherWithClient(ts.Client(), types.CrawlConfig{})
	_, err := f.Fetch(context.Background(), ts.URL+"/missing")
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Equal(t, ts.URL+"/missing", fe.URL)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestFetch_TransportErrorIsFetchError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := ts.URL
	ts.Close()

	f := NewFetcherWithClient(&http.Client{}, types.CrawlConfig{})
	_, err := f.Fetch(context.Background(), url)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
	assert.NotNil(t, fe.Err)
}

func TestFetch_TimeoutIsBounded(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer ts.Close()
	defer close(release)

	client := ts.Client()
	client.Timeout = 50 * time.Millisecond
	f := NewFetcherWithClient(client, types.CrawlConfig{})

	start := time.Now()
	_, err := f.Fetch(context.Background(), ts.URL)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewFetcher_ZeroTimeoutFallsBack(t *testing.T) {
	f := NewFetcher(types.CrawlConfig{})
	assert.Equal(t, defaultTimeout, f.client.Timeout)
}

func TestFetch_OversizedBodyIsFetchError(t *testing.T) {
	orig := maxBodyBytes
	maxBodyBytes = 16
	t.Cleanup(func() { maxBodyBytes = orig })

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/exact":
			w.Write([]byte("0123456789abcdef"))
		default:
			w.Write([]byte("0123456789abcdefX"))
		}
	}))
	defer ts.Close()

	f := NewFetcherWithClient(ts.Client(), types.CrawlConfig{})

	body, err := f.Fetch(context.Background(), ts.URL+"/exact")
	require.NoError(t, err)
	assert.Len(t, body, 16)

	_, err = f.Fetch(context.Background(), ts.URL+"/big")
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
	assert.Contains(t, fe.Error(), "exceeds 16 bytes")
}

func TestFetch_ZeroMaxRetriesUsesDefault(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= defaultMaxRetries {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	f := NewFetcherWithClient(ts.Client(), types.CrawlConfig{MaxRetries: 0})
	body, err := f.Fetch(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(defaultMaxRetries+1), calls.Load())
}
