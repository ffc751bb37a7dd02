package httpfetch

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

	"github.com/custodia-labs/intel-ingest/internal/core/domain"
)

func fastConfig(retries int) Config {
	return Config{Timeout: 2 * time.Second, Retries: retries, Backoff: time.Millisecond, Rate: 1000}
}

func TestGet_SetsUserAgentAndHeaders(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(fastConfig(0))
	body, err := f.Get(context.Background(), srv.URL, http.Header{"Accept": {"text/csv"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "text/csv", gotAccept)
}

func TestGet_ErrorStatusIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(fastConfig(3)).Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestGet_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(fastConfig(0)).Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_RetriesRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("finally"))
	}))
	defer srv.Close()

	body, err := New(fastConfig(2)).Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "finally", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(fastConfig(3)).Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_BodyOverCapIsRejected(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	cfg := fastConfig(2)
	cfg.MaxBody = 4
	body, err := New(cfg).Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Nil(t, body)
	assert.ErrorIs(t, err, domain.ErrNetwork)

	var tooLarge *BodyTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, int64(4), tooLarge.Limit)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_BodyAtCapIsKept(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("0123"))
	}))
	defer srv.Close()

	cfg := fastConfig(0)
	cfg.MaxBody = 4
	body, err := New(cfg).Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(body))
}

func TestGet_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cfg := fastConfig(0)
	cfg.Timeout = 20 * time.Millisecond
	_, err := New(cfg).Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestGet_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fastConfig(0)).Get(ctx, "http://127.0.0.1:1", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, domain.ErrNetwork))
}
