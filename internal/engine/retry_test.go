package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var fastRetry = RetryConfig{
	MaxRetries:  2,
	InitialWait: time.Millisecond,
	MaxWait:     5 * time.Millisecond,
	Multiplier:  2.0,
}

func TestRetryDo(t *testing.T) {
	ctx := context.Background()

	t.Run("success first try", func(t *testing.T) {
		calls := 0
		got, err := RetryDo(ctx, fastRetry, func() (string, error) {
			calls++
			return "ok", nil
		})
		if err != nil || got != "ok" {
			t.Fatalf("got %q, %v", got, err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("non-retryable stops immediately", func(t *testing.T) {
		calls := 0
		_, err := RetryDo(ctx, fastRetry, func() (string, error) {
			calls++
			return "", errors.New("parse failure")
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1 for non-retryable error", calls)
		}
	})

	t.Run("retryable error exhausts retries", func(t *testing.T) {
		calls := 0
		_, err := RetryDo(ctx, fastRetry, func() (string, error) {
			calls++
			return "", &httpStatusError{StatusCode: 503}
		})
		if err == nil {
			t.Fatal("expected error after exhaustion")
		}
		if calls != fastRetry.MaxRetries+1 {
			t.Errorf("calls = %d, want %d", calls, fastRetry.MaxRetries+1)
		}
	})

	t.Run("canceled context returns immediately", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := RetryDo(cctx, fastRetry, func() (string, error) {
			return "", &httpStatusError{StatusCode: 503}
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestRetryHTTP(t *testing.T) {
	ctx := context.Background()

	t.Run("retries 503 then succeeds", func(t *testing.T) {
		var hits int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			if hits < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("ok"))
		}))
		defer srv.Close()

		resp, err := RetryHTTP(ctx, fastRetry, func() (*http.Response, error) {
			return http.Get(srv.URL)
		})
		if err != nil {
			t.Fatalf("RetryHTTP error: %v", err)
		}
		resp.Body.Close()
		if hits != 3 {
			t.Errorf("hits = %d, want 3", hits)
		}
	})

	t.Run("404 is not retried", func(t *testing.T) {
		var hits int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		resp, err := RetryHTTP(ctx, fastRetry, func() (*http.Response, error) {
			return http.Get(srv.URL)
		})
		if err != nil {
			t.Fatalf("RetryHTTP error: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d", resp.StatusCode)
		}
		if hits != 1 {
			t.Errorf("hits = %d, want 1", hits)
		}
	})
}

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !isRetryableStatus(code) {
			t.Errorf("%d should be retryable", code)
		}
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404} {
		if isRetryableStatus(code) {
			t.Errorf("%d should not be retryable", code)
		}
	}
}
