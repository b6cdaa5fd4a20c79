package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/macroscope-data/macroscope/internal/model"
)

func testClient() *Client {
	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 100
	return NewClient(cfg.HTTP, cfg.RateLimit)
}

func TestGetJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	body, err := testClient().GetJSON(context.Background(), server.URL, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("Unexpected body: %s", body)
	}
}

func TestGetJSON_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	origSleep := sleepFunc
	sleepFunc = func(d time.Duration) {}
	defer func() { sleepFunc = origSleep }()

	body, err := testClient().GetJSON(context.Background(), server.URL, nil, nil)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("Unexpected body: %s", body)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestGetJSON_PermanentNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	origSleep := sleepFunc
	sleepFunc = func(d time.Duration) {}
	defer func() { sleepFunc = origSleep }()

	_, err := testClient().GetJSON(context.Background(), server.URL, nil, nil)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 attempt for permanent failure, got %d", attempts.Load())
	}

	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("Expected *fetch.Error, got %T", err)
	}
	if fe.Class != ClassPermanent {
		t.Error("Expected permanent class for 404")
	}
	if fe.StatusCode != 404 {
		t.Errorf("Expected status 404, got %d", fe.StatusCode)
	}
}

func TestGetJSON_RateLimitedRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	origSleep := sleepFunc
	sleepFunc = func(d time.Duration) {}
	defer func() { sleepFunc = origSleep }()

	_, err := testClient().GetJSON(context.Background(), server.URL, nil, nil)
	if err != nil {
		t.Fatalf("Expected success after 429 retry, got %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestGetJSON_RetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	origSleep := sleepFunc
	sleepFunc = func(d time.Duration) {}
	defer func() { sleepFunc = origSleep }()

	_, err := testClient().GetJSON(context.Background(), server.URL, nil, nil)
	if err == nil {
		t.Fatal("Expected error after retries exhausted")
	}
	// maxRetries=2 means at most 3 attempts total
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
	if !IsTransient(err) {
		t.Error("Exhausted transient failure should still classify as transient")
	}
}

func TestGetJSON_QueryParamsAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "json" {
			t.Errorf("Missing format param, got query %q", r.URL.RawQuery)
		}
		if r.Header.Get("Accept") != "application/vnd.sdmx.data+json;version=1.0" {
			t.Errorf("Header override not applied: %q", r.Header.Get("Accept"))
		}
		_, _ = fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	params := map[string][]string{"format": {"json"}}
	headers := map[string]string{"Accept": "application/vnd.sdmx.data+json;version=1.0"}
	if _, err := testClient().GetJSON(context.Background(), server.URL, params, headers); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestGetJSON_ContextCancelledPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	origSleep := sleepFunc
	sleepFunc = func(d time.Duration) {}
	defer func() { sleepFunc = origSleep }()

	_, err := testClient().GetJSON(ctx, server.URL, nil, nil)
	if err == nil {
		t.Fatal("Expected error for cancelled context")
	}
	if IsTransient(err) {
		t.Error("Cancelled context must not be retried")
	}
}

func TestTransientStatus(t *testing.T) {
	tests := []struct {
		code      int
		transient bool
	}{
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{504, true},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{410, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.code), func(t *testing.T) {
			if got := transientStatus(tt.code); got != tt.transient {
				t.Errorf("transientStatus(%d) = %v, want %v", tt.code, got, tt.transient)
			}
		})
	}
}

func TestIsTransient_NonFetchError(t *testing.T) {
	if IsTransient(errors.New("plain error")) {
		t.Error("Plain errors should not classify as transient")
	}
	if IsTransient(nil) {
		t.Error("nil should not classify as transient")
	}
}
