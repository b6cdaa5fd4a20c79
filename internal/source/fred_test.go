package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/macroscope-data/macroscope/internal/cache"
	"github.com/macroscope-data/macroscope/internal/fetch"
	"github.com/macroscope-data/macroscope/internal/model"
)

func testHTTPClient() *fetch.Client {
	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 100
	return fetchClientFromConfig(cfg)
}

func fetchClientFromConfig(cfg *model.Config) *fetch.Client {
	return fetch.NewClient(cfg.HTTP, cfg.RateLimit)
}

func TestFRED_Fetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("series_id") != "UNRATE" {
			t.Errorf("Unexpected series_id: %s", r.URL.Query().Get("series_id"))
		}
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("API key not sent")
		}
		_, _ = fmt.Fprint(w, `{"observations":[{"date":"2025-07-01","value":"."},{"date":"2025-06-01","value":"4.1"}]}`)
	}))
	defer server.Close()

	client := NewFRED("test-key", testHTTPClient(), nil, time.Hour, nil)
	client.baseURL = server.URL

	reading := client.Fetch(context.Background(), "USA", model.MetricUnemployment, Period{})
	if !reading.OK() {
		t.Fatalf("Expected successful reading, got error: %s", reading.Err)
	}
	if *reading.Value != 4.1 {
		t.Errorf("Expected value 4.1, got %v", *reading.Value)
	}
	// Missing observations ("." values) are skipped
	if reading.Period != "2025-06-01" {
		t.Errorf("Expected period 2025-06-01, got %s", reading.Period)
	}
	if reading.Unit != "percent" {
		t.Errorf("Expected percent unit, got %s", reading.Unit)
	}
	if reading.Source != "FRED" {
		t.Errorf("Expected source FRED, got %s", reading.Source)
	}
}

func TestFRED_Fetch_UnsupportedCountryNoHTTP(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewFRED("test-key", testHTTPClient(), nil, time.Hour, nil)
	client.baseURL = server.URL

	reading := client.Fetch(context.Background(), "BRA", model.MetricInflation, Period{})
	if reading.OK() {
		t.Fatal("Expected failed reading for unsupported country")
	}
	if reading.Err != ErrNotSupported {
		t.Errorf("Expected %q, got %q", ErrNotSupported, reading.Err)
	}
	if calls.Load() != 0 {
		t.Errorf("Expected no HTTP calls for unsupported combination, got %d", calls.Load())
	}
}

func TestFRED_Fetch_MissingAPIKey(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewFRED("", testHTTPClient(), nil, time.Hour, nil)
	client.baseURL = server.URL

	reading := client.Fetch(context.Background(), "USA", model.MetricInflation, Period{})
	if reading.OK() {
		t.Fatal("Expected failed reading without API key")
	}
	if calls.Load() != 0 {
		t.Errorf("Expected no HTTP calls without API key, got %d", calls.Load())
	}
}

func TestFRED_Fetch_MalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"observations": not-json`)
	}))
	defer server.Close()

	client := NewFRED("test-key", testHTTPClient(), nil, time.Hour, nil)
	client.baseURL = server.URL

	reading := client.Fetch(context.Background(), "USA", model.MetricInflation, Period{})
	if reading.OK() {
		t.Fatal("Expected failed reading for malformed payload")
	}
}

func TestFRED_Fetch_AllMissingValues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `{"observations":[{"date":"2025-07-01","value":"."}]}`)
	}))
	defer server.Close()

	client := NewFRED("test-key", testHTTPClient(), nil, time.Hour, nil)
	client.baseURL = server.URL

	reading := client.Fetch(context.Background(), "USA", model.MetricGDPGrowth, Period{})
	if reading.OK() {
		t.Fatal("Expected failed reading when all observations are missing")
	}
}

func TestFRED_Fetch_CacheHitSkipsHTTP(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = fmt.Fprint(w, `{"observations":[{"date":"2025-06-01","value":"3.4"}]}`)
	}))
	defer server.Close()

	memCache := cache.NewMemoryCache(time.Hour, time.Hour)
	client := NewFRED("test-key", testHTTPClient(), memCache, time.Hour, nil)
	client.baseURL = server.URL

	first := client.Fetch(context.Background(), "USA", model.MetricInflation, Period{})
	if !first.OK() {
		t.Fatalf("Expected success, got %s", first.Err)
	}
	second := client.Fetch(context.Background(), "USA", model.MetricInflation, Period{})
	if !second.OK() {
		t.Fatalf("Expected cached success, got %s", second.Err)
	}

	if calls.Load() != 1 {
		t.Errorf("Expected exactly 1 HTTP call, got %d", calls.Load())
	}
	if *second.Value != *first.Value || second.Period != first.Period {
		t.Error("Cached reading differs from original")
	}
}

func TestFRED_Fetch_CacheExpiryRefetches(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = fmt.Fprint(w, `{"observations":[{"date":"2025-06-01","value":"3.4"}]}`)
	}))
	defer server.Close()

	memCache := cache.NewMemoryCache(10*time.Millisecond, time.Hour)
	client := NewFRED("test-key", testHTTPClient(), memCache, 10*time.Millisecond, nil)
	client.baseURL = server.URL

	_ = client.Fetch(context.Background(), "USA", model.MetricInflation, Period{})
	time.Sleep(25 * time.Millisecond)
	_ = client.Fetch(context.Background(), "USA", model.MetricInflation, Period{})

	if calls.Load() != 2 {
		t.Errorf("Expected fresh fetch after TTL expiry, got %d HTTP calls", calls.Load())
	}
}

func TestFRED_Fetch_FailuresNotCached(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	memCache := cache.NewMemoryCache(time.Hour, time.Hour)
	client := NewFRED("test-key", testHTTPClient(), memCache, time.Hour, nil)
	client.baseURL = server.URL

	_ = client.Fetch(context.Background(), "USA", model.MetricInflation, Period{})
	_ = client.Fetch(context.Background(), "USA", model.MetricInflation, Period{})

	if calls.Load() != 2 {
		t.Errorf("Failed readings must not be cached; expected 2 HTTP calls, got %d", calls.Load())
	}
}
