package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/macroscope-data/macroscope/internal/cache"
	"github.com/macroscope-data/macroscope/internal/fetch"
	"github.com/macroscope-data/macroscope/internal/model"
)

// ErrNotSupported is the reading error for (country, metric) combinations a
// source cannot serve. No HTTP call is made for these.
const ErrNotSupported = "not supported by source"

// Period bounds a fetch to a year range; the zero value means "latest"
type Period struct {
	StartYear int
	EndYear   int
}

// String renders the period for cache keys and logs
func (p Period) String() string {
	if p.StartYear == 0 && p.EndYear == 0 {
		return "latest"
	}
	return fmt.Sprintf("%d:%d", p.StartYear, p.EndYear)
}

// Client is the contract every data source implements. Fetch never returns
// an error: failures surface as Readings with Err set so the triangulation
// engine can proceed with the remaining sources.
type Client interface {
	Name() string
	Supports(country string, metric model.Metric) bool
	Fetch(ctx context.Context, country string, metric model.Metric, period Period) model.Reading
}

// base carries the pieces shared by all concrete clients
type base struct {
	http   *fetch.Client
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func newBase(http *fetch.Client, c cache.Cache, ttl time.Duration, logger *zap.Logger) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{http: http, cache: c, ttl: ttl, logger: logger}
}

// emptyReading builds the failure-or-start shell for one fetch
func emptyReading(source, country string, metric model.Metric) model.Reading {
	return model.Reading{
		Source:      source,
		Metric:      metric,
		Country:     CountryName(country),
		CountryCode: country,
		Unit:        "percent",
		Period:      "N/A",
		RetrievedAt: time.Now().UTC(),
	}
}

// cachedReading returns a fresh cached reading for the key, if any
func (b base) cachedReading(key string) (model.Reading, bool) {
	if b.cache == nil {
		return model.Reading{}, false
	}
	data, found := b.cache.Get(key)
	if !found {
		return model.Reading{}, false
	}
	var reading model.Reading
	if err := json.Unmarshal(data, &reading); err != nil {
		_ = b.cache.Delete(key)
		return model.Reading{}, false
	}
	return reading, true
}

// storeReading caches a successful reading; failures are never cached
func (b base) storeReading(key string, reading model.Reading) {
	if b.cache == nil || !reading.OK() {
		return
	}
	data, err := json.Marshal(reading)
	if err != nil {
		return
	}
	if err := b.cache.Set(key, data, b.ttl); err != nil {
		b.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Build constructs the enabled clients in canonical order (FRED, World Bank,
// OECD). Unknown source names are rejected so config typos fail loudly.
func Build(cfg *model.Config, httpClient *fetch.Client, readingCache cache.Cache, logger *zap.Logger) ([]Client, error) {
	ttl := cfg.Cache.TTL
	if !cfg.Cache.Enabled {
		readingCache = nil
	}

	enabled := make(map[string]bool, len(cfg.Sources.Enabled))
	for _, name := range cfg.Sources.Enabled {
		switch name {
		case "fred", "worldbank", "oecd":
			enabled[name] = true
		default:
			return nil, fmt.Errorf("unknown source: %q (supported: fred, worldbank, oecd)", name)
		}
	}

	var clients []Client
	if enabled["fred"] {
		clients = append(clients, NewFRED(cfg.Sources.FREDAPIKey, httpClient, readingCache, ttl, logger))
	}
	if enabled["worldbank"] {
		clients = append(clients, NewWorldBank(httpClient, readingCache, ttl, logger))
	}
	if enabled["oecd"] {
		clients = append(clients, NewOECD(httpClient, readingCache, ttl, logger))
	}
	return clients, nil
}
