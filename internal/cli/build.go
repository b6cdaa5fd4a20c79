package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/macroscope-data/macroscope/internal/cache"
	"github.com/macroscope-data/macroscope/internal/fetch"
	"github.com/macroscope-data/macroscope/internal/model"
	"github.com/macroscope-data/macroscope/internal/source"
	"github.com/macroscope-data/macroscope/internal/store"
	"github.com/macroscope-data/macroscope/internal/store/sqlite"
	"github.com/macroscope-data/macroscope/internal/triangulate"
)

// buildCache assembles the reading cache per configuration. Nil means
// caching is disabled.
func buildCache(cfg *model.Config) cache.Cache {
	if !cfg.Cache.Enabled {
		return nil
	}
	if cfg.Cache.Dir != "" {
		return cache.NewLayeredCache(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
	}
	return cache.NewMemoryCache(cfg.Cache.TTL, 10*time.Minute)
}

// buildEngine wires the HTTP layer, cache, and source clients into a
// triangulation engine.
func buildEngine(cfg *model.Config, logger *zap.Logger) (*triangulate.Engine, error) {
	httpClient := fetch.NewClient(cfg.HTTP, cfg.RateLimit)

	clients, err := source.Build(cfg, httpClient, buildCache(cfg), logger)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no sources enabled")
	}

	return triangulate.New(clients, cfg, logger), nil
}

// openStore opens the sqlite store, or a no-op store when no path is set.
func openStore(path string) (store.Store, error) {
	if path == "" {
		return &store.NopStore{}, nil
	}
	return sqlite.New(path)
}

// resolveFREDKey fills the key from the environment and fails when the
// fred source is requested without one. The other sources are public.
func resolveFREDKey(cfg *model.Config, flagValue string) error {
	key := flagValue
	if key == "" {
		key = os.Getenv("FRED_API_KEY")
	}
	cfg.Sources.FREDAPIKey = key

	for _, name := range cfg.Sources.Enabled {
		if name == "fred" && key == "" {
			return fmt.Errorf("FRED_API_KEY is not set but the fred source is requested; set the key or drop fred from --sources")
		}
	}
	return nil
}

// parseCountries normalizes and validates ISO3 codes
func parseCountries(raw []string) ([]string, error) {
	var countries []string
	for _, c := range raw {
		code := strings.ToUpper(strings.TrimSpace(c))
		if code == "" {
			continue
		}
		if !source.KnownCountry(code) {
			return nil, fmt.Errorf("unknown country code: %q (supported: %s)", c, strings.Join(source.CountryCodes(), ", "))
		}
		countries = append(countries, code)
	}
	if len(countries) == 0 {
		return nil, fmt.Errorf("no countries given")
	}
	return countries, nil
}

// parseMetrics validates metric names
func parseMetrics(raw []string) ([]model.Metric, error) {
	var metrics []model.Metric
	for _, m := range raw {
		metric, err := model.ParseMetric(strings.TrimSpace(m))
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, metric)
	}
	if len(metrics) == 0 {
		return nil, fmt.Errorf("no metrics given")
	}
	return metrics, nil
}
