package store

import (
	"context"
	"time"

	"github.com/macroscope-data/macroscope/internal/model"
)

// Store persists triangulation output for later inspection.
type Store interface {
	SaveResults(ctx context.Context, results []model.Result) error
	ListResults(ctx context.Context, countryCode string, metric model.Metric, limit int) ([]ResultRecord, error)
	Close() error
}

// ResultRecord is a stored triangulation outcome.
type ResultRecord struct {
	CountryCode    string
	Country        string
	Metric         model.Metric
	Period         string
	Confidence     model.Confidence
	Consensus      *float64
	Spread         float64
	Sources        []string
	TriangulatedAt time.Time
}

// NopStore discards everything. Used when persistence is disabled.
type NopStore struct{}

func (s *NopStore) SaveResults(ctx context.Context, results []model.Result) error {
	_ = ctx
	_ = results
	return nil
}

func (s *NopStore) ListResults(ctx context.Context, countryCode string, metric model.Metric, limit int) ([]ResultRecord, error) {
	_ = ctx
	_ = countryCode
	_ = metric
	_ = limit
	return nil, nil
}

func (s *NopStore) Close() error {
	return nil
}
