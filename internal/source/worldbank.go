package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/macroscope-data/macroscope/internal/cache"
	"github.com/macroscope-data/macroscope/internal/fetch"
	"github.com/macroscope-data/macroscope/internal/model"
)

const worldBankBaseURL = "https://api.worldbank.org/v2"

// WorldBank fetches from the World Bank Open Data API. No key required.
type WorldBank struct {
	base
	baseURL string
}

// NewWorldBank creates the World Bank client
func NewWorldBank(http *fetch.Client, c cache.Cache, ttl time.Duration, logger *zap.Logger) *WorldBank {
	return &WorldBank{
		base:    newBase(http, c, ttl, logger),
		baseURL: worldBankBaseURL,
	}
}

// Name returns the source name
func (w *WorldBank) Name() string {
	return "World Bank"
}

// Supports reports whether the indicator exists for the combination
func (w *WorldBank) Supports(country string, metric model.Metric) bool {
	if !KnownCountry(country) {
		return false
	}
	_, ok := worldBankIndicators[metric]
	return ok
}

type worldBankObservation struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// Fetch retrieves the most recent non-null observation
func (w *WorldBank) Fetch(ctx context.Context, country string, metric model.Metric, period Period) model.Reading {
	reading := emptyReading(w.Name(), country, metric)

	if !w.Supports(country, metric) {
		reading.Err = ErrNotSupported
		return reading
	}

	key := cache.Key(w.Name(), country, string(metric), period.String())
	if cached, ok := w.cachedReading(key); ok {
		return cached
	}

	indicator := worldBankIndicators[metric]
	wbCountry := countries[country].WB

	currentYear := time.Now().Year()
	startYear := period.StartYear
	if startYear == 0 {
		startYear = currentYear - 5
	}
	endYear := period.EndYear
	if endYear == 0 {
		endYear = currentYear
	}

	params := url.Values{
		"format":   {"json"},
		"per_page": {"10"},
		"date":     {fmt.Sprintf("%d:%d", startYear, endYear)},
	}

	endpoint := fmt.Sprintf("%s/country/%s/indicator/%s", w.baseURL, wbCountry, indicator)
	body, err := w.http.GetJSON(ctx, endpoint, params, nil)
	if err != nil {
		w.logger.Warn("World Bank fetch failed",
			zap.String("metric", string(metric)),
			zap.String("country", country),
			zap.Error(err))
		reading.Err = err.Error()
		return reading
	}

	// The API returns a two-element array: [metadata, observations]
	var envelope []json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope) < 2 {
		reading.Err = "malformed payload: expected [metadata, data] envelope"
		return reading
	}

	var observations []worldBankObservation
	if err := json.Unmarshal(envelope[1], &observations); err != nil {
		reading.Err = fmt.Sprintf("malformed payload: %v", err)
		return reading
	}
	if len(observations) == 0 {
		reading.Err = "no data available"
		return reading
	}

	for _, obs := range observations {
		if obs.Value == nil {
			continue
		}
		value := *obs.Value
		reading.Value = &value
		if obs.Date != "" {
			reading.Period = obs.Date
		}
		w.storeReading(key, reading)
		return reading
	}

	reading.Err = "all values are null"
	return reading
}
