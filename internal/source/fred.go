package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/macroscope-data/macroscope/internal/cache"
	"github.com/macroscope-data/macroscope/internal/fetch"
	"github.com/macroscope-data/macroscope/internal/model"
)

const fredBaseURL = "https://api.stlouisfed.org/fred"

// FRED fetches from the Federal Reserve Economic Data API. Requires an API
// key; without one every fetch fails fast as a configuration failure.
type FRED struct {
	base
	apiKey  string
	baseURL string
}

// NewFRED creates the FRED client
func NewFRED(apiKey string, http *fetch.Client, c cache.Cache, ttl time.Duration, logger *zap.Logger) *FRED {
	return &FRED{
		base:    newBase(http, c, ttl, logger),
		apiKey:  apiKey,
		baseURL: fredBaseURL,
	}
}

// Name returns the source name
func (f *FRED) Name() string {
	return "FRED"
}

// Supports reports whether a FRED series exists for the combination
func (f *FRED) Supports(country string, metric model.Metric) bool {
	if !KnownCountry(country) {
		return false
	}
	_, ok := fredSeriesID(metric, country)
	return ok
}

type fredResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"` // "." marks a missing observation
	} `json:"observations"`
}

// Fetch retrieves the most recent observation for the series
func (f *FRED) Fetch(ctx context.Context, country string, metric model.Metric, period Period) model.Reading {
	reading := emptyReading(f.Name(), country, metric)

	if !f.Supports(country, metric) {
		reading.Err = ErrNotSupported
		return reading
	}
	if f.apiKey == "" {
		reading.Err = "FRED_API_KEY not configured"
		return reading
	}

	key := cache.Key(f.Name(), country, string(metric), period.String())
	if cached, ok := f.cachedReading(key); ok {
		return cached
	}

	seriesID, _ := fredSeriesID(metric, country)
	params := url.Values{
		"series_id":  {seriesID},
		"api_key":    {f.apiKey},
		"file_type":  {"json"},
		"sort_order": {"desc"},
		"limit":      {"10"},
	}
	if period.StartYear != 0 {
		params.Set("observation_start", fmt.Sprintf("%d-01-01", period.StartYear))
	}
	if period.EndYear != 0 {
		params.Set("observation_end", fmt.Sprintf("%d-12-31", period.EndYear))
	}

	body, err := f.http.GetJSON(ctx, f.baseURL+"/series/observations", params, nil)
	if err != nil {
		f.logger.Warn("FRED fetch failed",
			zap.String("metric", string(metric)),
			zap.String("country", country),
			zap.Error(err))
		reading.Err = err.Error()
		return reading
	}

	var resp fredResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		reading.Err = fmt.Sprintf("malformed payload: %v", err)
		return reading
	}
	if len(resp.Observations) == 0 {
		reading.Err = "no observations found"
		return reading
	}

	// Observations arrive newest-first; take the first one with a value
	for _, obs := range resp.Observations {
		if obs.Value == "." || obs.Value == "" {
			continue
		}
		value, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			reading.Err = fmt.Sprintf("malformed payload: bad value %q", obs.Value)
			return reading
		}
		reading.Value = &value
		reading.Period = obs.Date
		f.storeReading(key, reading)
		return reading
	}

	reading.Err = "all observations are missing values"
	return reading
}
