package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/macroscope-data/macroscope/internal/cache"
	"github.com/macroscope-data/macroscope/internal/fetch"
	"github.com/macroscope-data/macroscope/internal/model"
)

const oecdBaseURL = "https://sdmx.oecd.org/public/rest/data"

// OECD fetches from the OECD SDMX-JSON API. No key required.
type OECD struct {
	base
	baseURL string
}

// NewOECD creates the OECD client
func NewOECD(http *fetch.Client, c cache.Cache, ttl time.Duration, logger *zap.Logger) *OECD {
	return &OECD{
		base:    newBase(http, c, ttl, logger),
		baseURL: oecdBaseURL,
	}
}

// Name returns the source name
func (o *OECD) Name() string {
	return "OECD"
}

// Supports reports whether an OECD dataset path exists for the combination
func (o *OECD) Supports(country string, metric model.Metric) bool {
	if !KnownCountry(country) {
		return false
	}
	_, ok := oecdPaths[metric]
	return ok
}

// sdmxResponse is the subset of an SDMX-JSON payload we need: the flat
// observation map keyed by dimension indices, and the TIME_PERIOD dimension
// for resolving the period label.
type sdmxResponse struct {
	DataSets []struct {
		Observations map[string][]any `json:"observations"`
	} `json:"dataSets"`
	Structure struct {
		Dimensions struct {
			Observation []struct {
				ID     string `json:"id"`
				Values []struct {
					ID string `json:"id"`
				} `json:"values"`
			} `json:"observation"`
		} `json:"dimensions"`
	} `json:"structure"`
}

// Fetch retrieves the most recent observation from the dataset
func (o *OECD) Fetch(ctx context.Context, country string, metric model.Metric, period Period) model.Reading {
	reading := emptyReading(o.Name(), country, metric)

	if !o.Supports(country, metric) {
		reading.Err = ErrNotSupported
		return reading
	}

	key := cache.Key(o.Name(), country, string(metric), period.String())
	if cached, ok := o.cachedReading(key); ok {
		return cached
	}

	dataPath := strings.ReplaceAll(oecdPaths[metric], "{country}", countries[country].OECD)

	params := url.Values{
		"dimensionAtObservation": {"AllDimensions"},
	}
	if period.StartYear != 0 {
		params.Set("startPeriod", strconv.Itoa(period.StartYear))
	}
	if period.EndYear != 0 {
		params.Set("endPeriod", strconv.Itoa(period.EndYear))
	}
	headers := map[string]string{
		"Accept": "application/vnd.sdmx.data+json;version=1.0",
	}

	body, err := o.http.GetJSON(ctx, o.baseURL+"/"+dataPath, params, headers)
	if err != nil {
		o.logger.Warn("OECD fetch failed",
			zap.String("metric", string(metric)),
			zap.String("country", country),
			zap.Error(err))
		reading.Err = err.Error()
		return reading
	}

	var resp sdmxResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		reading.Err = fmt.Sprintf("malformed payload: %v", err)
		return reading
	}
	if len(resp.DataSets) == 0 {
		reading.Err = "no datasets in response"
		return reading
	}

	observations := resp.DataSets[0].Observations
	if len(observations) == 0 {
		reading.Err = "no observations in dataset"
		return reading
	}

	// Observation keys are colon-joined dimension indices; the last key in
	// sorted order is the most recent period.
	keys := make([]string, 0, len(observations))
	for k := range observations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lastKey := keys[len(keys)-1]

	obs := observations[lastKey]
	if len(obs) == 0 {
		reading.Err = "empty observation"
		return reading
	}
	value, ok := obs[0].(float64)
	if !ok {
		reading.Err = "observation value is not numeric"
		return reading
	}

	reading.Value = &value
	reading.Period = o.periodLabel(resp, lastKey)
	o.storeReading(key, reading)
	return reading
}

// periodLabel resolves the TIME_PERIOD dimension label for an observation key
func (o *OECD) periodLabel(resp sdmxResponse, obsKey string) string {
	var timeDim *struct {
		ID     string `json:"id"`
		Values []struct {
			ID string `json:"id"`
		} `json:"values"`
	}
	for i := range resp.Structure.Dimensions.Observation {
		if resp.Structure.Dimensions.Observation[i].ID == "TIME_PERIOD" {
			timeDim = &resp.Structure.Dimensions.Observation[i]
			break
		}
	}
	if timeDim == nil || len(timeDim.Values) == 0 {
		return "N/A"
	}

	idx := 0
	if i := strings.LastIndex(obsKey, ":"); i >= 0 {
		if parsed, err := strconv.Atoi(obsKey[i+1:]); err == nil {
			idx = parsed
		}
	}
	if idx >= len(timeDim.Values) {
		return "N/A"
	}
	return timeDim.Values[idx].ID
}
