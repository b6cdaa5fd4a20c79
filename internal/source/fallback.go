package source

import "github.com/macroscope-data/macroscope/internal/model"

// fallbackValues are static reference values shown to callers when every
// source fails. They never enter a consensus computation.
var fallbackValues = map[model.Metric]map[string]float64{
	model.MetricGDPGrowth:    {"USA": 2.5, "IND": 6.8, "EUU": 0.5, "CHN": 5.2},
	model.MetricInflation:    {"USA": 3.4, "IND": 5.1, "EUU": 2.6, "CHN": 0.2},
	model.MetricUnemployment: {"USA": 3.7, "IND": 7.8, "EUU": 6.4, "CHN": 5.1},
	model.MetricInterestRate: {"USA": 5.33, "IND": 6.5, "EUU": 4.0, "CHN": 3.45},
}

// FallbackValue returns the static reference value for a combination, if any
func FallbackValue(metric model.Metric, country string) (float64, bool) {
	v, ok := fallbackValues[metric][country]
	return v, ok
}
