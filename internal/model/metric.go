package model

import "fmt"

// Metric identifies a supported macroeconomic indicator
type Metric string

const (
	MetricGDPGrowth    Metric = "gdp_growth"
	MetricInflation    Metric = "inflation"
	MetricUnemployment Metric = "unemployment"
	MetricInterestRate Metric = "interest_rate"
)

// AllMetrics lists every supported metric in canonical order
func AllMetrics() []Metric {
	return []Metric{MetricGDPGrowth, MetricInflation, MetricUnemployment, MetricInterestRate}
}

// ParseMetric converts a CLI/config string into a Metric
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricGDPGrowth, MetricInflation, MetricUnemployment, MetricInterestRate:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown metric: %q (supported: gdp_growth, inflation, unemployment, interest_rate)", s)
}

// Label returns the human-readable metric name (e.g., "GDP growth")
func (m Metric) Label() string {
	switch m {
	case MetricGDPGrowth:
		return "GDP growth"
	case MetricInflation:
		return "inflation"
	case MetricUnemployment:
		return "unemployment"
	case MetricInterestRate:
		return "interest rate"
	default:
		return string(m)
	}
}

// Confidence grades the agreement between sources for a triangulated value
type Confidence string

const (
	ConfidenceHigh         Confidence = "high"          // all available sources agree within tolerance
	ConfidenceMedium       Confidence = "medium"        // two sources agree, third differs or is unavailable
	ConfidenceLow          Confidence = "low"           // available sources disagree beyond tolerance
	ConfidenceSingleSource Confidence = "single_source" // exactly one source returned data
	ConfidenceNoData       Confidence = "no_data"       // no source returned data
)
