package model

import "time"

// Reading represents a single indicator observation from one data source.
// A failed fetch is still a Reading (Value nil, Err set) so the engine can
// keep it for diagnostics without aborting the triangulation.
type Reading struct {
	Source      string    `json:"source"`
	Metric      Metric    `json:"metric"`
	Country     string    `json:"country"`
	CountryCode string    `json:"country_code"`
	Value       *float64  `json:"value,omitempty"`
	Unit        string    `json:"unit"`
	Period      string    `json:"period"`
	RetrievedAt time.Time `json:"retrieved_at"`
	Err         string    `json:"error,omitempty"`
}

// OK reports whether the reading carries a usable value
func (r Reading) OK() bool {
	return r.Value != nil && r.Err == ""
}

// Float64 is a convenience for building *float64 literals
func Float64(v float64) *float64 {
	return &v
}
