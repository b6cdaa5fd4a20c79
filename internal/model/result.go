package model

import "time"

// Result is the outcome of triangulating one (country, metric) pair across
// all applicable sources. Built once from a set of Readings; never mutated.
type Result struct {
	Metric         Metric     `json:"metric"`
	Country        string     `json:"country"`
	CountryCode    string     `json:"country_code"`
	Period         string     `json:"period"`
	Confidence     Confidence `json:"confidence"`
	Consensus      *float64   `json:"consensus_value,omitempty"`
	Spread         float64    `json:"spread"`
	Readings       []Reading  `json:"readings"`
	SourcesUsed    []string   `json:"sources_used"`
	Explanation    string     `json:"explanation"`
	TriangulatedAt time.Time  `json:"triangulated_at"`
}

// Successful returns the readings that contributed to the consensus
func (r Result) Successful() []Reading {
	var ok []Reading
	for _, reading := range r.Readings {
		if reading.OK() {
			ok = append(ok, reading)
		}
	}
	return ok
}
