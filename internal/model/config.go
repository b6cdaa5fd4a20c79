package model

import "time"

// Config holds the full pipeline configuration.
// Hierarchy (highest to lowest priority): CLI flags, MACROSCOPE_* env vars,
// config file (~/.macroscope/config.yaml), these defaults.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Cache       CacheConfig       `yaml:"cache"`
	Triangulate TriangulateConfig `yaml:"triangulate"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Sources     SourcesConfig     `yaml:"sources"`
	Dataset     DatasetConfig     `yaml:"dataset"`
	LLM         LLMConfig         `yaml:"llm"`
	Output      OutputConfig      `yaml:"output"`
}

// HTTPConfig controls the shared HTTP request layer
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"` // retries after the first attempt
	Backoff    time.Duration `yaml:"backoff"`     // base backoff, doubled per attempt
	UserAgent  string        `yaml:"user_agent"`
}

// CacheConfig controls the reading cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
	Dir     string        `yaml:"dir"` // disk layer directory; empty = memory only
}

// TriangulateConfig controls consensus computation
type TriangulateConfig struct {
	// Tolerance is the maximum percentage-point difference between two
	// readings for them to count as agreeing
	Tolerance float64 `yaml:"tolerance"`
}

// ConcurrencyConfig bounds parallel work
type ConcurrencyConfig struct {
	SourceFetches int `yaml:"source_fetches"` // concurrent source calls per triangulation
	Workers       int `yaml:"workers"`        // dataset generation workers
}

// RateLimitConfig bounds outbound request rate per API host
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// SourcesConfig selects and configures the upstream data sources
type SourcesConfig struct {
	Enabled    []string `yaml:"enabled"` // subset of: fred, worldbank, oecd
	FREDAPIKey string   `yaml:"fred_api_key,omitempty"`
}

// DatasetConfig controls training-sample generation
type DatasetConfig struct {
	QuestionVariants int  `yaml:"question_variants"`
	MultiTurn        bool `yaml:"multi_turn"`
	StorePath        string `yaml:"store_path"` // sqlite path; empty = no persistence
}

// LLMConfig configures the optional narrative provider.
// The LLM only rephrases finished results; it never affects consensus
// or confidence.
type LLMConfig struct {
	Provider  string `yaml:"provider"` // "openai" or "" (disabled)
	Model     string `yaml:"model"`
	APIKey    string `yaml:"-"`
	BaseURL   string `yaml:"base_url,omitempty"`
	Timeout   int    `yaml:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:    10 * time.Second,
			MaxRetries: 2,
			Backoff:    500 * time.Millisecond,
			UserAgent:  "Macroscope/0.1 (+https://github.com/macroscope-data/macroscope)",
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     time.Hour,
		},
		Triangulate: TriangulateConfig{
			Tolerance: 0.5,
		},
		Concurrency: ConcurrencyConfig{
			SourceFetches: 3,
			Workers:       4,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             5,
		},
		Sources: SourcesConfig{
			Enabled: []string{"fred", "worldbank", "oecd"},
		},
		Dataset: DatasetConfig{
			QuestionVariants: 2,
			MultiTurn:        true,
		},
		LLM: LLMConfig{
			Provider:  "",
			Timeout:   30,
			MaxTokens: 600,
		},
	}
}
