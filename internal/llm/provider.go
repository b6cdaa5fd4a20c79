package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/macroscope-data/macroscope/internal/model"
)

// Provider rephrases a finished triangulation result conversationally.
// It never sees raw source data and never affects consensus, spread, or
// confidence.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Narrate turns a result into a short conversational answer
	Narrate(ctx context.Context, req NarrateRequest) (*NarrateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// NarrateRequest contains the input for narration
type NarrateRequest struct {
	// Result is the triangulated consensus to narrate
	Result model.Result

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// NarrateResponse contains the narration output
type NarrateResponse struct {
	// Narrative is the generated text
	Narrative string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds provider configuration
type Config struct {
	// Provider name: "openai", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout for API requests, seconds
	Timeout int

	// MaxTokens for response generation
	MaxTokens int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		MaxTokens: 600,
	}
}

// BuildPrompt constructs the default narration prompt. The numbers are
// fixed inputs: the model may rephrase them, never recompute them.
func BuildPrompt(result model.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are rephrasing a cross-checked economic data point for a general audience.

CRITICAL RULES:
1. Use ONLY the numbers given below. Do not add figures from your own knowledge.
2. Do not change, round differently, or "correct" any value.
3. State the confidence level plainly. If sources disagreed, say so.
4. Keep it to 3-4 sentences.

Data point:
- Country: %s
- Metric: %s
- Confidence: %s
`, result.Country, result.Metric.Label(), result.Confidence)

	if result.Consensus != nil {
		fmt.Fprintf(&b, "- Consensus value: %.2f%% (as of %s)\n", *result.Consensus, result.Period)
		fmt.Fprintf(&b, "- Spread across sources: %.2f percentage points\n", result.Spread)
	} else {
		b.WriteString("- Consensus value: none (no source returned data)\n")
	}

	for _, r := range result.Successful() {
		fmt.Fprintf(&b, "- %s reported %.2f%% for %s\n", r.Source, *r.Value, r.Period)
	}
	fmt.Fprintf(&b, "- Assessment: %s\n", result.Explanation)

	return b.String()
}
