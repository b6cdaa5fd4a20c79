package format

import (
	"fmt"
	"strings"

	"github.com/macroscope-data/macroscope/internal/model"
	"github.com/macroscope-data/macroscope/internal/source"
)

// SystemPrompt anchors every generated conversation
const SystemPrompt = "You are a financial risk assistant specializing in macroeconomic analysis. " +
	"You provide accurate, data-driven insights by cross-referencing multiple authoritative sources " +
	"(FRED, World Bank, OECD). Always cite your sources and indicate confidence levels based on " +
	"data agreement across sources."

// metricQuestions is the question template bank, "{country}" substituted
var metricQuestions = map[model.Metric][]string{
	model.MetricGDPGrowth: {
		"What is the current GDP growth rate for {country}?",
		"How is {country}'s economic growth performing?",
		"What's the GDP growth outlook for {country}?",
		"Tell me about {country}'s GDP growth.",
	},
	model.MetricInflation: {
		"What is the inflation rate in {country}?",
		"What's the inflation risk for {country}?",
		"How high is inflation in {country}?",
		"Tell me about {country}'s inflation situation.",
	},
	model.MetricUnemployment: {
		"What is the unemployment rate in {country}?",
		"How is the job market in {country}?",
		"What's the employment situation in {country}?",
		"Tell me about unemployment in {country}.",
	},
	model.MetricInterestRate: {
		"What is the current interest rate in {country}?",
		"What are interest rates like in {country}?",
		"Tell me about {country}'s monetary policy rate.",
		"What's the policy rate in {country}?",
	},
}

type riskBands struct {
	low, moderate, high float64
}

var riskThresholds = map[model.Metric]riskBands{
	model.MetricGDPGrowth:    {low: 1.0, moderate: 2.5, high: 4.0},
	model.MetricInflation:    {low: 2.0, moderate: 4.0, high: 6.0},
	model.MetricUnemployment: {low: 4.0, moderate: 6.0, high: 8.0},
	model.MetricInterestRate: {low: 2.0, moderate: 4.0, high: 6.0},
}

// Formatter turns triangulation results into display text and training
// samples
type Formatter struct{}

// New creates a formatter
func New() *Formatter {
	return &Formatter{}
}

// assessRisk maps a consensus value to a risk label. GDP growth is
// inverted: lower growth means higher risk.
func assessRisk(metric model.Metric, value *float64) string {
	if value == nil {
		return "undetermined"
	}
	bands, ok := riskThresholds[metric]
	if !ok {
		return "undetermined"
	}

	v := *value
	if metric == model.MetricGDPGrowth {
		switch {
		case v >= bands.high:
			return "low"
		case v >= bands.moderate:
			return "moderate"
		case v >= bands.low:
			return "elevated"
		default:
			return "high"
		}
	}

	switch {
	case v <= bands.low:
		return "low"
	case v <= bands.moderate:
		return "moderate"
	case v <= bands.high:
		return "elevated"
	default:
		return "high"
	}
}

func confidenceText(c model.Confidence) string {
	switch c {
	case model.ConfidenceHigh:
		return "high confidence (all sources agree)"
	case model.ConfidenceMedium:
		return "medium confidence (majority of sources agree)"
	case model.ConfidenceLow:
		return "low confidence (sources disagree significantly)"
	case model.ConfidenceSingleSource:
		return "limited confidence (single source only)"
	case model.ConfidenceNoData:
		return "no confidence (no data available)"
	default:
		return "unknown confidence"
	}
}

// citations lists the contributing source readings as "NAME (X.XX%)"
func citations(result model.Result) string {
	var parts []string
	for _, r := range result.Successful() {
		parts = append(parts, fmt.Sprintf("%s (%.2f%%)", r.Source, *r.Value))
	}
	if len(parts) == 0 {
		return "no available sources"
	}
	return strings.Join(parts, ", ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Text renders a result for terminal display. NO_DATA results render a
// graceful message with the static reference value when one exists.
func (f *Formatter) Text(result model.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s — %s\n", result.Country, capitalize(result.Metric.Label()))

	if result.Consensus == nil {
		b.WriteString("No data available. ")
		b.WriteString(result.Explanation)
		if v, ok := source.FallbackValue(result.Metric, result.CountryCode); ok {
			fmt.Fprintf(&b, "\nStatic reference value (not triangulated): %.2f%%", v)
		}
		return b.String()
	}

	fmt.Fprintf(&b, "Consensus: %.2f%% (as of %s)\n", *result.Consensus, result.Period)
	fmt.Fprintf(&b, "Confidence: %s\n", confidenceText(result.Confidence))
	fmt.Fprintf(&b, "Spread: %.2f percentage points\n", result.Spread)
	fmt.Fprintf(&b, "Sources: %s\n", citations(result))
	b.WriteString(result.Explanation)

	return b.String()
}

// assistantResponse builds the assistant turn for a training sample
func (f *Formatter) assistantResponse(result model.Result) string {
	if result.Consensus == nil {
		return fmt.Sprintf("Unable to provide a reliable estimate for %s's %s. %s",
			result.Country, result.Metric.Label(), result.Explanation)
	}

	risk := assessRisk(result.Metric, result.Consensus)

	response := fmt.Sprintf(
		"Based on %s, %s's %s is approximately %.2f%% (as of %s).\n\n"+
			"**Confidence Level:** %s\n"+
			"**Risk Assessment:** %s risk\n\n"+
			"**Analysis:** %s",
		citations(result), result.Country, result.Metric.Label(),
		*result.Consensus, result.Period,
		capitalize(confidenceText(result.Confidence)),
		capitalize(risk),
		result.Explanation)

	// Metric-specific implications
	switch result.Metric {
	case model.MetricGDPGrowth:
		if *result.Consensus < 1.0 {
			response += "\n\n**Implication:** Weak growth suggests potential recession risk. " +
				"Consider defensive positioning in portfolios."
		} else if *result.Consensus > 3.0 {
			response += "\n\n**Implication:** Strong growth may lead to inflationary pressures " +
				"and potential monetary tightening."
		}
	case model.MetricInflation:
		if *result.Consensus > 4.0 {
			response += "\n\n**Implication:** Elevated inflation erodes purchasing power and may " +
				"prompt central bank rate hikes. Duration exposure should be monitored."
		}
	}

	return response
}

// Sample formats one result as a single-turn training sample. The variant
// index rotates through the question bank for the metric.
func (f *Formatter) Sample(result model.Result, variant int) model.Sample {
	questions, ok := metricQuestions[result.Metric]
	if !ok {
		questions = []string{fmt.Sprintf("What is the %s for {country}?", result.Metric.Label())}
	}
	question := strings.ReplaceAll(questions[variant%len(questions)], "{country}", result.Country)

	return model.Sample{
		Messages: []model.Message{
			{Role: model.RoleSystem, Content: SystemPrompt},
			{Role: model.RoleUser, Content: question},
			{Role: model.RoleAssistant, Content: f.assistantResponse(result)},
		},
	}
}

// MultiTurn formats several results for one country as a single multi-turn
// conversation, for training on follow-up questions
func (f *Formatter) MultiTurn(results []model.Result) model.Sample {
	messages := []model.Message{{Role: model.RoleSystem, Content: SystemPrompt}}

	for _, result := range results {
		questions, ok := metricQuestions[result.Metric]
		if !ok {
			questions = []string{fmt.Sprintf("What is the %s for {country}?", result.Metric.Label())}
		}
		question := strings.ReplaceAll(questions[0], "{country}", result.Country)

		messages = append(messages,
			model.Message{Role: model.RoleUser, Content: question},
			model.Message{Role: model.RoleAssistant, Content: f.assistantResponse(result)},
		)
	}

	return model.Sample{Messages: messages}
}
