package format

import (
	"strings"
	"testing"
	"time"

	"github.com/macroscope-data/macroscope/internal/model"
)

func sampleResult() model.Result {
	return model.Result{
		Metric:      model.MetricInflation,
		Country:     "United States",
		CountryCode: "USA",
		Period:      "2025-06-01",
		Confidence:  model.ConfidenceHigh,
		Consensus:   model.Float64(3.3),
		Spread:      0.2,
		Readings: []model.Reading{
			{Source: "FRED", Value: model.Float64(3.4), Period: "2025-06-01", Unit: "percent"},
			{Source: "World Bank", Value: model.Float64(3.2), Period: "2024", Unit: "percent"},
			{Source: "OECD", Value: model.Float64(3.3), Period: "2024", Unit: "percent"},
		},
		SourcesUsed:    []string{"FRED", "World Bank", "OECD"},
		Explanation:    "All sources agree: FRED (3.40%), World Bank (3.20%), OECD (3.30%).",
		TriangulatedAt: time.Now().UTC(),
	}
}

func noDataResult() model.Result {
	return model.Result{
		Metric:      model.MetricGDPGrowth,
		Country:     "China",
		CountryCode: "CHN",
		Period:      "N/A",
		Confidence:  model.ConfidenceNoData,
		Readings: []model.Reading{
			{Source: "FRED", Err: "timeout", Period: "N/A"},
			{Source: "World Bank", Err: "no data available", Period: "N/A"},
			{Source: "OECD", Err: "no datasets in response", Period: "N/A"},
		},
		Explanation: "No data available from any source.",
	}
}

func TestText_NamesConsensusConfidenceAndSources(t *testing.T) {
	text := New().Text(sampleResult())

	for _, want := range []string{"3.30%", "high confidence", "FRED", "World Bank", "OECD", "2025-06-01"} {
		if !strings.Contains(text, want) {
			t.Errorf("Display text missing %q:\n%s", want, text)
		}
	}
}

func TestText_NoDataRendersGracefully(t *testing.T) {
	text := New().Text(noDataResult())

	if !strings.Contains(text, "No data available") {
		t.Errorf("NO_DATA text should say so:\n%s", text)
	}
	// CHN gdp_growth has a static reference value
	if !strings.Contains(text, "reference value") {
		t.Errorf("NO_DATA text should offer the static reference value:\n%s", text)
	}
	if !strings.Contains(text, "5.20%") {
		t.Errorf("Expected CHN gdp_growth reference 5.20%%:\n%s", text)
	}
}

func TestSample_Structure(t *testing.T) {
	sample := New().Sample(sampleResult(), 0)

	if len(sample.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(sample.Messages))
	}
	if sample.Messages[0].Role != model.RoleSystem || sample.Messages[0].Content != SystemPrompt {
		t.Error("First message should be the system prompt")
	}
	if sample.Messages[1].Role != model.RoleUser {
		t.Error("Second message should be the user question")
	}
	if !strings.Contains(sample.Messages[1].Content, "United States") {
		t.Errorf("Question should name the country: %s", sample.Messages[1].Content)
	}
	if sample.Messages[2].Role != model.RoleAssistant {
		t.Error("Third message should be the assistant answer")
	}
	answer := sample.Messages[2].Content
	for _, want := range []string{"3.30%", "FRED (3.40%)", "Confidence Level", "Risk Assessment"} {
		if !strings.Contains(answer, want) {
			t.Errorf("Assistant answer missing %q:\n%s", want, answer)
		}
	}
}

func TestSample_VariantsRotate(t *testing.T) {
	f := New()
	result := sampleResult()

	q0 := f.Sample(result, 0).Messages[1].Content
	q1 := f.Sample(result, 1).Messages[1].Content
	if q0 == q1 {
		t.Error("Expected different question variants")
	}

	// Variant index wraps around the question bank
	qWrapped := f.Sample(result, 4).Messages[1].Content
	if qWrapped != q0 {
		t.Errorf("Expected variant 4 to wrap to variant 0: %q vs %q", qWrapped, q0)
	}
}

func TestSample_NoData(t *testing.T) {
	sample := New().Sample(noDataResult(), 0)

	answer := sample.Messages[2].Content
	if !strings.Contains(answer, "Unable to provide a reliable estimate") {
		t.Errorf("NO_DATA answer should degrade gracefully:\n%s", answer)
	}
}

func TestMultiTurn(t *testing.T) {
	inflation := sampleResult()
	gdp := sampleResult()
	gdp.Metric = model.MetricGDPGrowth
	gdp.Consensus = model.Float64(2.5)

	sample := New().MultiTurn([]model.Result{inflation, gdp})

	// system + 2 × (user, assistant)
	if len(sample.Messages) != 5 {
		t.Fatalf("Expected 5 messages, got %d", len(sample.Messages))
	}
	if sample.Messages[0].Role != model.RoleSystem {
		t.Error("First message should be system")
	}
	for i := 1; i < len(sample.Messages); i += 2 {
		if sample.Messages[i].Role != model.RoleUser {
			t.Errorf("Message %d should be user, got %s", i, sample.Messages[i].Role)
		}
		if sample.Messages[i+1].Role != model.RoleAssistant {
			t.Errorf("Message %d should be assistant, got %s", i+1, sample.Messages[i+1].Role)
		}
	}
}

func TestAssessRisk(t *testing.T) {
	tests := []struct {
		metric model.Metric
		value  float64
		want   string
	}{
		// GDP growth is inverted: low growth is high risk
		{model.MetricGDPGrowth, 4.5, "low"},
		{model.MetricGDPGrowth, 3.0, "moderate"},
		{model.MetricGDPGrowth, 1.5, "elevated"},
		{model.MetricGDPGrowth, 0.3, "high"},
		{model.MetricInflation, 1.5, "low"},
		{model.MetricInflation, 3.0, "moderate"},
		{model.MetricInflation, 5.0, "elevated"},
		{model.MetricInflation, 8.0, "high"},
		{model.MetricUnemployment, 3.7, "low"},
		{model.MetricInterestRate, 5.33, "elevated"},
	}

	for _, tt := range tests {
		if got := assessRisk(tt.metric, &tt.value); got != tt.want {
			t.Errorf("assessRisk(%s, %.2f) = %q, want %q", tt.metric, tt.value, got, tt.want)
		}
	}

	if got := assessRisk(model.MetricInflation, nil); got != "undetermined" {
		t.Errorf("assessRisk(nil) = %q, want undetermined", got)
	}
}

func TestImplicationNotes(t *testing.T) {
	f := New()

	weakGrowth := sampleResult()
	weakGrowth.Metric = model.MetricGDPGrowth
	weakGrowth.Consensus = model.Float64(0.5)
	if !strings.Contains(f.assistantResponse(weakGrowth), "recession risk") {
		t.Error("Weak GDP growth should carry a recession note")
	}

	hotInflation := sampleResult()
	hotInflation.Consensus = model.Float64(6.5)
	if !strings.Contains(f.assistantResponse(hotInflation), "purchasing power") {
		t.Error("Elevated inflation should carry a purchasing power note")
	}
}
