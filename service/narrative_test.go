package service

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"factorymind-backend/models"
)

func sampleSummary() models.DataSummary {
	mean, total := 4.5, 9.0
	return models.DataSummary{
		Filename:       "line_output.csv",
		RowCount:       10,
		ColumnCount:    3,
		Columns:        []string{"shift", "units", "scrap"},
		NumericColumns: []string{"units"},
		Statistics:     map[string]models.ColumnStatistics{"units": {Mean: &mean, Sum: &total}},
		MissingValues:  map[string]int{"scrap": 2},
		Anomalies:      models.AnomalyReport{Count: 1, Details: []string{"units: 1 outliers"}},
	}
}

func TestParseNarrativeFencedBlock(t *testing.T) {
	raw := "Here is the report:\n```json\n{\"summary\": \"ok\", \"observations\": [\"a\"], \"recommendations\": [\"b\"], \"key_metrics\": [\"X:1\"]}\n```"
	n := ParseNarrative(raw, sampleSummary())

	want := Narrative{
		Summary:         "ok",
		KeyMetrics:      []string{"X:1"},
		Observations:    []string{"a"},
		Recommendations: []string{"b"},
	}
	if !reflect.DeepEqual(n, want) {
		t.Errorf("got %+v, want %+v", n, want)
	}
}

func TestParseNarrativeStrategies(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		summary string
	}{
		{"direct", `{"summary": "direct", "observations": []}`, "direct"},
		{"direct with whitespace", "\n  {\"summary\": \"padded\"}  \n", "padded"},
		{"fence without language", "```\n{\"summary\": \"plain fence\"}\n```", "plain fence"},
		{"brace span", `Sure! {"summary": "embedded", "key_metrics": []} Hope this helps.`, "embedded"},
		{"missing summary", `{"observations": ["x"]}`, DefaultReportSummary},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := ParseNarrative(tc.raw, sampleSummary())
			if n.Summary != tc.summary {
				t.Errorf("summary = %q, want %q", n.Summary, tc.summary)
			}
		})
	}
}

func TestParseNarrativeBrokenFence(t *testing.T) {
	// the widest brace span covers both objects and is not valid JSON either
	raw := "```json\n{\"summary\": oops}\n``` then {\"summary\": \"later\"}"
	n := ParseNarrative(raw, sampleSummary())
	if n.Summary != raw || n.Observations[0] != "Data analysis completed successfully" {
		t.Fatalf("expected fallback record, got %+v", n)
	}
}

func TestParseNarrativeFallback(t *testing.T) {
	raw := strings.Repeat("Production was stable overall. ", 20)
	n := ParseNarrative(raw, sampleSummary())

	if n.Summary != raw[:300] {
		t.Errorf("summary should be the first 300 characters, got %d chars", len(n.Summary))
	}
	wantMetrics := []string{"Total Records: 10", "Columns Analyzed: 3", "Anomalies Found: 1"}
	if !reflect.DeepEqual(n.KeyMetrics, wantMetrics) {
		t.Errorf("key metrics = %v", n.KeyMetrics)
	}
	if len(n.Observations) != 3 || len(n.Recommendations) != 3 {
		t.Errorf("unexpected fallback lists %+v", n)
	}

	short := ParseNarrative("no json here", sampleSummary())
	if short.Summary != "no json here" {
		t.Errorf("short summary = %q", short.Summary)
	}
}

func TestParseNarrativeFlexibleLists(t *testing.T) {
	raw := `{
		"summary": "s",
		"key_metrics": {"Throughput": "120 units/h", "Scrap Rate": 2.5},
		"observations": "single observation",
		"recommendations": [{"label": "Staffing", "value": "add one operator"}, 42, null]
	}`
	n := ParseNarrative(raw, sampleSummary())

	if want := []string{"Throughput: 120 units/h", "Scrap Rate: 2.5"}; !reflect.DeepEqual(n.KeyMetrics, want) {
		t.Errorf("key metrics = %v, want %v", n.KeyMetrics, want)
	}
	if want := []string{"single observation"}; !reflect.DeepEqual(n.Observations, want) {
		t.Errorf("observations = %v", n.Observations)
	}
	if want := []string{"Staffing: add one operator", "42"}; !reflect.DeepEqual(n.Recommendations, want) {
		t.Errorf("recommendations = %v", n.Recommendations)
	}
}

func TestFormatDataSummary(t *testing.T) {
	text := FormatDataSummary(sampleSummary())
	for _, want := range []string{
		"Total Rows: 10\nTotal Columns: 3\n\nColumn Names: shift, units, scrap",
		"\nunits:\n  - mean: 4.5\n  - median: N/A",
		"  - sum: 9",
		"\nMissing Values:\n  - scrap: 2",
		"\nAnomalies Detected: 1\nDetails: units: 1 outliers",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("summary text missing %q:\n%s", want, text)
		}
	}
}

func TestNarrativeGeneratorRequest(t *testing.T) {
	completer := &fakeCompleter{response: "{}"}
	raw, err := NewNarrativeGenerator(completer).Narrate(context.Background(), sampleSummary())
	if err != nil || raw != "{}" {
		t.Fatalf("Narrate = %q, %v", raw, err)
	}
	req := completer.requests[0]
	if req.Temperature != reportTemperature || req.MaxTokens != reportMaxTokens {
		t.Errorf("unexpected request settings %+v", req)
	}
	if !strings.Contains(req.Prompt, "from file: line_output.csv") || !strings.Contains(req.Prompt, "keys: summary, key_metrics, observations, recommendations") {
		t.Errorf("unexpected prompt:\n%s", req.Prompt)
	}
}
