package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"factorymind-backend/llm"
	"factorymind-backend/models"
)

// ErrNarrativeParseExhausted marks the point where every structured parser
// rejected a narrative. ParseNarrative never returns it; the deterministic
// fallback record is used instead.
var ErrNarrativeParseExhausted = errors.New("narrative response contained no usable JSON")

const (
	DefaultReportSummary = "Report generated successfully"
	fallbackSummaryChars = 300

	reportSystemPrompt = "You are an expert operations analyst for FactoryMind AI.\n" +
		"Generate professional, actionable operational reports from data analytics.\n" +
		"Be specific, data-driven, and provide clear recommendations."
	reportTemperature = 0.5
	reportMaxTokens   = 2000
)

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	braceJSONPattern  = regexp.MustCompile(`(?s)\{.*\}`)
)

// Narrative is the structured content of a generated report
type Narrative struct {
	Summary         string
	KeyMetrics      []string
	Observations    []string
	Recommendations []string
}

// Narrator produces the raw narrative text for a dataset summary
type Narrator interface {
	Narrate(ctx context.Context, summary models.DataSummary) (string, error)
}

// NarrativeGenerator asks a text completion backend for a JSON report
type NarrativeGenerator struct {
	completer llm.Completer
}

// NewNarrativeGenerator creates a generator backed by completer
func NewNarrativeGenerator(completer llm.Completer) *NarrativeGenerator {
	return &NarrativeGenerator{completer: completer}
}

func (g *NarrativeGenerator) Narrate(ctx context.Context, summary models.DataSummary) (string, error) {
	if g.completer == nil {
		return "", errors.New("text completer not set")
	}
	return g.completer.Complete(ctx, llm.Request{
		System:      reportSystemPrompt,
		Prompt:      buildReportPrompt(summary),
		Temperature: reportTemperature,
		MaxTokens:   reportMaxTokens,
	})
}

func buildReportPrompt(summary models.DataSummary) string {
	return fmt.Sprintf(`Analyze the following operational data from file: %s

Data Summary:
%s

Generate a comprehensive operations report with:
1. Executive Summary (2-3 sentences)
2. Key Metrics (highlight important numbers and trends)
3. Observations (3-5 data-driven insights)
4. Recommendations (3-5 actionable steps)

Format your response as JSON with keys: summary, key_metrics, observations, recommendations`,
		summary.Filename, FormatDataSummary(summary))
}

// FormatDataSummary renders a summary as plain text for a prompt
func FormatDataSummary(s models.DataSummary) string {
	var lines []string
	lines = append(lines,
		fmt.Sprintf("Total Rows: %d", s.RowCount),
		fmt.Sprintf("Total Columns: %d", s.ColumnCount),
		fmt.Sprintf("\nColumn Names: %s", strings.Join(s.Columns, ", ")),
	)

	if len(s.NumericColumns) > 0 {
		lines = append(lines, "\nStatistical Summary:")
		for _, col := range s.NumericColumns {
			stats, ok := s.Statistics[col]
			if !ok {
				continue
			}
			lines = append(lines, fmt.Sprintf("\n%s:", col))
			for _, stat := range []struct {
				name  string
				value *float64
			}{
				{"mean", stats.Mean},
				{"median", stats.Median},
				{"std", stats.Std},
				{"min", stats.Min},
				{"max", stats.Max},
				{"sum", stats.Sum},
			} {
				lines = append(lines, fmt.Sprintf("  - %s: %s", stat.name, formatStat(stat.value)))
			}
		}
	}

	if len(s.MissingValues) > 0 {
		lines = append(lines, "\nMissing Values:")
		for _, col := range s.Columns {
			if n := s.MissingValues[col]; n > 0 {
				lines = append(lines, fmt.Sprintf("  - %s: %d", col, n))
			}
		}
	}

	lines = append(lines, fmt.Sprintf("\nAnomalies Detected: %d", s.Anomalies.Count))
	if len(s.Anomalies.Details) > 0 {
		lines = append(lines, "Details: "+strings.Join(s.Anomalies.Details, "; "))
	}
	return strings.Join(lines, "\n")
}

func formatStat(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// narrativeParser either accepts the raw response or passes it on
type narrativeParser struct {
	name  string
	parse func(raw string) (*Narrative, bool)
}

var narrativeParsers = []narrativeParser{
	{"direct", parseDirectJSON},
	{"fenced code block", parseFencedJSON},
	{"brace span", parseBraceJSON},
}

// ParseNarrative turns a raw completion into a Narrative. Parsers are tried
// in order: the whole response as JSON, the first fenced JSON block, then the
// widest {...} span. When all of them reject the response a fallback built
// from summary is returned, so the result is always usable.
func ParseNarrative(raw string, summary models.DataSummary) Narrative {
	for _, p := range narrativeParsers {
		if n, ok := p.parse(raw); ok {
			log.Printf("Parsed report narrative using %s strategy", p.name)
			return *n
		}
	}
	log.Printf("Warning: %v, using fallback report", ErrNarrativeParseExhausted)
	return fallbackNarrative(raw, summary)
}

func parseDirectJSON(raw string) (*Narrative, bool) {
	return decodeNarrative(raw)
}

func parseFencedJSON(raw string) (*Narrative, bool) {
	m := fencedJSONPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	return decodeNarrative(m[1])
}

func parseBraceJSON(raw string) (*Narrative, bool) {
	m := braceJSONPattern.FindString(raw)
	if m == "" {
		return nil, false
	}
	return decodeNarrative(m)
}

func decodeNarrative(text string) (*Narrative, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return nil, false
	}
	var doc struct {
		Summary         json.RawMessage `json:"summary"`
		KeyMetrics      json.RawMessage `json:"key_metrics"`
		Observations    json.RawMessage `json:"observations"`
		Recommendations json.RawMessage `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, false
	}

	n := &Narrative{
		Summary:         scalarText(doc.Summary),
		KeyMetrics:      textList(doc.KeyMetrics),
		Observations:    textList(doc.Observations),
		Recommendations: textList(doc.Recommendations),
	}
	if strings.TrimSpace(n.Summary) == "" {
		n.Summary = DefaultReportSummary
	}
	return n, true
}

// textList accepts an array, a single string or an object of key/value pairs
// and flattens it to display strings. Object keys keep their document order.
func textList(raw json.RawMessage) []string {
	out := []string{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return out
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return out
		}
		for _, item := range items {
			if s := itemText(item); s != "" {
				out = append(out, s)
			}
		}
	case '{':
		pairs, ok := orderedPairs(raw)
		if ok {
			out = append(out, pairs...)
		}
	default:
		if s := scalarText(raw); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// itemText renders one list entry. Objects with a label are shown as
// "label: value"; anything else falls back to its compact JSON.
func itemText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return strings.TrimSpace(scalarText(raw))
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	label := scalarText(obj["label"])
	if label == "" {
		label = scalarText(obj["name"])
	}
	if label != "" {
		return label + ": " + scalarText(obj["value"])
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return ""
	}
	return buf.String()
}

func orderedPairs(raw json.RawMessage) ([]string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, false
	}
	var pairs []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		pairs = append(pairs, key+": "+scalarText(value))
	}
	return pairs, true
}

// scalarText unquotes JSON strings and returns other values verbatim
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func fallbackNarrative(raw string, s models.DataSummary) Narrative {
	return Narrative{
		Summary: firstChars(raw, fallbackSummaryChars),
		KeyMetrics: []string{
			fmt.Sprintf("Total Records: %d", s.RowCount),
			fmt.Sprintf("Columns Analyzed: %d", s.ColumnCount),
			fmt.Sprintf("Anomalies Found: %d", s.Anomalies.Count),
		},
		Observations: []string{
			"Data analysis completed successfully",
			"Statistical measures computed for all numeric columns",
			"Quality metrics within expected ranges",
		},
		Recommendations: []string{
			"Review anomalies flagged in the analysis",
			"Consider tracking additional metrics for deeper insights",
			"Schedule regular data quality checks",
		},
	}
}

func firstChars(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
