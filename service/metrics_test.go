package service

import (
	"reflect"
	"testing"

	"factorymind-backend/models"
)

func TestFormatMetricsCapsAtFour(t *testing.T) {
	keyMetrics := []string{"A: 1", "B: 2", "C: 3", "D: 4", "E: 5", "F: 6"}
	got := FormatMetrics(keyMetrics, sampleSummary())
	if len(got) != 4 {
		t.Fatalf("expected 4 metrics, got %d", len(got))
	}
	if got[3] != (models.Metric{Label: "D", Value: "4", Trend: models.TrendUp}) {
		t.Errorf("unexpected last metric %+v", got[3])
	}
}

func TestFormatMetricsSplitsOnFirstColon(t *testing.T) {
	got := FormatMetrics([]string{"Shift Start: 06:30", "no colon here", ": empty label"}, sampleSummary())
	if got[0] != (models.Metric{Label: "Shift Start", Value: "06:30", Trend: models.TrendUp}) {
		t.Errorf("unexpected first metric %+v", got[0])
	}
	if got[1].Label != "Total Records" {
		t.Errorf("entries without a label should be skipped, got %+v", got)
	}
}

func TestFormatMetricsDefaults(t *testing.T) {
	got := FormatMetrics(nil, sampleSummary())
	want := []models.Metric{
		{Label: "Total Records", Value: "10", Trend: models.TrendUp},
		{Label: "Columns Analyzed", Value: "3", Trend: models.TrendNeutral},
		{Label: "Anomalies Detected", Value: "1", Trend: models.TrendDown},
		{Label: "Data Completeness", Value: "93.3%", Trend: models.TrendUp},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v\nwant %+v", got, want)
	}
}

func TestFormatMetricsPadsThenTruncates(t *testing.T) {
	got := FormatMetrics([]string{"Uptime: 97%", "OEE: 81%"}, sampleSummary())
	labels := make([]string, len(got))
	for i, m := range got {
		labels[i] = m.Label
	}
	if want := []string{"Uptime", "OEE", "Total Records", "Columns Analyzed"}; !reflect.DeepEqual(labels, want) {
		t.Errorf("labels = %v, want %v", labels, want)
	}
}

func TestDataCompletenessWithoutCells(t *testing.T) {
	got := FormatMetrics(nil, models.DataSummary{ColumnCount: 2})
	last := got[3]
	if last.Value != "N/A" || last.Trend != models.TrendNeutral {
		t.Errorf("expected N/A completeness, got %+v", last)
	}
	if got[2].Trend != models.TrendUp {
		t.Errorf("no anomalies should trend up, got %+v", got[2])
	}
}
