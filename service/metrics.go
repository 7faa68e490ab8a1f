package service

import (
	"fmt"
	"strconv"
	"strings"

	"factorymind-backend/models"
)

// FormatMetrics builds the headline metrics of a report. Up to four
// "label: value" entries from the narrative come first, split on the first
// colon; entries without a colon are skipped. If fewer than four survive, the
// computed dataset metrics are appended. The result never exceeds four.
func FormatMetrics(keyMetrics []string, s models.DataSummary) []models.Metric {
	metrics := make([]models.Metric, 0, models.MaxReportMetrics)

	if len(keyMetrics) > models.MaxReportMetrics {
		keyMetrics = keyMetrics[:models.MaxReportMetrics]
	}
	for _, km := range keyMetrics {
		label, value, ok := strings.Cut(km, ":")
		label = strings.TrimSpace(label)
		if !ok || label == "" {
			continue
		}
		metrics = append(metrics, models.Metric{
			Label: label,
			Value: strings.TrimSpace(value),
			Trend: models.TrendUp,
		})
	}

	if len(metrics) < models.MaxReportMetrics {
		metrics = append(metrics, defaultMetrics(s)...)
	}
	if len(metrics) > models.MaxReportMetrics {
		metrics = metrics[:models.MaxReportMetrics]
	}
	return metrics
}

func defaultMetrics(s models.DataSummary) []models.Metric {
	anomalyTrend := models.TrendUp
	if s.Anomalies.Count > 0 {
		anomalyTrend = models.TrendDown
	}
	completeness, completenessTrend := dataCompleteness(s)

	return []models.Metric{
		{Label: "Total Records", Value: strconv.Itoa(s.RowCount), Trend: models.TrendUp},
		{Label: "Columns Analyzed", Value: strconv.Itoa(s.ColumnCount), Trend: models.TrendNeutral},
		{Label: "Anomalies Detected", Value: strconv.Itoa(s.Anomalies.Count), Trend: anomalyTrend},
		{Label: "Data Completeness", Value: completeness, Trend: completenessTrend},
	}
}

// dataCompleteness is the share of non-missing cells. A table without cells
// has no meaningful completeness.
func dataCompleteness(s models.DataSummary) (string, models.Trend) {
	cells := s.RowCount * s.ColumnCount
	if cells <= 0 {
		return "N/A", models.TrendNeutral
	}
	pct := 100 - float64(s.TotalMissing())/float64(cells)*100
	return fmt.Sprintf("%.1f%%", pct), models.TrendUp
}
