package analysis

import (
	"fmt"
	"log"

	"factorymind-backend/models"
)

const (
	iqrMultiplier = 1.5

	NoAnomaliesDetail     = "No significant anomalies detected"
	DetectionFailedDetail = "Anomaly detection failed"
)

// DetectAnomalies flags values outside [Q1-1.5*IQR, Q3+1.5*IQR] in each
// numeric column. Counts are per column: a row outlying in two columns is
// counted twice. Detection is best effort; any failure is logged and yields a
// zero-count report instead of an error.
func DetectAnomalies(t *Table, numericColumns []string) (report models.AnomalyReport) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Warning: Anomaly detection panicked: %v", r)
			report = failedReport()
		}
	}()

	report, err := detect(t, numericColumns)
	if err != nil {
		log.Printf("Warning: Error detecting anomalies: %v", err)
		return failedReport()
	}
	return report
}

func detect(t *Table, numericColumns []string) (models.AnomalyReport, error) {
	var report models.AnomalyReport
	for _, col := range numericColumns {
		i := t.ColumnIndex(col)
		if i < 0 {
			return models.AnomalyReport{}, fmt.Errorf("column %q not found", col)
		}
		values, ok := numericValues(t.column(i))
		if !ok {
			return models.AnomalyReport{}, fmt.Errorf("column %q is not numeric", col)
		}
		if len(values) == 0 {
			continue
		}

		s := sorted(values)
		q1 := quantile(s, 0.25)
		q3 := quantile(s, 0.75)
		iqr := q3 - q1
		lower := q1 - iqrMultiplier*iqr
		upper := q3 + iqrMultiplier*iqr

		outliers := 0
		for _, v := range values {
			if v < lower || v > upper {
				outliers++
			}
		}
		if outliers > 0 {
			report.Count += outliers
			report.Details = append(report.Details, fmt.Sprintf("%s: %d outliers", col, outliers))
		}
	}
	if len(report.Details) == 0 {
		report.Details = []string{NoAnomaliesDetail}
	}
	return report, nil
}

func failedReport() models.AnomalyReport {
	return models.AnomalyReport{Count: 0, Details: []string{DetectionFailedDetail}}
}

// Analyze profiles the table and attaches its anomaly report
func Analyze(t *Table) models.DataSummary {
	summary := Profile(t)
	summary.Anomalies = DetectAnomalies(t, summary.NumericColumns)
	return summary
}
