package models

// ColumnStatistics holds descriptive statistics for one numeric column.
// A nil field means the statistic is undefined for the column (no values,
// or too few values for a sample standard deviation).
type ColumnStatistics struct {
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Sum    *float64 `json:"sum"`
}

// AnomalyReport summarizes IQR outliers across numeric columns
type AnomalyReport struct {
	Count   int      `json:"count"`
	Details []string `json:"details"`
}

// DataSummary is the deterministic analysis of one tabular dataset
type DataSummary struct {
	Filename       string                      `json:"filename"`
	RowCount       int                         `json:"total_rows"`
	ColumnCount    int                         `json:"total_columns"`
	Columns        []string                    `json:"columns"`
	NumericColumns []string                    `json:"numeric_columns"`
	Statistics     map[string]ColumnStatistics `json:"statistics"`
	MissingValues  map[string]int              `json:"missing_values"`
	Anomalies      AnomalyReport               `json:"anomalies"`
}

// TotalMissing returns the sum of missing cells across all columns
func (d *DataSummary) TotalMissing() int {
	total := 0
	for _, n := range d.MissingValues {
		total += n
	}
	return total
}
