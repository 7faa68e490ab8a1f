package analysis

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"factorymind-backend/models"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Profile computes row/column counts, statistics for numeric columns and
// per-column missing counts. The result depends only on the table contents.
// Anomalies are left empty; see DetectAnomalies.
func Profile(t *Table) models.DataSummary {
	summary := models.DataSummary{
		Filename:       t.Name,
		RowCount:       t.RowCount(),
		ColumnCount:    len(t.Columns),
		Columns:        append([]string{}, t.Columns...),
		NumericColumns: []string{},
		Statistics:     map[string]models.ColumnStatistics{},
		MissingValues:  map[string]int{},
	}

	for i, name := range t.Columns {
		cells := t.column(i)
		missing := 0
		for _, c := range cells {
			if IsNull(c) {
				missing++
			}
		}
		if missing > 0 {
			summary.MissingValues[name] = missing
		}

		values, ok := numericValues(cells)
		if !ok {
			continue
		}
		summary.NumericColumns = append(summary.NumericColumns, name)
		summary.Statistics[name] = describe(values)
	}
	return summary
}

// numericValues parses the non-null cells of a column. ok is false when any
// non-null cell is not a finite number. An all-null column is numeric.
func numericValues(cells []string) ([]float64, bool) {
	values := make([]float64, 0, len(cells))
	for _, c := range cells {
		if IsNull(c) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(c), 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}

// describe returns mean, median, sample std, min, max and sum. Statistics that
// are undefined (empty column, std of one value) or non-finite are nil.
func describe(values []float64) models.ColumnStatistics {
	n := len(values)
	if n == 0 {
		return models.ColumnStatistics{}
	}

	mean, std := stat.MeanStdDev(values, nil)
	stats := models.ColumnStatistics{
		Mean:   finite(mean),
		Median: finite(quantile(sorted(values), 0.5)),
		Min:    finite(floats.Min(values)),
		Max:    finite(floats.Max(values)),
		Sum:    finite(floats.Sum(values)),
	}
	if n > 1 {
		stats.Std = finite(std)
	}
	return stats
}

// quantile uses linear interpolation between closest ranks on sorted input,
// placing rank i at i/(n-1). stat.Quantile with stat.LinInterp interpolates
// the empirical CDF instead, which gives different quartiles on small columns.
func quantile(sortedValues []float64, q float64) float64 {
	n := len(sortedValues)
	if n == 0 {
		return math.NaN()
	}
	pos := float64(n-1) * q
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sortedValues[lo]
	}
	frac := pos - float64(lo)
	return sortedValues[lo] + (sortedValues[hi]-sortedValues[lo])*frac
}

func sorted(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Float64s(out)
	return out
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
