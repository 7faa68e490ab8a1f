package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Trend represents the direction shown next to a metric
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// MaxReportMetrics bounds the number of metrics on a report
const MaxReportMetrics = 4

// Metric is a single headline figure on a report
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Trend Trend  `json:"trend"`
}

// ReportRecord is the persisted output of data analysis plus narrative generation
type ReportRecord struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Date            string      `json:"date"`
	Filename        string      `json:"filename"`
	Summary         string      `json:"summary"`
	Metrics         []Metric    `json:"metrics"`
	Observations    []string    `json:"observations"`
	Recommendations []string    `json:"recommendations"`
	RawDataSummary  DataSummary `json:"raw_data_summary"`
}

// Value implements driver.Valuer for JSONB
func (r ReportRecord) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB
func (r *ReportRecord) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	case nil:
		return fmt.Errorf("report payload is NULL")
	default:
		return fmt.Errorf("unsupported report payload type %T", value)
	}
	return json.Unmarshal(bytes, r)
}
