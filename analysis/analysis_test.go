package analysis

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const productionCSV = "line,output,operator,temp\n" +
	"A,10,bob,1.5\n" +
	"B,20,,2.5\n" +
	"C,NA,amy,\n" +
	"D,30,joe,4\n"

func mustLoad(t *testing.T, name, content string) *Table {
	t.Helper()
	tbl, err := Load(name, strings.NewReader(content))
	if err != nil {
		t.Fatalf("Load(%s): %v", name, err)
	}
	return tbl
}

func TestProfile(t *testing.T) {
	s := Profile(mustLoad(t, "production.csv", productionCSV))

	if s.Filename != "production.csv" || s.RowCount != 4 || s.ColumnCount != 4 {
		t.Fatalf("unexpected shape: %+v", s)
	}
	if !reflect.DeepEqual(s.NumericColumns, []string{"output", "temp"}) {
		t.Errorf("unexpected numeric columns %v", s.NumericColumns)
	}

	out := s.Statistics["output"]
	checks := map[string]struct {
		got  *float64
		want float64
	}{
		"mean":   {out.Mean, 20},
		"median": {out.Median, 20},
		"std":    {out.Std, 10},
		"min":    {out.Min, 10},
		"max":    {out.Max, 30},
		"sum":    {out.Sum, 60},
	}
	for name, c := range checks {
		if c.got == nil || *c.got != c.want {
			t.Errorf("output %s: expected %v, got %v", name, c.want, c.got)
		}
	}
	if sum := s.Statistics["temp"].Sum; sum == nil || *sum != 8 {
		t.Errorf("temp sum: expected 8, got %v", sum)
	}

	wantMissing := map[string]int{"output": 1, "operator": 1, "temp": 1}
	if !reflect.DeepEqual(s.MissingValues, wantMissing) {
		t.Errorf("expected missing %v, got %v", wantMissing, s.MissingValues)
	}
	if s.TotalMissing() != 3 {
		t.Errorf("expected 3 missing cells, got %d", s.TotalMissing())
	}
	if _, ok := s.Statistics["line"]; ok {
		t.Error("non-numeric column must not have statistics")
	}
}

func TestProfileUndefinedStatistics(t *testing.T) {
	s := Profile(mustLoad(t, "sparse.csv", "a,b,c\n1,,7\n2,,\n"))

	b, ok := s.Statistics["b"]
	if !ok {
		t.Fatal("all-null column should be profiled as numeric")
	}
	if b.Mean != nil || b.Median != nil || b.Std != nil || b.Min != nil || b.Max != nil || b.Sum != nil {
		t.Errorf("expected all statistics nil, got %+v", b)
	}
	if s.Statistics["c"].Std != nil {
		t.Error("std of a single value should be nil")
	}
	if m := s.Statistics["c"].Mean; m == nil || *m != 7 {
		t.Errorf("expected mean 7, got %v", m)
	}
	if s.MissingValues["b"] != 2 || s.MissingValues["c"] != 1 {
		t.Errorf("unexpected missing %v", s.MissingValues)
	}
	for col, n := range s.MissingValues {
		if n == 0 {
			t.Errorf("zero entry for %s", col)
		}
	}
}

func TestProfileIsDeterministic(t *testing.T) {
	tbl := mustLoad(t, "production.csv", productionCSV)
	first := Analyze(tbl)
	second := Analyze(tbl)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("profiling the same table twice gave different results:\n%+v\n%+v", first, second)
	}
}

func TestDetectAnomaliesIQR(t *testing.T) {
	tbl := mustLoad(t, "values.csv", "value\n1\n2\n3\n4\n5\n100\n")
	report := DetectAnomalies(tbl, []string{"value"})
	if report.Count != 1 {
		t.Fatalf("expected exactly one outlier, got %d", report.Count)
	}
	if !reflect.DeepEqual(report.Details, []string{"value: 1 outliers"}) {
		t.Errorf("unexpected details %v", report.Details)
	}

	s := sorted([]float64{1, 2, 3, 4, 5, 100})
	if q1, q3 := quantile(s, 0.25), quantile(s, 0.75); q1 != 2.25 || q3 != 4.75 {
		t.Errorf("expected Q1=2.25 Q3=4.75, got %v %v", q1, q3)
	}
}

func TestDetectAnomaliesCountsPerColumn(t *testing.T) {
	tbl := mustLoad(t, "two.csv", "a,b\n1,1\n2,2\n3,3\n4,4\n5,5\n100,100\n")
	report := DetectAnomalies(tbl, []string{"a", "b"})
	if report.Count != 2 {
		t.Errorf("a row outlying in two columns should count twice, got %d", report.Count)
	}
	if len(report.Details) != 2 {
		t.Errorf("expected one detail per column, got %v", report.Details)
	}
}

func TestDetectAnomaliesNone(t *testing.T) {
	tbl := mustLoad(t, "flat.csv", "x\n1\n2\n3\n")
	report := DetectAnomalies(tbl, []string{"x"})
	if report.Count != 0 || !reflect.DeepEqual(report.Details, []string{NoAnomaliesDetail}) {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestDetectAnomaliesDegrades(t *testing.T) {
	tbl := mustLoad(t, "flat.csv", "x\n1\n2\n3\n")
	want := []string{DetectionFailedDetail}

	report := DetectAnomalies(tbl, []string{"missing"})
	if report.Count != 0 || !reflect.DeepEqual(report.Details, want) {
		t.Errorf("unknown column: unexpected report %+v", report)
	}

	report = DetectAnomalies(nil, []string{"x"})
	if report.Count != 0 || !reflect.DeepEqual(report.Details, want) {
		t.Errorf("nil table: unexpected report %+v", report)
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	_, err := Load("notes.txt", strings.NewReader("hello"))
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("expected ErrUnsupportedFileType, got %v", err)
	}
	if IsSupported("notes.txt") || !IsSupported("DATA.CSV") {
		t.Error("IsSupported returned the wrong answer")
	}
}

func TestLoadEmptyCSV(t *testing.T) {
	if _, err := Load("empty.csv", strings.NewReader("")); !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
}

func TestLoadNormalizesHeaderAndRows(t *testing.T) {
	tbl := mustLoad(t, "ragged.csv", "\ufeffid,,id\n1,2\n3,4,5,6\n")
	if !reflect.DeepEqual(tbl.Columns, []string{"id", "Unnamed: 1", "id.1"}) {
		t.Errorf("unexpected columns %v", tbl.Columns)
	}
	if !reflect.DeepEqual(tbl.Rows[0], []string{"1", "2", ""}) {
		t.Errorf("short row not padded: %v", tbl.Rows[0])
	}
	if len(tbl.Rows[1]) != 3 {
		t.Errorf("long row not truncated: %v", tbl.Rows[1])
	}
}

func TestLoadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	rows := [][]interface{}{
		{"machine", "downtime"},
		{"press", 12},
		{"lathe", 3},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	tbl, err := Load("shift.xlsx", buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := Profile(tbl)
	if s.RowCount != 2 || !reflect.DeepEqual(s.NumericColumns, []string{"downtime"}) {
		t.Errorf("unexpected summary %+v", s)
	}
	if sum := s.Statistics["downtime"].Sum; sum == nil || *sum != 15 {
		t.Errorf("expected downtime sum 15, got %v", sum)
	}
}

func TestQuantileMatchesClosestRankInterpolation(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	cases := map[float64]float64{0: 1, 0.25: 1.75, 0.5: 2.5, 0.75: 3.25, 1: 4}
	for q, want := range cases {
		if got := quantile(values, q); got != want {
			t.Errorf("quantile(%v) = %v, want %v", q, got, want)
		}
	}
}
