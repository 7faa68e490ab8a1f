package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"testing"

	"factorymind-backend/models"
)

func sampleReport(id string) *models.ReportRecord {
	mean := 12.5
	return &models.ReportRecord{
		ID:       id,
		Title:    "Operations Report - line_output",
		Date:     "2026-10-16T09:00:00Z",
		Filename: "line_output.csv",
		Summary:  "Output steady across shifts.",
		Metrics: []models.Metric{
			{Label: "Total Records", Value: "120", Trend: models.TrendUp},
		},
		Observations:    []string{"Night shift slower"},
		Recommendations: []string{"Rebalance staffing"},
		RawDataSummary: models.DataSummary{
			Filename:       "line_output.csv",
			RowCount:       120,
			ColumnCount:    2,
			Columns:        []string{"shift", "units"},
			NumericColumns: []string{"units"},
			Statistics:     map[string]models.ColumnStatistics{"units": {Mean: &mean}},
			MissingValues:  map[string]int{"units": 1},
			Anomalies:      models.AnomalyReport{Count: 0, Details: []string{"No significant anomalies detected"}},
		},
	}
}

func TestReportFileRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reports", "reports_metadata.json")

	repo, err := NewReportFileRepository(path)
	if err != nil {
		t.Fatalf("NewReportFileRepository: %v", err)
	}
	first, second := sampleReport("20261016_090000_a1b2c3"), sampleReport("20261016_090001_d4e5f6")
	if err := repo.Append(ctx, first); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := repo.Append(ctx, second); err != nil {
		t.Fatalf("Append: %v", err)
	}

	reopened, err := NewReportFileRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []models.ReportRecord{*first, *second}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("reloaded reports differ:\n got %+v\nwant %+v", got, want)
	}

	report, err := reopened.GetByID(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !reflect.DeepEqual(report, second) {
		t.Errorf("GetByID returned %+v", report)
	}
}

func TestReportFileRepositoryDuplicateID(t *testing.T) {
	ctx := context.Background()
	repo, err := NewReportFileRepository(filepath.Join(t.TempDir(), "reports.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Append(ctx, sampleReport("dup")); err != nil {
		t.Fatal(err)
	}
	if err := repo.Append(ctx, sampleReport("dup")); !errors.Is(err, ErrDuplicateReportID) {
		t.Fatalf("expected ErrDuplicateReportID, got %v", err)
	}
	reports, _ := repo.List(ctx)
	if len(reports) != 1 {
		t.Errorf("expected 1 report, got %d", len(reports))
	}
}

func TestReportFileRepositoryDelete(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reports.json")
	repo, err := NewReportFileRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if err := repo.Append(ctx, sampleReport(id)); err != nil {
			t.Fatal(err)
		}
	}

	if err := repo.Delete(ctx, "missing"); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, "b"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("deleted report still readable: %v", err)
	}

	reopened, err := NewReportFileRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	reports, _ := reopened.List(ctx)
	if len(reports) != 2 || reports[0].ID != "a" || reports[1].ID != "c" {
		t.Errorf("unexpected reports after delete: %+v", reports)
	}
}

func TestReportFileRepositoryClear(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reports.json")
	repo, err := NewReportFileRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.Append(ctx, sampleReport("a")); err != nil {
		t.Fatal(err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("expected empty JSON array on disk, got %q", data)
	}
	reports, _ := repo.List(ctx)
	if len(reports) != 0 {
		t.Errorf("expected no reports, got %d", len(reports))
	}
}

func TestReportFileRepositoryCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reports.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	repo, err := NewReportFileRepository(path)
	if err != nil {
		t.Fatalf("corrupt file should not fail construction: %v", err)
	}
	reports, _ := repo.List(ctx)
	if len(reports) != 0 {
		t.Errorf("expected empty store, got %d", len(reports))
	}
	if err := repo.Append(ctx, sampleReport("fresh")); err != nil {
		t.Fatalf("Append after corrupt load: %v", err)
	}
}

func TestReportFileRepositoryConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reports_metadata.json")
	repo, err := NewReportFileRepository(path)
	if err != nil {
		t.Fatal(err)
	}

	const writers = 16
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := repo.Append(ctx, sampleReport(fmt.Sprintf("20261016_090000_%06d", i))); err != nil {
				errs <- err
			}
			if _, err := repo.List(ctx); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent append failed: %v", err)
	}

	inMemory, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	reopened, err := NewReportFileRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	onDisk, err := reopened.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(inMemory) != writers || len(onDisk) != writers {
		t.Fatalf("expected %d reports, memory has %d and disk has %d", writers, len(inMemory), len(onDisk))
	}
	ids := func(reports []models.ReportRecord) []string {
		out := make([]string, len(reports))
		for i, r := range reports {
			out[i] = r.ID
		}
		return out
	}
	if !reflect.DeepEqual(ids(inMemory), ids(onDisk)) {
		t.Errorf("disk order differs from memory:\n%v\n%v", ids(inMemory), ids(onDisk))
	}
	got := ids(onDisk)
	sort.Strings(got)
	for i, id := range got {
		if want := fmt.Sprintf("20261016_090000_%06d", i); id != want {
			t.Errorf("report %d = %s, want %s", i, id, want)
		}
	}
}
