package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"factorymind-backend/analysis"
	"factorymind-backend/models"
	"factorymind-backend/repository"
	"factorymind-backend/storage"

	"github.com/google/uuid"
)

const reportIDAttempts = 3

// ReportService runs dataset analysis and report generation
type ReportService struct {
	store    repository.ReportStore
	narrator Narrator
	storage  storage.Storage
	now      func() time.Time
}

// ReportServiceOption is a functional option for ReportService
type ReportServiceOption func(*ReportService)

// ReportWithStore sets the report store
func ReportWithStore(store repository.ReportStore) ReportServiceOption {
	return func(s *ReportService) {
		s.store = store
	}
}

// ReportWithNarrator sets the narrative backend
func ReportWithNarrator(narrator Narrator) ReportServiceOption {
	return func(s *ReportService) {
		s.narrator = narrator
	}
}

// ReportWithStorage keeps a copy of every uploaded dataset
func ReportWithStorage(st storage.Storage) ReportServiceOption {
	return func(s *ReportService) {
		s.storage = st
	}
}

// ReportWithClock overrides the time source used for report ids and dates
func ReportWithClock(now func() time.Time) ReportServiceOption {
	return func(s *ReportService) {
		s.now = now
	}
}

// NewReportService creates a new report service
func NewReportService(opts ...ReportServiceOption) *ReportService {
	s := &ReportService{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeFile loads a CSV or XLSX dataset and returns its profile and anomalies
func (s *ReportService) AnalyzeFile(ctx context.Context, filename string, r io.Reader) (*models.DataSummary, error) {
	name := filepath.Base(filename)
	if !analysis.IsSupported(name) {
		return nil, fmt.Errorf("%w: %s", analysis.ErrUnsupportedFileType, name)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	s.keepUpload(ctx, name, data)

	table, err := analysis.Load(name, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	summary := analysis.Analyze(table)
	summary.Filename = name
	log.Printf("Analyzed %s: %d rows, %d columns, %d anomalies",
		name, summary.RowCount, summary.ColumnCount, summary.Anomalies.Count)
	return &summary, nil
}

// keepUpload stores the raw dataset; failures only cost the archived copy
func (s *ReportService) keepUpload(ctx context.Context, name string, data []byte) {
	if s.storage == nil {
		return
	}
	key, err := s.storage.Save(ctx, storage.KindDataset, uuid.New(), name, bytes.NewReader(data))
	if err != nil {
		log.Printf("Warning: Failed to store dataset %s: %v", name, err)
		return
	}
	log.Printf("Stored dataset %s at %s", name, key)
}

// GenerateReport analyzes the dataset, asks the narrator for a report and
// persists the assembled record
func (s *ReportService) GenerateReport(ctx context.Context, filename string, r io.Reader) (*models.ReportRecord, error) {
	if s.store == nil {
		return nil, errors.New("report store not set")
	}
	if s.narrator == nil {
		return nil, errors.New("narrator not set")
	}

	summary, err := s.AnalyzeFile(ctx, filename, r)
	if err != nil {
		return nil, err
	}

	raw, err := s.narrator.Narrate(ctx, *summary)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report narrative: %w", err)
	}

	report := AssembleReport(*summary, ParseNarrative(raw, *summary), s.now())

	for attempt := 1; ; attempt++ {
		err = s.store.Append(ctx, report)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateReportID) || attempt == reportIDAttempts {
			return nil, fmt.Errorf("failed to save report: %w", err)
		}
		report.ID = newReportID(s.now())
	}

	log.Printf("Report generated successfully: %s", report.ID)
	return report, nil
}

// AssembleReport combines an analysis with its parsed narrative
func AssembleReport(summary models.DataSummary, n Narrative, now time.Time) *models.ReportRecord {
	observations := n.Observations
	if observations == nil {
		observations = []string{}
	}
	recommendations := n.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}
	return &models.ReportRecord{
		ID:              newReportID(now),
		Title:           reportTitle(summary.Filename),
		Date:            now.Format(time.RFC3339),
		Filename:        summary.Filename,
		Summary:         n.Summary,
		Metrics:         FormatMetrics(n.KeyMetrics, summary),
		Observations:    observations,
		Recommendations: recommendations,
		RawDataSummary:  summary,
	}
}

// newReportID is the timestamp plus a short random suffix so two reports in
// the same second do not collide
func newReportID(now time.Time) string {
	return now.Format("20060102_150405") + "_" + uuid.NewString()[:6]
}

func reportTitle(filename string) string {
	base := filename
	for _, ext := range []string{".csv", ".xlsx"} {
		if strings.HasSuffix(strings.ToLower(base), ext) {
			base = base[:len(base)-len(ext)]
			break
		}
	}
	return "Operations Report - " + base
}

// ListReports returns every report in creation order
func (s *ReportService) ListReports(ctx context.Context) ([]models.ReportRecord, error) {
	if s.store == nil {
		return nil, errors.New("report store not set")
	}
	return s.store.List(ctx)
}

// GetReport returns a report or repository.ErrReportNotFound
func (s *ReportService) GetReport(ctx context.Context, id string) (*models.ReportRecord, error) {
	if s.store == nil {
		return nil, errors.New("report store not set")
	}
	return s.store.GetByID(ctx, id)
}

// DeleteReport removes a report or returns repository.ErrReportNotFound
func (s *ReportService) DeleteReport(ctx context.Context, id string) error {
	if s.store == nil {
		return errors.New("report store not set")
	}
	return s.store.Delete(ctx, id)
}

// ClearReports removes every report
func (s *ReportService) ClearReports(ctx context.Context) error {
	if s.store == nil {
		return errors.New("report store not set")
	}
	return s.store.Clear(ctx)
}

// ReportCount is used by the health endpoint; errors count as zero
func (s *ReportService) ReportCount(ctx context.Context) int {
	if s.store == nil {
		return 0
	}
	reports, err := s.store.List(ctx)
	if err != nil {
		log.Printf("Warning: Failed to count reports: %v", err)
		return 0
	}
	return len(reports)
}
