package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"factorymind-backend/models"
	"factorymind-backend/storage"
)

// ReportFileRepository keeps reports in memory and mirrors them to a single
// JSON array file. Each mutation holds the lock for the whole
// read-modify-write cycle and only updates memory after the file is replaced.
type ReportFileRepository struct {
	mu      sync.RWMutex
	path    string
	reports []models.ReportRecord
}

// NewReportFileRepository loads existing reports from path. A missing file
// starts an empty store; an unreadable one is logged and ignored until the
// next mutation overwrites it.
func NewReportFileRepository(path string) (*ReportFileRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %w", err)
	}
	r := &ReportFileRepository{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Println("No existing reports found")
	case err != nil:
		log.Printf("Warning: Failed to read reports from %s: %v. Starting empty.", path, err)
	default:
		var reports []models.ReportRecord
		if err := json.Unmarshal(data, &reports); err != nil {
			log.Printf("Warning: Failed to decode reports from %s: %v. Starting empty.", path, err)
		} else {
			r.reports = reports
			log.Printf("Loaded %d reports from disk", len(reports))
		}
	}
	return r, nil
}

func (r *ReportFileRepository) Append(ctx context.Context, report *models.ReportRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.reports {
		if existing.ID == report.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateReportID, report.ID)
		}
	}
	next := make([]models.ReportRecord, len(r.reports), len(r.reports)+1)
	copy(next, r.reports)
	next = append(next, *report)

	if err := r.save(next); err != nil {
		return err
	}
	r.reports = next
	return nil
}

func (r *ReportFileRepository) List(ctx context.Context) ([]models.ReportRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.ReportRecord, len(r.reports))
	copy(out, r.reports)
	return out, nil
}

// GetByID is a linear scan; report counts are expected to stay small
func (r *ReportFileRepository) GetByID(ctx context.Context, id string) (*models.ReportRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.reports {
		if r.reports[i].ID == id {
			report := r.reports[i]
			return &report, nil
		}
	}
	return nil, ErrReportNotFound
}

func (r *ReportFileRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]models.ReportRecord, 0, len(r.reports))
	for _, report := range r.reports {
		if report.ID != id {
			next = append(next, report)
		}
	}
	if len(next) == len(r.reports) {
		return ErrReportNotFound
	}

	if err := r.save(next); err != nil {
		return err
	}
	r.reports = next
	return nil
}

func (r *ReportFileRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.save([]models.ReportRecord{}); err != nil {
		return err
	}
	r.reports = nil
	return nil
}

func (r *ReportFileRepository) save(reports []models.ReportRecord) error {
	if reports == nil {
		reports = []models.ReportRecord{}
	}
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode reports: %w", err)
	}
	if err := storage.WriteFileAtomic(r.path, data); err != nil {
		return fmt.Errorf("failed to save reports: %w", err)
	}
	return nil
}
