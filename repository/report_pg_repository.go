package repository

import (
	"context"
	"errors"
	"fmt"

	"factorymind-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportsSchema creates the table used by ReportPGRepository
const ReportsSchema = `
	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		seq BIGSERIAL NOT NULL,
		payload JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_reports_seq ON reports(seq);`

const uniqueViolation = "23505"

// ReportPGRepository stores each report as a JSONB row, ordered by insertion
type ReportPGRepository struct {
	db *pgxpool.Pool
}

// NewReportPGRepository creates a new Postgres-backed report store
func NewReportPGRepository(db *pgxpool.Pool) *ReportPGRepository {
	return &ReportPGRepository{db: db}
}

func (r *ReportPGRepository) Append(ctx context.Context, report *models.ReportRecord) error {
	query := `INSERT INTO reports (id, payload) VALUES ($1, $2)`

	_, err := r.db.Exec(ctx, query, report.ID, report)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicateReportID, report.ID)
		}
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

func (r *ReportPGRepository) List(ctx context.Context) ([]models.ReportRecord, error) {
	query := `SELECT payload FROM reports ORDER BY seq`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []models.ReportRecord{}
	for rows.Next() {
		var report models.ReportRecord
		if err := rows.Scan(&report); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (r *ReportPGRepository) GetByID(ctx context.Context, id string) (*models.ReportRecord, error) {
	query := `SELECT payload FROM reports WHERE id = $1`

	report := &models.ReportRecord{}
	err := r.db.QueryRow(ctx, query, id).Scan(report)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

func (r *ReportPGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (r *ReportPGRepository) Clear(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM reports`); err != nil {
		return fmt.Errorf("failed to clear reports: %w", err)
	}
	return nil
}
