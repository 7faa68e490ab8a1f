package repository

import (
	"context"
	"errors"

	"factorymind-backend/models"
)

var (
	ErrReportNotFound    = errors.New("report not found")
	ErrDuplicateReportID = errors.New("report id already exists")
)

// ReportStore persists report records in insertion order. Every mutation is
// durable before it returns.
type ReportStore interface {
	Append(ctx context.Context, report *models.ReportRecord) error
	List(ctx context.Context) ([]models.ReportRecord, error)
	GetByID(ctx context.Context, id string) (*models.ReportRecord, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
