package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrBlobNotFound = errors.New("stored upload not found")

// Kind groups raw uploads by what they feed
type Kind string

const (
	KindDocument Kind = "documents"
	KindDataset  Kind = "datasets"
)

// Storage keeps the raw bytes of uploaded documents and datasets
type Storage interface {
	// Save stores an upload and returns its storage key
	Save(ctx context.Context, kind Kind, uploadID uuid.UUID, filename string, data io.Reader) (string, error)

	// Open returns a reader for a stored upload
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Remove deletes a stored upload; missing keys are not an error
	Remove(ctx context.Context, key string) error
}

// Backend selects the storage implementation
type Backend string

const (
	BackendLocal Backend = "local"
	BackendS3    Backend = "s3"
)

// Config holds configuration for upload storage
type Config struct {
	Backend      Backend
	LocalPath    string
	S3Bucket     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
}

// New creates the storage backend named in cfg
func New(cfg Config) (Storage, error) {
	switch cfg.Backend {
	case BackendLocal, "":
		if cfg.LocalPath == "" {
			return nil, errors.New("local storage path is required")
		}
		return NewLocalStorage(cfg.LocalPath)
	case BackendS3:
		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET is required for S3 storage")
		}
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1"
		}
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Backend)
	}
}

// objectKey builds "<kind>/<id prefix>/<id>_<sanitized name>"
func objectKey(kind Kind, uploadID uuid.UUID, filename string) string {
	name := filepath.Base(filename)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	base = strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(base)
	id := uploadID.String()
	return path.Join(string(kind), id[:2], fmt.Sprintf("%s_%s%s", id, base, ext))
}

// contentType maps upload extensions to MIME types
func contentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
