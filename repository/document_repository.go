package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"factorymind-backend/models"

	"go.etcd.io/bbolt"
)

var ErrDocumentNotFound = errors.New("document not found")

var bucketDocuments = []byte("documents")

// DocumentRepository is the catalog of ingested documents, keyed by filename
type DocumentRepository struct {
	db *bbolt.DB
}

// OpenDocumentRepository opens (or creates) the bbolt catalog at path
func OpenDocumentRepository(path string) (*DocumentRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open document catalog: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDocuments)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DocumentRepository{db: db}, nil
}

func (r *DocumentRepository) Close() error {
	return r.db.Close()
}

// Put inserts or replaces the catalog entry for doc.Filename
func (r *DocumentRepository) Put(ctx context.Context, doc *models.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).Put([]byte(doc.Filename), data)
	})
}

func (r *DocumentRepository) Get(ctx context.Context, filename string) (*models.Document, error) {
	var doc models.Document
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocuments).Get([]byte(filename))
		if data == nil {
			return ErrDocumentNotFound
		}
		return json.Unmarshal(data, &doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns every document, newest upload first
func (r *DocumentRepository) List(ctx context.Context) ([]models.Document, error) {
	docs := []models.Document{}
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).ForEach(func(k, v []byte) error {
			var doc models.Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("corrupt catalog entry %q: %w", k, err)
			}
			docs = append(docs, doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.After(docs[j].UploadedAt)
		}
		return docs[i].Filename < docs[j].Filename
	})
	return docs, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, filename string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocuments)
		if b.Get([]byte(filename)) == nil {
			return ErrDocumentNotFound
		}
		return b.Delete([]byte(filename))
	})
}

// Clear removes every catalog entry
func (r *DocumentRepository) Clear(ctx context.Context) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketDocuments); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketDocuments)
		return err
	})
}

func (r *DocumentRepository) Count(ctx context.Context) (int, error) {
	n := 0
	err := r.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketDocuments).Stats().KeyN
		return nil
	})
	return n, err
}
