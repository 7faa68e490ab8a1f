package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"factorymind-backend/models"
)

func openTestCatalog(t *testing.T) *DocumentRepository {
	t.Helper()
	repo, err := OpenDocumentRepository(filepath.Join(t.TempDir(), "catalog", "documents.db"))
	if err != nil {
		t.Fatalf("OpenDocumentRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestDocumentRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := openTestCatalog(t)
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	docs := []models.Document{
		{Filename: "sop.pdf", Pages: 3, Chunks: 7, UploadedAt: base},
		{Filename: "safety.pdf", Pages: 1, Chunks: 2, UploadedAt: base.Add(time.Hour)},
	}
	for i := range docs {
		if err := repo.Put(ctx, &docs[i]); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	got, err := repo.Get(ctx, "sop.pdf")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Chunks != 7 || !got.UploadedAt.Equal(base) {
		t.Errorf("unexpected document %+v", got)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].Filename != "safety.pdf" {
		t.Errorf("expected newest first, got %+v", list)
	}

	n, err := repo.Count(ctx)
	if err != nil || n != 2 {
		t.Errorf("Count = %d, %v", n, err)
	}

	if err := repo.Delete(ctx, "sop.pdf"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, "sop.pdf"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "sop.pdf"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound on second delete, got %v", err)
	}
}

func TestDocumentRepositoryPutReplaces(t *testing.T) {
	ctx := context.Background()
	repo := openTestCatalog(t)

	if err := repo.Put(ctx, &models.Document{Filename: "sop.pdf", Chunks: 3}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Put(ctx, &models.Document{Filename: "sop.pdf", Chunks: 9}); err != nil {
		t.Fatal(err)
	}
	n, _ := repo.Count(ctx)
	if n != 1 {
		t.Fatalf("expected a single entry, got %d", n)
	}
	got, _ := repo.Get(ctx, "sop.pdf")
	if got.Chunks != 9 {
		t.Errorf("expected replaced entry, got %+v", got)
	}
}

func TestDocumentRepositoryClear(t *testing.T) {
	ctx := context.Background()
	repo := openTestCatalog(t)
	for _, name := range []string{"a.pdf", "b.pdf"} {
		if err := repo.Put(ctx, &models.Document{Filename: name}); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty catalog, got %+v", list)
	}
}
