package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"factorymind-backend/analysis"
	"factorymind-backend/chunker"
	"factorymind-backend/models"
	"factorymind-backend/repository"
	"factorymind-backend/storage"
	"factorymind-backend/vectorindex"

	"github.com/google/uuid"
)

// ErrContentExtractionEmpty means a document produced no usable text, usually
// because it is scanned or image-only
var ErrContentExtractionEmpty = errors.New("no text content could be extracted from document")

// PageExtractor turns a PDF into per-page text
type PageExtractor interface {
	ExtractPages(data []byte) ([]string, error)
}

// RAGService handles document ingestion and question answering
type RAGService struct {
	chunker     *chunker.Chunker
	index       *vectorindex.Index
	catalog     *repository.DocumentRepository
	storage     storage.Storage
	extractor   PageExtractor
	synthesizer Synthesizer
	topK        int
	now         func() time.Time
}

// RAGServiceOption is a functional option for RAGService
type RAGServiceOption func(*RAGService)

// RAGWithChunker sets the chunker
func RAGWithChunker(c *chunker.Chunker) RAGServiceOption {
	return func(s *RAGService) {
		s.chunker = c
	}
}

// RAGWithIndex sets the similarity index
func RAGWithIndex(idx *vectorindex.Index) RAGServiceOption {
	return func(s *RAGService) {
		s.index = idx
	}
}

// RAGWithCatalog sets the document catalog
func RAGWithCatalog(catalog *repository.DocumentRepository) RAGServiceOption {
	return func(s *RAGService) {
		s.catalog = catalog
	}
}

// RAGWithStorage keeps the raw bytes of every ingested PDF
func RAGWithStorage(st storage.Storage) RAGServiceOption {
	return func(s *RAGService) {
		s.storage = st
	}
}

// RAGWithExtractor sets the PDF page extractor
func RAGWithExtractor(e PageExtractor) RAGServiceOption {
	return func(s *RAGService) {
		s.extractor = e
	}
}

// RAGWithSynthesizer sets the answer synthesizer
func RAGWithSynthesizer(syn Synthesizer) RAGServiceOption {
	return func(s *RAGService) {
		s.synthesizer = syn
	}
}

// RAGWithTopK sets how many chunks are retrieved per question
func RAGWithTopK(k int) RAGServiceOption {
	return func(s *RAGService) {
		s.topK = k
	}
}

// NewRAGService creates a new RAG service
func NewRAGService(opts ...RAGServiceOption) *RAGService {
	s := &RAGService{
		chunker: chunker.New(chunker.DefaultChunkSize, chunker.DefaultChunkOverlap),
		topK:    DefaultTopK,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestDocument chunks the pages of a document and adds them to the index.
// Re-ingesting a filename replaces its previous chunks.
func (s *RAGService) IngestDocument(ctx context.Context, filename string, pages []string) (*models.IngestResult, error) {
	return s.ingest(ctx, &models.Document{Filename: filepath.Base(filename)}, pages)
}

// IngestPDF extracts the pages of a PDF, keeps the raw upload and ingests it
func (s *RAGService) IngestPDF(ctx context.Context, filename string, data []byte) (*models.IngestResult, error) {
	name := filepath.Base(filename)
	if strings.ToLower(filepath.Ext(name)) != ".pdf" {
		return nil, fmt.Errorf("%w: %s", analysis.ErrUnsupportedFileType, name)
	}
	if s.extractor == nil {
		return nil, errors.New("page extractor not set")
	}

	pages, err := s.extractor.ExtractPages(data)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		Filename: name,
		MimeType: "application/pdf",
		Size:     int64(len(data)),
	}
	if s.storage != nil {
		key, err := s.storage.Save(ctx, storage.KindDocument, uuid.New(), name, bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to store document: %w", err)
		}
		doc.StoragePath = key
	}

	result, err := s.ingest(ctx, doc, pages)
	if err != nil && doc.StoragePath != "" {
		s.removeBlob(ctx, doc.StoragePath)
	}
	return result, err
}

func (s *RAGService) ingest(ctx context.Context, doc *models.Document, pages []string) (*models.IngestResult, error) {
	if s.index == nil {
		return nil, errors.New("similarity index not set")
	}

	chunks, err := s.chunker.ChunkPages(doc.Filename, pages)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrContentExtractionEmpty, doc.Filename)
	}

	previous := s.existing(ctx, doc.Filename)
	if _, err := s.index.ReplaceSource(ctx, doc.Filename, chunks); err != nil {
		return nil, fmt.Errorf("failed to index document: %w", err)
	}

	doc.Pages = len(pages)
	doc.Chunks = len(chunks)
	doc.UploadedAt = s.now().UTC()
	if s.catalog != nil {
		if err := s.catalog.Put(ctx, doc); err != nil {
			s.rollbackIngest(ctx, doc.Filename, previous)
			return nil, fmt.Errorf("failed to record document: %w", err)
		}
	}
	if previous != nil && previous.StoragePath != "" && previous.StoragePath != doc.StoragePath {
		s.removeBlob(ctx, previous.StoragePath)
	}

	log.Printf("Document %s processed: %d chunks from %d pages", doc.Filename, len(chunks), len(pages))
	return &models.IngestResult{
		Filename:   doc.Filename,
		ChunkCount: len(chunks),
		PageCount:  len(pages),
	}, nil
}

// rollbackIngest drops the chunks of a document whose catalog entry could not
// be written. The previous version was already replaced in the index, so its
// catalog entry and blob go too.
func (s *RAGService) rollbackIngest(ctx context.Context, filename string, previous *models.Document) {
	if _, err := s.index.DeleteBySource(ctx, filename); err != nil {
		log.Printf("Warning: Failed to roll back chunks of %s: %v", filename, err)
	}
	if previous == nil {
		return
	}
	if err := s.catalog.Delete(ctx, filename); err != nil && !errors.Is(err, repository.ErrDocumentNotFound) {
		log.Printf("Warning: Failed to drop stale catalog entry %s: %v", filename, err)
	}
	if previous.StoragePath != "" {
		s.removeBlob(ctx, previous.StoragePath)
	}
}

func (s *RAGService) existing(ctx context.Context, filename string) *models.Document {
	if s.catalog == nil {
		return nil
	}
	doc, err := s.catalog.Get(ctx, filename)
	if err != nil {
		return nil
	}
	return doc
}

func (s *RAGService) removeBlob(ctx context.Context, key string) {
	if s.storage == nil {
		return
	}
	if err := s.storage.Remove(ctx, key); err != nil {
		log.Printf("Warning: Failed to remove stored upload %s: %v", key, err)
	}
}

// Query answers a question from the indexed documents
func (s *RAGService) Query(ctx context.Context, question string) (*models.QueryResult, error) {
	if s.index == nil {
		return nil, errors.New("similarity index not set")
	}
	return NewRetriever(s.index, s.synthesizer, s.topK).Answer(ctx, question)
}

// DeleteDocument removes a document from the index, the catalog and storage.
// The index is rebuilt from the remaining chunks. Chunks without a catalog
// entry are still removed.
func (s *RAGService) DeleteDocument(ctx context.Context, filename string) error {
	if s.index == nil {
		return errors.New("similarity index not set")
	}

	var doc *models.Document
	if s.catalog != nil {
		found, err := s.catalog.Get(ctx, filename)
		switch {
		case err == nil:
			doc = found
		case !errors.Is(err, repository.ErrDocumentNotFound):
			return err
		}
	}

	removed, err := s.index.DeleteBySource(ctx, filename)
	if err != nil {
		return fmt.Errorf("failed to delete document chunks: %w", err)
	}
	if doc == nil && removed == 0 {
		return repository.ErrDocumentNotFound
	}

	if doc != nil {
		if err := s.catalog.Delete(ctx, filename); err != nil {
			return err
		}
		if doc.StoragePath != "" {
			s.removeBlob(ctx, doc.StoragePath)
		}
	}

	log.Printf("Deleted document %s (%d chunks removed)", filename, removed)
	return nil
}

// ListDocuments returns the catalog, newest upload first. Without a catalog
// the sources present in the index are listed instead.
func (s *RAGService) ListDocuments(ctx context.Context) ([]models.Document, error) {
	if s.catalog != nil {
		return s.catalog.List(ctx)
	}
	docs := []models.Document{}
	if s.index != nil {
		for _, src := range s.index.Sources() {
			docs = append(docs, models.Document{Filename: src})
		}
	}
	return docs, nil
}

// GetDocument returns the catalog entry for filename
func (s *RAGService) GetDocument(ctx context.Context, filename string) (*models.Document, error) {
	if s.catalog == nil {
		return nil, repository.ErrDocumentNotFound
	}
	return s.catalog.Get(ctx, filename)
}

// ClearAll drops the index, the catalog and every stored upload
func (s *RAGService) ClearAll(ctx context.Context) error {
	if s.index == nil {
		return errors.New("similarity index not set")
	}

	var docs []models.Document
	if s.catalog != nil {
		var err error
		if docs, err = s.catalog.List(ctx); err != nil {
			return err
		}
	}

	if err := s.index.Clear(); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	if s.catalog != nil {
		if err := s.catalog.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear catalog: %w", err)
		}
	}
	for _, d := range docs {
		if d.StoragePath != "" {
			s.removeBlob(ctx, d.StoragePath)
		}
	}
	log.Println("Cleared all documents")
	return nil
}

// Stats summarizes the document side of the system
func (s *RAGService) Stats(ctx context.Context) models.IndexStats {
	stats := models.IndexStats{}
	if s.index == nil {
		return stats
	}
	stats.TotalChunks = s.index.Count()
	stats.VectorStorePath = s.index.Dir()
	stats.TotalDocuments = len(s.index.Sources())
	if s.catalog != nil {
		n, err := s.catalog.Count(ctx)
		if err != nil {
			log.Printf("Warning: Failed to count documents: %v", err)
		} else {
			stats.TotalDocuments = n
		}
	}
	return stats
}
