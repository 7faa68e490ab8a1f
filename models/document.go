package models

import (
	"time"
)

// Document represents an ingested source document in the catalog
type Document struct {
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	Pages       int       `json:"pages"`
	Chunks      int       `json:"chunks"`
	StoragePath string    `json:"storage_path,omitempty"`
	UploadedAt  time.Time `json:"upload_date"`
}

// IngestResult is returned after a document has been chunked and indexed
type IngestResult struct {
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunks"`
	PageCount  int    `json:"pages"`
}

// QueryResult is the answer to a question over the indexed documents
type QueryResult struct {
	Answer          string   `json:"answer"`
	Citations       []string `json:"citations"`
	ChunksRetrieved int      `json:"chunks_retrieved"`
}

// IndexStats summarizes the document side of the system
type IndexStats struct {
	TotalDocuments  int    `json:"total_documents"`
	TotalChunks     int    `json:"total_chunks"`
	VectorStorePath string `json:"vector_store_path"`
}
