package models

// DocTypePDF tags chunks extracted from PDF pages
const DocTypePDF = "PDF"

// CharSpan is a half-open [Start, End) character range within the page text
type CharSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Chunk is a bounded span of document text prepared for embedding.
// Chunks are immutable once produced by the chunker.
type Chunk struct {
	Text          string   `json:"text"`
	SourceID      string   `json:"source"`
	DocType       string   `json:"doc_type"`
	Page          int      `json:"page"`
	SequenceIndex int      `json:"sequence_index"`
	Span          CharSpan `json:"char_span"`
}

// IndexedVector pairs an embedding with the chunk it was computed from
type IndexedVector struct {
	Vector []float32
	Chunk  Chunk
}

// SimilarityResult is a single search hit. Lower distance means more similar.
type SimilarityResult struct {
	ChunkText     string  `json:"chunk_text"`
	SourceName    string  `json:"source_name"`
	DistanceScore float64 `json:"distance_score"`
	Chunk         Chunk   `json:"-"`
}
