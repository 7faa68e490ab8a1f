package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"factorymind-backend/models"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators is tried in order: paragraphs, lines, words, then characters
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunker splits page text into overlapping chunks of roughly chunkSize characters
// and records where each chunk sits on its page. Lengths are measured in
// characters (runes), not bytes.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	splitter     textsplitter.RecursiveCharacter
}

// New creates a chunker. Non-positive sizes fall back to the defaults and the
// overlap is clamped below the chunk size.
func New(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(DefaultSeparators),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		),
	}
}

// ChunkPages splits every page of a document and returns the chunks in page order.
// Whitespace-only chunks are never returned.
func (c *Chunker) ChunkPages(sourceID string, pages []string) ([]models.Chunk, error) {
	var chunks []models.Chunk
	seq := 0
	for pageIdx, page := range pages {
		texts, err := c.SplitText(page)
		if err != nil {
			return nil, fmt.Errorf("failed to split page %d of %s: %w", pageIdx+1, sourceID, err)
		}
		cursor := 0
		for _, text := range texts {
			if strings.TrimSpace(text) == "" {
				continue
			}
			span := locate(page, text, &cursor)
			chunks = append(chunks, models.Chunk{
				Text:          text,
				SourceID:      sourceID,
				DocType:       models.DocTypePDF,
				Page:          pageIdx + 1,
				SequenceIndex: seq,
				Span:          span,
			})
			seq++
		}
	}
	return chunks, nil
}

// SplitText splits a single text using the separator priority list
func (c *Chunker) SplitText(text string) ([]string, error) {
	return c.splitter.SplitText(text)
}

// locate finds text in page at or after *cursor and returns its rune span.
// Overlapping chunks restart the search just after the previous start.
func locate(page, text string, cursor *int) models.CharSpan {
	from := *cursor
	if from > len(page) {
		from = len(page)
	}
	idx := strings.Index(page[from:], text)
	if idx < 0 {
		idx = strings.Index(page, text)
		if idx < 0 {
			return models.CharSpan{}
		}
	} else {
		idx += from
	}
	_, size := utf8.DecodeRuneInString(page[idx:])
	*cursor = idx + size
	start := utf8.RuneCountInString(page[:idx])
	return models.CharSpan{Start: start, End: start + utf8.RuneCountInString(text)}
}
