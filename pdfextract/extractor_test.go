package pdfextract

import (
	"errors"
	"testing"
)

func TestExtractPagesRejectsGarbage(t *testing.T) {
	e := NewExtractor()
	for _, data := range [][]byte{nil, []byte("not a pdf at all"), []byte("%PDF-1.4\n%%EOF")} {
		if _, err := e.ExtractPages(data); !errors.Is(err, ErrInvalidPDF) {
			t.Errorf("input %q: expected ErrInvalidPDF, got %v", data, err)
		}
	}
}
