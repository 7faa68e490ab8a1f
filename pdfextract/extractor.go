package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"log"

	"github.com/ledongthuc/pdf"
)

var ErrInvalidPDF = errors.New("invalid or unreadable PDF")

// Extractor pulls plain text out of each page of a PDF
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractPages returns one string per page, in page order. Pages without a
// content stream or whose text cannot be decoded come back empty so page
// numbering stays aligned with the document.
func (e *Extractor) ExtractPages(data []byte) (pages []string, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	numPages := reader.NumPage()
	pages = make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Printf("Warning: Failed to extract text from page %d: %v", i, err)
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}
