package pdf

import (
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	pdferrors "github.com/a3tai/cotizaciones-splitter/internal/pdf/errors"
)

// Splitter copies single pages out of a source document
type Splitter struct{}

// NewSplitter creates a page splitter
func NewSplitter() *Splitter {
	return &Splitter{}
}

// Split returns a standalone one-page PDF holding the page at a 0-based
// index. Failures are PageExtractionErrors and concern that page only.
func (s *Splitter) Split(doc *SourceDocument, pageIndex int) ([]byte, error) {
	pageNumber := pageIndex + 1
	if doc == nil {
		return nil, pdferrors.NewPageExtractionError(pageNumber, fmt.Errorf("no source document"))
	}
	if pageIndex < 0 || pageIndex >= doc.PageCount() {
		return nil, pdferrors.NewPageExtractionError(pageNumber,
			fmt.Errorf("page index %d out of range [0, %d)", pageIndex, doc.PageCount()))
	}

	doc.mu.Lock()
	defer doc.mu.Unlock()

	if doc.closed || doc.ctx == nil {
		return nil, pdferrors.NewPageExtractionError(pageNumber, fmt.Errorf("source document is closed"))
	}

	out, err := extractPage(doc, pageNumber)
	if err != nil {
		return nil, pdferrors.NewPageExtractionError(pageNumber, err)
	}
	return out, nil
}

func extractPage(doc *SourceDocument, pageNumber int) (out []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("page copy panicked: %v", rec)
		}
	}()

	r, err := api.ExtractPage(doc.ctx, pageNumber)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
