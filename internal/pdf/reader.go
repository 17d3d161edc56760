package pdf

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	pdferrors "github.com/a3tai/cotizaciones-splitter/internal/pdf/errors"
)

// SourceDocument is a loaded, read-only statement batch. It owns the parsed
// pdfcpu context used for page copies and the per-page text read up front.
type SourceDocument struct {
	data  []byte
	pages []Page

	mu     sync.Mutex // guards ctx, which pdfcpu may touch while copying pages
	ctx    *model.Context
	closed bool
}

// PageCount returns the number of pages in the document
func (d *SourceDocument) PageCount() int {
	return len(d.pages)
}

// Pages returns a copy of the page list in source order
func (d *SourceDocument) Pages() []Page {
	out := make([]Page, len(d.pages))
	copy(out, d.pages)
	return out
}

// Size returns the size of the source in bytes
func (d *SourceDocument) Size() int {
	return len(d.data)
}

// Close releases the parsed document. Further page copies fail.
func (d *SourceDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctx = nil
	d.data = nil
	d.closed = true
	return nil
}

// Loader parses raw bytes into a SourceDocument
type Loader struct {
	validator *Validator
}

// NewLoader creates a loader that rejects inputs larger than maxFileSize
func NewLoader(maxFileSize int64) *Loader {
	return &Loader{validator: NewValidator(maxFileSize)}
}

// Load validates the input with pdfcpu and reads every page's plain text with
// ledongthuc/pdf. Any structural problem is a SourceLoadError. A page whose
// text cannot be read is kept with Page.TextErr set.
func (l *Loader) Load(data []byte) (*SourceDocument, error) {
	if err := l.validator.ValidateBytes(data); err != nil {
		return nil, pdferrors.NewSourceLoadError("invalid input", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, pdferrors.NewSourceLoadError("failed to read PDF context", err)
	}
	if ctx.PageCount == 0 {
		return nil, pdferrors.NewSourceLoadError("document has no pages", nil)
	}

	textReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, pdferrors.NewSourceLoadError("failed to open PDF for text extraction", err)
	}

	pages := make([]Page, ctx.PageCount)
	for i := range pages {
		pages[i] = Page{Index: i}
		if i >= textReader.NumPage() {
			pages[i].TextErr = fmt.Errorf("page not reachable in page tree")
			continue
		}
		pages[i].Text, pages[i].TextErr = extractPageText(textReader, i+1)
	}

	return &SourceDocument{
		data:  data,
		pages: pages,
		ctx:   ctx,
	}, nil
}

// extractPageText reads the plain text of a 1-based page
func extractPageText(r *pdf.Reader, pageNum int) (text string, err error) {
	defer func() {
		// Recover from malformed content streams
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("text extraction panicked: %v", rec)
		}
	}()

	page := r.Page(pageNum)
	if page.V.IsNull() {
		return "", fmt.Errorf("page object is null")
	}

	return page.GetPlainText(nil)
}
