// Package processor runs one statement batch through extraction, naming,
// page splitting and packaging.
package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/cotizaciones-splitter/internal/archive"
	"github.com/a3tai/cotizaciones-splitter/internal/pdf"
	pdferrors "github.com/a3tai/cotizaciones-splitter/internal/pdf/errors"
	"github.com/a3tai/cotizaciones-splitter/internal/statement"
)

// DocumentLoader parses raw bytes into a source document
type DocumentLoader interface {
	Load(data []byte) (*pdf.SourceDocument, error)
}

// PageSplitter copies a single page out of a source document
type PageSplitter interface {
	Split(doc *pdf.SourceDocument, pageIndex int) ([]byte, error)
}

// Options configures a Processor
type Options struct {
	Policy      statement.Policy
	MonthSearch statement.MonthSearch
	// Workers bounds page-level parallelism; values below 2 process pages
	// sequentially.
	Workers int
	// Extractor overrides the built-in anchor strategies when set
	Extractor *statement.Extractor
	Logger    *slog.Logger
}

// DefaultOptions returns lenient, anchored, sequential processing
func DefaultOptions() Options {
	return Options{
		Policy:      statement.PolicyLenient,
		MonthSearch: statement.MonthSearchAnchored,
		Workers:     1,
	}
}

// Result is the outcome of a successful run
type Result struct {
	RunID       string              `json:"run_id"`
	Archive     []byte              `json:"-"`
	ArchiveName string              `json:"archive_name"`
	Entries     []string            `json:"entries"`
	Pages       int                 `json:"pages"`
	Artifacts   int                 `json:"artifacts"`
	Warnings    []pdferrors.Warning `json:"warnings"`
}

// WarningStrings renders the warnings for display
func (r *Result) WarningStrings() []string {
	wc := pdferrors.WarningCollection{Warnings: r.Warnings}
	return wc.Strings()
}

// PagePreview describes what a run would do with one page
type PagePreview struct {
	Page     int                       `json:"page"`
	Fields   statement.ExtractedFields `json:"fields"`
	Filename string                    `json:"filename,omitempty"`
	Warning  *pdferrors.Warning        `json:"warning,omitempty"`
}

// Processor is the orchestrator for statement batches
type Processor struct {
	loader    DocumentLoader
	splitter  PageSplitter
	extractor *statement.Extractor
	opts      Options
	logger    *slog.Logger
}

// New creates a Processor. Zero-valued options fall back to DefaultOptions.
func New(loader DocumentLoader, splitter PageSplitter, opts Options) *Processor {
	defaults := DefaultOptions()
	if opts.Policy == "" {
		opts.Policy = defaults.Policy
	}
	if opts.MonthSearch == "" {
		opts.MonthSearch = defaults.MonthSearch
	}
	if opts.Workers < 1 {
		opts.Workers = defaults.Workers
	}

	extractor := opts.Extractor
	if extractor == nil {
		extractor = statement.DefaultExtractor(opts.MonthSearch)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Processor{
		loader:    loader,
		splitter:  splitter,
		extractor: extractor,
		opts:      opts,
		logger:    logger,
	}
}

// Policy returns the naming policy in effect
func (p *Processor) Policy() statement.Policy {
	return p.opts.Policy
}

// pageOutcome is the per-page result; artifact is nil when the page was dropped
type pageOutcome struct {
	fields   statement.ExtractedFields
	filename string
	artifact *archive.PageArtifact
	warning  *pdferrors.Warning
	fatal    error // a split failure the batch cannot continue past
}

// Process splits a statement batch into one named PDF per page and packages
// them. Per-page problems become warnings; only an unreadable source or a run
// with no artifacts is an error.
func (p *Processor) Process(ctx context.Context, source []byte) (*Result, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	start := time.Now()

	doc, err := p.loader.Load(source)
	if err != nil {
		logger.Error("failed to load source document", "error", err)
		return nil, err
	}
	defer doc.Close()

	pages := doc.Pages()
	logger.Info("processing statement batch",
		"pages", len(pages),
		"source_bytes", doc.Size(),
		"policy", p.opts.Policy,
		"workers", p.opts.Workers)

	outcomes := make([]pageOutcome, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for i, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = p.processPage(doc, page, true)
			return outcomes[i].fatal
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("run cancelled", "error", err)
			return nil, fmt.Errorf("processing cancelled: %w", err)
		}
		logger.Error("run aborted", "error", err)
		return nil, err
	}

	artifacts := make([]archive.PageArtifact, 0, len(pages))
	warnings := pdferrors.NewWarningCollection()
	for i, o := range outcomes {
		if o.warning != nil {
			warnings.Add(*o.warning)
			logger.Debug("page warning", "page", i+1, "kind", o.warning.Kind, "missing", o.warning.Missing)
		}
		if o.artifact != nil {
			artifacts = append(artifacts, *o.artifact)
			logger.Debug("page split", "page", i+1, "filename", o.artifact.Filename)
		}
	}

	if len(artifacts) == 0 {
		logger.Error("no pages produced", "pages", len(pages), "warnings", warnings.Count())
		return nil, pdferrors.NewEmptyResultError(fmt.Sprintf("%d page(s), %d warning(s)", len(pages), warnings.Count()))
	}

	manifest, err := archive.NewManifest(artifacts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := manifest.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to build archive: %w", err)
	}
	data := buf.Bytes()

	logger.Info("statement batch processed",
		"pages", len(pages),
		"artifacts", len(artifacts),
		"warnings", warnings.Count(),
		"archive_bytes", len(data),
		"duration", time.Since(start))

	return &Result{
		RunID:       runID,
		Archive:     data,
		ArchiveName: archive.SuggestedName,
		Entries:     manifest.Names(),
		Pages:       len(pages),
		Artifacts:   len(artifacts),
		Warnings:    warnings.Warnings,
	}, nil
}

// Preview reports the fields, file name and warning each page would get,
// without copying pages or building an archive.
func (p *Processor) Preview(ctx context.Context, source []byte) ([]PagePreview, error) {
	doc, err := p.loader.Load(source)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	pages := doc.Pages()
	previews := make([]PagePreview, 0, len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("preview cancelled: %w", err)
		}
		o := p.processPage(doc, page, false)
		previews = append(previews, PagePreview{
			Page:     page.Number(),
			Fields:   o.fields,
			Filename: o.filename,
			Warning:  o.warning,
		})
	}
	return previews, nil
}

func (p *Processor) processPage(doc *pdf.SourceDocument, page pdf.Page, split bool) pageOutcome {
	var out pageOutcome

	textErr := page.TextErr
	if textErr == nil {
		fields, err := p.extractor.Extract(page.Text)
		if err != nil {
			textErr = err
		} else {
			out.fields = fields
		}
	}

	missing := fieldNames(out.fields.MissingFields())
	complete := len(missing) == 0

	if !complete && p.opts.Policy == statement.PolicyStrict {
		w := pdferrors.Warning{Page: page.Number(), Kind: pdferrors.WarningRejected, Missing: missing}
		if textErr != nil {
			w.Detail = textErr.Error()
		}
		out.warning = &w
		return out
	}

	out.filename = statement.Synthesize(out.fields, page.Index)

	switch {
	case textErr != nil:
		out.warning = &pdferrors.Warning{
			Page:    page.Number(),
			Kind:    pdferrors.WarningTextExtraction,
			Missing: missing,
			Detail:  textErr.Error(),
		}
	case !complete:
		out.warning = &pdferrors.Warning{Page: page.Number(), Kind: pdferrors.WarningMissingFields, Missing: missing}
	}

	if !split {
		return out
	}

	content, err := p.splitter.Split(doc, page.Index)
	if err != nil {
		var pe *pdferrors.ProcessingError
		if errors.As(err, &pe) && !pe.IsRecoverable() {
			out.fatal = err
			return out
		}
		// replaces any field warning: the page is not in the archive at all
		out.warning = &pdferrors.Warning{
			Page:    page.Number(),
			Kind:    pdferrors.WarningPageExtraction,
			Missing: missing,
			Detail:  err.Error(),
		}
		return out
	}

	out.artifact = &archive.PageArtifact{
		PageIndex:    page.Index,
		Filename:     out.filename,
		Content:      content,
		ExtractionOK: complete && textErr == nil,
	}
	return out
}

func fieldNames(names []statement.FieldName) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
