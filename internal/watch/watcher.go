// Package watch splits every statement batch dropped into a directory and
// writes its archive next to it.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/a3tai/cotizaciones-splitter/internal/archive"
	"github.com/a3tai/cotizaciones-splitter/internal/pdf"
	"github.com/a3tai/cotizaciones-splitter/internal/processor"
)

// DefaultDebounce is how long a file must be quiet before it is processed
const DefaultDebounce = 500 * time.Millisecond

// SourceReader reads a batch from disk
type SourceReader interface {
	ReadSource(path string) ([]byte, error)
}

// BatchProcessor turns batch bytes into an archive
type BatchProcessor interface {
	Process(ctx context.Context, source []byte) (*processor.Result, error)
}

// Config configures a Watcher
type Config struct {
	Dir         string
	Debounce    time.Duration
	InitialScan bool // process PDFs already present that have no archive yet
	// OnProcessed is called after each batch, successful or not
	OnProcessed func(Outcome)
}

// Outcome reports what happened to one dropped batch
type Outcome struct {
	Source  string
	Archive string
	Result  *processor.Result
	Err     error
}

// Watcher feeds batches dropped into a directory to the processor, one at a time
type Watcher struct {
	cfg    Config
	reader SourceReader
	proc   BatchProcessor
	logger *slog.Logger
}

// New creates a watcher for cfg.Dir
func New(cfg Config, reader SourceReader, proc BatchProcessor, logger *slog.Logger) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch directory cannot be empty")
	}
	if reader == nil || proc == nil {
		return nil, errors.New("reader and processor are required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	abs, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch directory: %w", err)
	}
	cfg.Dir = abs

	return &Watcher{
		cfg:    cfg,
		reader: reader,
		proc:   proc,
		logger: logger.With("component", "watch", "dir", abs),
	}, nil
}

// ArchivePath is where the archive of a batch is written:
// <dir>/<stem>_cotizaciones_separadas.zip
func ArchivePath(source string) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return filepath.Join(filepath.Dir(source), stem+"_"+archive.SuggestedName)
}

// Run watches the directory until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cfg.Dir, err)
	}
	w.logger.Info("watching for statement batches", "debounce", w.cfg.Debounce)

	if w.cfg.InitialScan {
		if err := w.scan(ctx); err != nil {
			return err
		}
	}

	pending := map[string]time.Time{}
	ticker := time.NewTicker(w.cfg.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !pdf.IsPDFName(ev.Name) {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
				pending[ev.Name] = time.Now()
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				delete(pending, ev.Name)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.cfg.Debounce {
					continue
				}
				delete(pending, path)
				w.ProcessFile(ctx, path)
			}
		}
	}
}

// scan processes PDFs already in the directory that have no archive
func (w *Watcher) scan(ctx context.Context) error {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", w.cfg.Dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || !pdf.IsPDFName(e.Name()) {
			continue
		}
		path := filepath.Join(w.cfg.Dir, e.Name())
		if _, err := os.Stat(ArchivePath(path)); err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		w.ProcessFile(ctx, path)
	}
	return nil
}

// ProcessFile splits one batch and writes its archive beside it
func (w *Watcher) ProcessFile(ctx context.Context, path string) Outcome {
	out := Outcome{Source: path, Archive: ArchivePath(path)}
	logger := w.logger.With("source", filepath.Base(path))

	data, err := w.reader.ReadSource(path)
	if err == nil {
		out.Result, err = w.proc.Process(ctx, data)
	}
	if err == nil {
		err = archive.WriteFile(out.Archive, out.Result.Archive)
	}

	if err != nil {
		out.Err = err
		out.Archive = ""
		logger.Error("failed to split statement batch", "error", err)
	} else {
		logger.Info("statement batch split",
			"archive", filepath.Base(out.Archive),
			"pages", out.Result.Pages,
			"artifacts", out.Result.Artifacts,
			"warnings", len(out.Result.Warnings))
		for _, warning := range out.Result.WarningStrings() {
			logger.Warn(warning)
		}
	}

	if w.cfg.OnProcessed != nil {
		w.cfg.OnProcessed(out)
	}
	return out
}
