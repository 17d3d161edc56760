package watch

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/cotizaciones-splitter/internal/pdf"
	pdferrors "github.com/a3tai/cotizaciones-splitter/internal/pdf/errors"
	"github.com/a3tai/cotizaciones-splitter/internal/processor"
	"github.com/a3tai/cotizaciones-splitter/internal/testutil"
)

func newWatcher(t *testing.T, dir string, cfg Config) *Watcher {
	t.Helper()
	svc, err := pdf.NewService(10*1024*1024, dir)
	require.NoError(t, err)

	cfg.Dir = dir
	w, err := New(cfg, svc, processor.New(svc, svc, processor.Options{}), nil)
	require.NoError(t, err)
	return w
}

func TestArchivePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("entrada", "lote_marzo_cotizaciones_separadas.zip"),
		ArchivePath(filepath.Join("entrada", "lote_marzo.pdf")))
	assert.Equal(t,
		filepath.Join("entrada", "LOTE_cotizaciones_separadas.zip"),
		ArchivePath(filepath.Join("entrada", "LOTE.PDF")))
}

func TestNew_Validation(t *testing.T) {
	svc, err := pdf.NewService(1024, t.TempDir())
	require.NoError(t, err)
	proc := processor.New(svc, svc, processor.Options{})

	_, err = New(Config{}, svc, proc, nil)
	assert.Error(t, err)

	_, err = New(Config{Dir: t.TempDir()}, nil, proc, nil)
	assert.Error(t, err)

	w, err := New(Config{Dir: t.TempDir()}, svc, proc, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.cfg.Debounce)
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	w := newWatcher(t, dir, Config{})

	src := filepath.Join(dir, "lote.pdf")
	require.NoError(t, os.WriteFile(src, testutil.StatementPDF(
		[3]string{"JUAN PEREZ SOTO", "12.345.678-9", "Marzo"},
		[3]string{"", "", ""},
	), 0o644))

	out := w.ProcessFile(context.Background(), src)
	require.NoError(t, out.Err)
	assert.Equal(t, filepath.Join(dir, "lote_cotizaciones_separadas.zip"), out.Archive)
	require.NotNil(t, out.Result)
	assert.Len(t, out.Result.Warnings, 1)

	zr, err := zip.OpenReader(out.Archive)
	require.NoError(t, err)
	defer zr.Close()
	assert.Equal(t, "001_COTIZACIONES_Marzo_12345678-9_JUAN_PEREZ_SOTO.pdf", zr.File[0].Name)
}

func TestProcessFile_Failure(t *testing.T) {
	dir := t.TempDir()
	var got []Outcome
	w := newWatcher(t, dir, Config{OnProcessed: func(o Outcome) { got = append(got, o) }})

	src := filepath.Join(dir, "roto.pdf")
	require.NoError(t, os.WriteFile(src, testutil.CorruptPDF(), 0o644))

	out := w.ProcessFile(context.Background(), src)
	assert.ErrorIs(t, out.Err, pdferrors.ErrSourceLoad)
	assert.Empty(t, out.Archive)
	require.Len(t, got, 1)
	assert.Equal(t, src, got[0].Source)

	_, err := os.Stat(ArchivePath(src))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_ProcessesDroppedBatch(t *testing.T) {
	dir := t.TempDir()
	outcomes := make(chan Outcome, 4)
	w := newWatcher(t, dir, Config{
		Debounce:    50 * time.Millisecond,
		OnProcessed: func(o Outcome) { outcomes <- o },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)

	// non-PDF files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notas.txt"), []byte("hola"), 0o644))
	src := filepath.Join(dir, "lote.pdf")
	require.NoError(t, os.WriteFile(src, testutil.StatementPDF([3]string{"ANA ROJAS", "1-9", "Enero"}), 0o644))

	select {
	case o := <-outcomes:
		require.NoError(t, o.Err)
		assert.Equal(t, src, o.Source)
		assert.FileExists(t, ArchivePath(src))
	case <-time.After(10 * time.Second):
		t.Fatal("batch was not processed")
	}

	// one write, one run
	select {
	case o := <-outcomes:
		t.Fatalf("unexpected second outcome for %s", o.Source)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestRun_InitialScan(t *testing.T) {
	dir := t.TempDir()

	fresh := filepath.Join(dir, "nuevo.pdf")
	require.NoError(t, os.WriteFile(fresh, testutil.StatementPDF([3]string{"ANA ROJAS", "1-9", "Enero"}), 0o644))

	done := filepath.Join(dir, "listo.pdf")
	require.NoError(t, os.WriteFile(done, testutil.StatementPDF([3]string{"LUIS DIAZ", "2-7", "Enero"}), 0o644))
	require.NoError(t, os.WriteFile(ArchivePath(done), []byte("already split"), 0o644))

	var sources []string
	w := newWatcher(t, dir, Config{
		Debounce:    50 * time.Millisecond,
		InitialScan: true,
		OnProcessed: func(o Outcome) { sources = append(sources, o.Source) },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, w.Run(ctx))

	assert.Equal(t, []string{fresh}, sources)
	assert.FileExists(t, ArchivePath(fresh))
}
