// Package archive packages per-page statement PDFs into a single zip whose
// entry names sort in source page order.
package archive

import (
	"archive/zip"
	"bytes"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	pdferrors "github.com/a3tai/cotizaciones-splitter/internal/pdf/errors"
)

// SuggestedName is the file name offered to callers for the archive
const SuggestedName = "cotizaciones_separadas.zip"

// Auxiliary entry names, written after the page entries
const (
	WindowsScriptName = "quitar_prefijo.bat"
	POSIXScriptName   = "quitar_prefijo.sh"
	InstructionsName  = "INSTRUCCIONES.txt"
)

const minSequenceWidth = 3

//go:embed files
var files embed.FS

// PageArtifact is one split page ready for packaging
type PageArtifact struct {
	PageIndex    int    `json:"page_index"`
	Filename     string `json:"filename"`
	Content      []byte `json:"-"`
	ExtractionOK bool   `json:"extraction_ok"`
}

// Entry is one named blob inside the archive
type Entry struct {
	Name    string
	Content []byte
	Mode    fs.FileMode // zero keeps the zip default
}

// Manifest is the ordered list of entries written to the archive
type Manifest struct {
	Pages     []Entry
	Auxiliary []Entry
}

// NewManifest prefixes each artifact with its zero-padded sequence number and
// appends the helper scripts and instructions.
func NewManifest(artifacts []PageArtifact) (*Manifest, error) {
	if len(artifacts) == 0 {
		return nil, pdferrors.NewEmptyResultError("nothing to archive")
	}

	width := SequenceWidth(len(artifacts))
	m := &Manifest{Pages: make([]Entry, 0, len(artifacts))}
	for i, a := range artifacts {
		m.Pages = append(m.Pages, Entry{
			Name:    EntryName(i+1, width, a.Filename),
			Content: a.Content,
		})
	}

	aux, err := auxiliaryEntries()
	if err != nil {
		return nil, err
	}
	m.Auxiliary = aux
	return m, nil
}

// Names returns every entry name in write order
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Pages)+len(m.Auxiliary))
	for _, e := range m.Pages {
		names = append(names, e.Name)
	}
	for _, e := range m.Auxiliary {
		names = append(names, e.Name)
	}
	return names
}

// WriteTo writes the manifest as a deflate-compressed zip
func (m *Manifest) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)

	for _, e := range m.Pages {
		if err := writeEntry(zw, e); err != nil {
			return cw.n, fmt.Errorf("failed to write %s: %w", e.Name, err)
		}
	}
	for _, e := range m.Auxiliary {
		if err := writeEntry(zw, e); err != nil {
			return cw.n, fmt.Errorf("failed to write %s: %w", e.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("failed to finish archive: %w", err)
	}
	return cw.n, nil
}

// Build returns the zip bytes for an ordered list of page artifacts
func Build(artifacts []PageArtifact) ([]byte, error) {
	m, err := NewManifest(artifacts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes archive bytes to path, creating the parent directory.
// The file is written under a temporary name and renamed into place.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cotizaciones-*.zip.tmp")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set archive permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}

// SequenceWidth is the prefix width for n entries: at least 3 digits, more
// when n needs them, so that names sort in page order.
func SequenceWidth(n int) int {
	return max(minSequenceWidth, len(strconv.Itoa(n)))
}

// EntryName joins a 1-based sequence number and a canonical filename
func EntryName(seq, width int, filename string) string {
	return fmt.Sprintf("%0*d_%s", width, seq, filename)
}

func writeEntry(zw *zip.Writer, e Entry) error {
	header := &zip.FileHeader{
		Name:   e.Name,
		Method: zip.Deflate,
	}
	if e.Mode != 0 {
		header.SetMode(e.Mode)
	}

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = w.Write(e.Content)
	return err
}

func auxiliaryEntries() ([]Entry, error) {
	bat, err := files.ReadFile("files/" + WindowsScriptName)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", WindowsScriptName, err)
	}
	sh, err := files.ReadFile("files/" + POSIXScriptName)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", POSIXScriptName, err)
	}
	txt, err := files.ReadFile("files/" + InstructionsName)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", InstructionsName, err)
	}

	// cmd.exe expects CRLF
	bat = []byte(strings.ReplaceAll(strings.ReplaceAll(string(bat), "\r\n", "\n"), "\n", "\r\n"))

	return []Entry{
		{Name: WindowsScriptName, Content: bat},
		{Name: POSIXScriptName, Content: sh, Mode: 0o755},
		{Name: InstructionsName, Content: txt},
	}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
