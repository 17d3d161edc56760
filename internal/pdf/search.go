package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Search discovers statement batches waiting in a directory
type Search struct {
	validator *Validator
}

// NewSearch creates a new PDF search handler with the specified constraints
func NewSearch(maxFileSize int64) *Search {
	return &Search{
		validator: NewValidator(maxFileSize),
	}
}

// SearchDirectory lists the PDF files directly inside a directory, optionally
// filtered by a case-insensitive name query. Results are sorted by name.
func (s *Search) SearchDirectory(req PDFSearchDirectoryRequest) (*PDFSearchDirectoryResult, error) {
	if req.Directory == "" {
		return nil, fmt.Errorf("directory cannot be empty")
	}

	absDirectory, err := filepath.Abs(req.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory path: %w", err)
	}

	entries, err := os.ReadDir(absDirectory)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", req.Directory)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read directory: %w", err)
	}

	query := strings.ToLower(strings.TrimSpace(req.Query))
	pdfFiles := make([]FileInfo, 0)

	for _, entry := range entries {
		if entry.IsDir() || !IsPDFName(entry.Name()) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(entry.Name()), query) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		path := filepath.Join(absDirectory, entry.Name())
		// Quick validation without opening the file
		if err := s.validator.ValidateFileInfo(path, info); err != nil {
			continue
		}

		pdfFiles = append(pdfFiles, FileInfo{
			Path:         path,
			Name:         info.Name(),
			Size:         info.Size(),
			ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
		})
	}

	sort.Slice(pdfFiles, func(i, j int) bool { return pdfFiles[i].Name < pdfFiles[j].Name })

	return &PDFSearchDirectoryResult{
		Files:       pdfFiles,
		TotalCount:  len(pdfFiles),
		Directory:   absDirectory,
		SearchQuery: req.Query,
	}, nil
}

// FindPDFsInDirectory finds all PDF files in a directory without query filtering
func (s *Search) FindPDFsInDirectory(directory string) ([]FileInfo, error) {
	result, err := s.SearchDirectory(PDFSearchDirectoryRequest{Directory: directory})
	if err != nil {
		return nil, err
	}
	return result.Files, nil
}

// IsPDFName checks if a file name has a PDF extension
func IsPDFName(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
