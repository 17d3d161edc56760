package pdf

import (
	"fmt"

	"github.com/a3tai/cotizaciones-splitter/internal/pdf/security"
)

// Service bundles the PDF components used by the delivery surfaces: path
// confinement, validation, loading, page copies and directory listing.
type Service struct {
	maxFileSize   int64
	validator     *Validator
	loader        *Loader
	splitter      *Splitter
	search        *Search
	pathValidator *security.PathValidator
}

// NewService creates a new PDF service confined to configuredDirectory
func NewService(maxFileSize int64, configuredDirectory string) (*Service, error) {
	pathValidator, err := security.NewPathValidator(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	return &Service{
		maxFileSize:   maxFileSize,
		validator:     NewValidator(maxFileSize),
		loader:        NewLoader(maxFileSize),
		splitter:      NewSplitter(),
		search:        NewSearch(maxFileSize),
		pathValidator: pathValidator,
	}, nil
}

// ReadSource reads a statement batch from a path inside the configured directory
func (s *Service) ReadSource(path string) ([]byte, error) {
	resolved, err := s.pathValidator.Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	return s.validator.ReadFile(resolved)
}

// Load parses raw bytes into a SourceDocument
func (s *Service) Load(data []byte) (*SourceDocument, error) {
	return s.loader.Load(data)
}

// Split copies one page out of a loaded document
func (s *Service) Split(doc *SourceDocument, pageIndex int) ([]byte, error) {
	return s.splitter.Split(doc, pageIndex)
}

// PDFValidateFile performs validation on a PDF file
func (s *Service) PDFValidateFile(req PDFValidateFileRequest) (*PDFValidateFileResult, error) {
	resolved, err := s.pathValidator.Resolve(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Path = resolved
	return s.validator.ValidateFile(req)
}

// PDFSearchDirectory lists PDF files in a directory inside the configured one
func (s *Service) PDFSearchDirectory(req PDFSearchDirectoryRequest) (*PDFSearchDirectoryResult, error) {
	// If no directory specified, use configured directory
	if req.Directory == "" {
		req.Directory = s.pathValidator.GetConfiguredDirectory()
	}

	dir, err := s.pathValidator.Resolve(req.Directory)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if err := s.pathValidator.ValidateDirectory(dir); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	req.Directory = dir

	return s.search.SearchDirectory(req)
}

// ResolvePath resolves a caller supplied path inside the configured directory
func (s *Service) ResolvePath(path string) (string, error) {
	resolved, err := s.pathValidator.Resolve(path)
	if err != nil {
		return "", fmt.Errorf("security validation failed: %w", err)
	}
	return resolved, nil
}

// ConfiguredDirectory returns the directory inputs and outputs are confined to
func (s *Service) ConfiguredDirectory() string {
	return s.pathValidator.GetConfiguredDirectory()
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}
