package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ProcessingError represents a failure while splitting a statement batch, with
// enough context to decide whether the run can continue
type ProcessingError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Context    string    `json:"context,omitempty"`
	PageNumber int       `json:"page_number,omitempty"` // 1-based, 0 when document-level
	Err        error     `json:"-"`
}

// ErrorType represents the categories of processing failures
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeSourceLoad
	ErrorTypePageExtraction
	ErrorTypeEmptyResult
)

// Sentinels usable with errors.Is against any *ProcessingError of that type.
var (
	ErrSourceLoad     = &ProcessingError{Type: ErrorTypeSourceLoad}
	ErrPageExtraction = &ProcessingError{Type: ErrorTypePageExtraction}
	ErrEmptyResult    = &ProcessingError{Type: ErrorTypeEmptyResult}
)

// Error implements the error interface
func (e *ProcessingError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", e.Type.String())
	if e.PageNumber > 0 {
		fmt.Fprintf(&b, " page %d:", e.PageNumber)
	}
	b.WriteString(" ")
	b.WriteString(e.Message)
	if e.Context != "" {
		b.WriteString(": ")
		b.WriteString(e.Context)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Is matches on error type so callers can compare with the sentinels
func (e *ProcessingError) Is(target error) bool {
	var t *ProcessingError
	if !errors.As(target, &t) {
		return false
	}
	return t.Type == e.Type
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeSourceLoad:
		return "SOURCE_LOAD"
	case ErrorTypePageExtraction:
		return "PAGE_EXTRACTION"
	case ErrorTypeEmptyResult:
		return "EMPTY_RESULT"
	default:
		return "UNKNOWN"
	}
}

// IsRecoverable reports whether a run can continue after an error of this type
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypePageExtraction:
		return true // the page is skipped, the batch continues
	default:
		return false
	}
}

// NewSourceLoadError reports input bytes that are not a usable PDF
func NewSourceLoadError(message string, err error) *ProcessingError {
	return &ProcessingError{Type: ErrorTypeSourceLoad, Message: message, Err: err}
}

// NewPageExtractionError reports a page that could not be copied out of the source
func NewPageExtractionError(pageNumber int, err error) *ProcessingError {
	return &ProcessingError{
		Type:       ErrorTypePageExtraction,
		Message:    "cannot copy page",
		PageNumber: pageNumber,
		Err:        err,
	}
}

// NewEmptyResultError reports a run that produced no artifacts at all
func NewEmptyResultError(context string) *ProcessingError {
	return &ProcessingError{
		Type:    ErrorTypeEmptyResult,
		Message: "no page artifacts were produced",
		Context: context,
	}
}

// IsRecoverable returns true if processing may continue past this error
func (e *ProcessingError) IsRecoverable() bool {
	return e.Type.IsRecoverable()
}
