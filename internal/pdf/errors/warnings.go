package errors

import (
	"fmt"
	"strings"
)

// WarningKind categorises a per-page condition that did not abort the run
type WarningKind string

const (
	// WarningMissingFields: some fields were missing, fallback tokens were used
	WarningMissingFields WarningKind = "missing_fields"
	// WarningRejected: strict policy dropped the page because fields were missing
	WarningRejected WarningKind = "rejected"
	// WarningPageExtraction: the page could not be copied out of the source
	WarningPageExtraction WarningKind = "page_extraction"
	// WarningTextExtraction: no text could be read from the page
	WarningTextExtraction WarningKind = "text_extraction"
)

// Warning is a single per-page report entry. Page is 1-based.
type Warning struct {
	Page    int         `json:"page"`
	Kind    WarningKind `json:"kind"`
	Missing []string    `json:"missing,omitempty"`
	Detail  string      `json:"detail,omitempty"`
}

// String renders the warning for display to an operator
func (w Warning) String() string {
	switch w.Kind {
	case WarningMissingFields:
		return fmt.Sprintf("page %d: missing %s, fallback names used", w.Page, strings.Join(w.Missing, ", "))
	case WarningRejected:
		return fmt.Sprintf("page %d: rejected, missing %s", w.Page, strings.Join(w.Missing, ", "))
	case WarningPageExtraction:
		return fmt.Sprintf("page %d: skipped, page could not be copied: %s", w.Page, w.Detail)
	case WarningTextExtraction:
		return fmt.Sprintf("page %d: no extractable text: %s", w.Page, w.Detail)
	default:
		return fmt.Sprintf("page %d: %s", w.Page, w.Detail)
	}
}

// WarningCollection accumulates the warnings of one run in page order
type WarningCollection struct {
	Warnings []Warning `json:"warnings"`
}

// NewWarningCollection creates an empty collection
func NewWarningCollection() *WarningCollection {
	return &WarningCollection{Warnings: make([]Warning, 0)}
}

// Add appends a warning
func (wc *WarningCollection) Add(w Warning) {
	wc.Warnings = append(wc.Warnings, w)
}

// Count returns the number of collected warnings
func (wc *WarningCollection) Count() int {
	return len(wc.Warnings)
}

// Strings renders every warning
func (wc *WarningCollection) Strings() []string {
	out := make([]string, 0, len(wc.Warnings))
	for _, w := range wc.Warnings {
		out = append(out, w.String())
	}
	return out
}
