package statement

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrUndecodableText is returned for page text that is not valid UTF-8
var ErrUndecodableText = errors.New("page text is not valid UTF-8")

// Strategy recovers a single field from page text. Find must not fail on
// well-formed text; a miss is reported with ok == false.
type Strategy interface {
	Field() FieldName
	Find(text string) (value string, ok bool)
}

// MonthSearch selects how far the month strategy looks for a month name
type MonthSearch string

const (
	// MonthSearchAnchored takes the first month starting a line below the
	// "N° Folio / Planilla" header, and searches the whole page when the
	// header is absent or has no month below it
	MonthSearchAnchored MonthSearch = "anchored"
	// MonthSearchAnchoredOnly never looks outside the text below the header
	MonthSearchAnchoredOnly MonthSearch = "anchored-only"
	// MonthSearchPage takes the first month name anywhere on the page
	MonthSearchPage MonthSearch = "page"
)

// ParseMonthSearch validates a month search mode name
func ParseMonthSearch(s string) (MonthSearch, error) {
	switch m := MonthSearch(strings.ToLower(strings.TrimSpace(s))); m {
	case MonthSearchAnchored, MonthSearchAnchoredOnly, MonthSearchPage:
		return m, nil
	default:
		return "", fmt.Errorf("invalid month search %q (must be one of: anchored, anchored-only, page)", s)
	}
}

var (
	namePattern = regexp.MustCompile(`(?m)del\s+Sr\.\s*\(a\)\s+(\p{Lu}[\p{Lu}&'’\- \t]*?)[ \t\r]*(?:,|$)`)
	rutPattern  = regexp.MustCompile(`(?i)\brut\b\s*:?\s*(\d[\d.]*-[\dk])(?:\D|$)`)
	folioAnchor = regexp.MustCompile(`(?i)N\s*[°º]?\s*Folio\s*Planilla`)
	monthWord   = regexp.MustCompile(`(?i)\b(` + monthNames + `)\b`)
	// the header runs at least two lines past the anchor; the month starts a
	// line somewhere below it
	monthAfterHeader = regexp.MustCompile(`(?is)\A.*?\n.*?\n(` + monthNames + `)\b`)
)

const monthNames = "enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre"

// NameStrategy finds the worker name after "del Sr.(a)"
type NameStrategy struct{}

func (NameStrategy) Field() FieldName { return FieldFullName }

func (NameStrategy) Find(text string) (string, bool) {
	m := namePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return "", false
	}
	return name, true
}

// RutStrategy finds the national ID after "Rut" and strips thousands separators
type RutStrategy struct{}

func (RutStrategy) Field() FieldName { return FieldIDCode }

func (RutStrategy) Find(text string) (string, bool) {
	m := rutPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(strings.ReplaceAll(m[1], ".", "")), true
}

// MonthStrategy finds the statement month name
type MonthStrategy struct {
	Search MonthSearch
}

func (MonthStrategy) Field() FieldName { return FieldMonth }

func (s MonthStrategy) Find(text string) (string, bool) {
	search := s.Search
	if search == "" {
		search = MonthSearchAnchored
	}

	if search != MonthSearchPage {
		if loc := folioAnchor.FindStringIndex(text); loc != nil {
			if m := monthAfterHeader.FindStringSubmatch(text[loc[1]:]); m != nil {
				return capitalize(m[1]), true
			}
		}
		if search == MonthSearchAnchoredOnly {
			return "", false
		}
	}
	return findMonth(text)
}

func findMonth(text string) (string, bool) {
	m := monthWord.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return capitalize(m[1]), true
}

func capitalize(word string) string {
	lower := strings.ToLower(word)
	if lower == "" {
		return lower
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// Extractor runs one strategy per field over a page's text
type Extractor struct {
	strategies []Strategy
}

// NewExtractor creates an extractor from explicit strategies. A field with no
// strategy is always reported missing.
func NewExtractor(strategies ...Strategy) *Extractor {
	return &Extractor{strategies: strategies}
}

// DefaultExtractor returns the built-in anchor strategies
func DefaultExtractor(search MonthSearch) *Extractor {
	return NewExtractor(NameStrategy{}, RutStrategy{}, MonthStrategy{Search: search})
}

// Extract recovers the identity fields of one page. Missing anchors never
// produce an error; only undecodable text does.
func (e *Extractor) Extract(text string) (ExtractedFields, error) {
	var fields ExtractedFields
	if !utf8.ValidString(text) {
		return fields, ErrUndecodableText
	}
	for _, s := range e.strategies {
		if value, ok := s.Find(text); ok {
			fields.set(s.Field(), Present(value))
		}
	}
	return fields, nil
}
