package statement

import (
	"fmt"
	"strings"
)

const (
	filePrefix    = "COTIZACIONES"
	fileExtension = ".pdf"

	unknownNameToken = "DESCONOCIDO"
	noIDToken        = "SINRUT"
	noMonthToken     = "SINMES"
)

// Policy decides what happens to a page with missing fields
type Policy string

const (
	// PolicyLenient names incomplete pages with fallback tokens
	PolicyLenient Policy = "lenient"
	// PolicyStrict rejects any page with a missing field
	PolicyStrict Policy = "strict"
)

// ParsePolicy validates a policy name
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyLenient, PolicyStrict:
		return p, nil
	default:
		return "", fmt.Errorf("invalid policy %q (must be one of: lenient, strict)", s)
	}
}

// Synthesize builds the canonical file name of a page:
// COTIZACIONES_{month}_{id}_{name}.pdf. Each missing field is replaced by
// its own fallback token; pageIndex is 0-based.
func Synthesize(fields ExtractedFields, pageIndex int) string {
	pageNumber := pageIndex + 1

	month := noMonthToken
	if fields.Month.Found {
		if v := safeToken(fields.Month.Value); v != "" {
			month = v
		}
	}

	id := fmt.Sprintf("%s_%d", noIDToken, pageNumber)
	if fields.IDCode.Found {
		if v := safeToken(fields.IDCode.Value); v != "" {
			id = v
		}
	}

	name := fmt.Sprintf("%s_%d", unknownNameToken, pageNumber)
	if fields.FullName.Found {
		if normalized := strings.Trim(Normalize(fields.FullName.Value), "_"); normalized != "" {
			name = normalized
		}
	}

	filename := strings.Join([]string{filePrefix, month, id, name}, "_") + fileExtension
	return strings.Join(strings.Fields(filename), "_")
}

// safeToken drops characters that are illegal in file names, including path
// separators a custom strategy may return
func safeToken(v string) string {
	return strings.TrimSpace(forbidden.Replace(v))
}
