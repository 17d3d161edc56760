package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessingError_Is(t *testing.T) {
	err := fmt.Errorf("run failed: %w", NewSourceLoadError("not a PDF", errors.New("bad header")))

	assert.True(t, errors.Is(err, ErrSourceLoad))
	assert.False(t, errors.Is(err, ErrEmptyResult))
	assert.False(t, errors.Is(err, ErrPageExtraction))

	var pe *ProcessingError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrorTypeSourceLoad, pe.Type)
	assert.False(t, pe.IsRecoverable())
}

func TestProcessingError_Error(t *testing.T) {
	cause := errors.New("object 12 missing")
	err := NewPageExtractionError(3, cause)

	assert.Equal(t, "[PAGE_EXTRACTION] page 3: cannot copy page: object 12 missing", err.Error())
	assert.True(t, err.IsRecoverable())
	assert.ErrorIs(t, err, cause)

	empty := NewEmptyResultError("strict policy rejected 2 page(s)")
	assert.Equal(t, "[EMPTY_RESULT] no page artifacts were produced: strict policy rejected 2 page(s)", empty.Error())
}

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		errType  ErrorType
		expected string
	}{
		{ErrorTypeSourceLoad, "SOURCE_LOAD"},
		{ErrorTypePageExtraction, "PAGE_EXTRACTION"},
		{ErrorTypeEmptyResult, "EMPTY_RESULT"},
		{ErrorTypeUnknown, "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.errType.String())
		})
	}
}

func TestWarningCollection(t *testing.T) {
	wc := NewWarningCollection()
	assert.Equal(t, 0, wc.Count())

	wc.Add(Warning{Page: 3, Kind: WarningMissingFields, Missing: []string{"id_code"}})
	wc.Add(Warning{Page: 5, Kind: WarningRejected, Missing: []string{"full_name", "month"}})

	assert.Equal(t, 2, wc.Count())
	assert.Equal(t, []string{
		"page 3: missing id_code, fallback names used",
		"page 5: rejected, missing full_name, month",
	}, wc.Strings())
}
