package ocr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/folio/model"
)

func TestExtractionError(t *testing.T) {
	err := wrap("extract words", model.ExtractorVision, ErrNoPDF)
	assert.EqualError(t, err, "ocr: vision extract words: batch has no PDF content")
	assert.ErrorIs(t, err, ErrNoPDF)

	var extractionErr *ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, model.ExtractorVision, extractionErr.Extractor)

	// wrapping twice keeps the innermost operation
	again := wrap("retry", model.ExtractorTesseract, fmt.Errorf("batch 2: %w", err))
	require.ErrorAs(t, again, &extractionErr)
	assert.Equal(t, "extract words", extractionErr.Op)

	assert.NoError(t, wrap("noop", model.ExtractorVision, nil))
}

func TestIsQualityFault(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrManyCID, true},
		{ErrManyUnreadable, true},
		{fmt.Errorf("page 3: %w", ErrEmptyContent), true},
		{wrap("extract words", model.ExtractorTesseract, ErrOCRNotEnabled), false},
		{errors.New("network down"), false},
		{nil, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsQualityFault(tt.err), "%v", tt.err)
	}
}
