package ocr

import (
	"errors"
	"fmt"

	"github.com/tsawler/folio/model"
)

var (
	// ErrOCRNotEnabled is returned by Tesseract when OCR support was not
	// compiled in. Rebuild with -tags ocr to enable it.
	ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

	// ErrManyCID is returned when too many words hold "(cid:N)" placeholders
	ErrManyCID = errors.New("too many CID placeholders")

	// ErrManyUnreadable is returned when too many words hold characters
	// without a Unicode name
	ErrManyUnreadable = errors.New("too many unreadable characters")

	// ErrEmptyContent is returned when an extractor finds no word at all
	ErrEmptyContent = errors.New("no words extracted")

	// ErrNoPageImages is returned by image based extractors for a batch
	// without page images
	ErrNoPageImages = errors.New("batch has no page images")

	// ErrNoPDF is returned by document based extractors for a batch without
	// PDF content
	ErrNoPDF = errors.New("batch has no PDF content")
)

// ExtractionError records which extractor failed and during which operation
type ExtractionError struct {
	Op        string
	Extractor model.Extractor
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("ocr: %s %s: %v", e.Extractor, e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// wrap returns err as an ExtractionError unless it already is one
func wrap(op string, ex model.Extractor, err error) error {
	if err == nil {
		return nil
	}
	var extractionErr *ExtractionError
	if errors.As(err, &extractionErr) {
		return err
	}
	return &ExtractionError{Op: op, Extractor: ex, Err: err}
}

// IsQualityFault reports whether err means the extracted words are not
// usable and another extractor should be tried
func IsQualityFault(err error) bool {
	return errors.Is(err, ErrManyCID) ||
		errors.Is(err, ErrManyUnreadable) ||
		errors.Is(err, ErrEmptyContent)
}
