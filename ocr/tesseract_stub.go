//go:build !ocr

package ocr

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tsawler/folio/model"
)

// Tesseract is the stub extractor used when the "ocr" build tag is not
// set. Every operation returns ErrOCRNotEnabled.
type Tesseract struct{}

// NewTesseract returns ErrOCRNotEnabled.
// To enable OCR, rebuild with: go build -tags ocr
func NewTesseract() (*Tesseract, error) {
	return nil, ErrOCRNotEnabled
}

// NewTesseractWithConfig returns ErrOCRNotEnabled
func NewTesseractWithConfig(config TesseractConfig) (*Tesseract, error) {
	return nil, ErrOCRNotEnabled
}

// WithLogger is a no-op for the stub
func (t *Tesseract) WithLogger(l zerolog.Logger) *Tesseract { return t }

// Close is a no-op for the stub.
// It is safe to call on a nil extractor.
func (t *Tesseract) Close() error {
	return nil
}

// Name identifies the extractor
func (t *Tesseract) Name() model.Extractor { return model.ExtractorTesseract }

// ExtractWords returns ErrOCRNotEnabled
func (t *Tesseract) ExtractWords(ctx context.Context, batch Batch) (*model.Layout, error) {
	return nil, wrap("extract words", model.ExtractorTesseract, ErrOCRNotEnabled)
}

// Transcribe returns ErrOCRNotEnabled
func (t *Tesseract) Transcribe(ctx context.Context, data []byte) (string, error) {
	return "", wrap("transcribe", model.ExtractorTesseract, ErrOCRNotEnabled)
}
