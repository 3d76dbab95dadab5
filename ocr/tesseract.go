//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/model"
)

// Tesseract extracts words from page images with the Tesseract engine.
// Calls are serialized: the underlying client is not safe for concurrent
// use.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
	config TesseractConfig
	logger zerolog.Logger
}

// NewTesseract creates a Tesseract extractor with default configuration.
// It should be closed when no longer needed to release resources.
func NewTesseract() (*Tesseract, error) {
	return NewTesseractWithConfig(DefaultTesseractConfig())
}

// NewTesseractWithConfig creates a Tesseract extractor with custom configuration
func NewTesseractWithConfig(config TesseractConfig) (*Tesseract, error) {
	const op = "init"
	client := gosseract.NewClient()
	if len(config.Languages) > 0 {
		if err := client.SetLanguage(config.Languages...); err != nil {
			client.Close()
			return nil, wrap(op, model.ExtractorTesseract, fmt.Errorf("set language: %w", err))
		}
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(config.PageSegMode)); err != nil {
		client.Close()
		return nil, wrap(op, model.ExtractorTesseract, fmt.Errorf("set page segmentation mode: %w", err))
	}
	return &Tesseract{
		client: client,
		config: config,
		logger: logger.WithComponent("ocr"),
	}, nil
}

// WithLogger replaces the component logger
func (t *Tesseract) WithLogger(l zerolog.Logger) *Tesseract {
	t.logger = l
	return t
}

// Close releases OCR resources
func (t *Tesseract) Close() error {
	if t == nil || t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

// Name identifies the extractor
func (t *Tesseract) Name() model.Extractor { return model.ExtractorTesseract }

// ExtractWords recognizes the words of every page image in the batch
func (t *Tesseract) ExtractWords(ctx context.Context, batch Batch) (*model.Layout, error) {
	const op = "extract words"
	if len(batch.Images) == 0 {
		return nil, wrap(op, model.ExtractorTesseract, ErrNoPageImages)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	out := &model.Layout{}
	for _, img := range batch.Images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bounds, err := imageBounds(img.Data)
		if err != nil {
			return nil, wrap(op, model.ExtractorTesseract, fmt.Errorf("page %d: %w", img.Page, err))
		}
		if err := t.client.SetImageFromBytes(img.Data); err != nil {
			return nil, wrap(op, model.ExtractorTesseract, fmt.Errorf("page %d: set image: %w", img.Page, err))
		}
		found, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
		if err != nil {
			return nil, wrap(op, model.ExtractorTesseract, fmt.Errorf("page %d: %w", img.Page, err))
		}

		boxes := make([]wordBox, len(found))
		for i, b := range found {
			boxes[i] = wordBox{Rect: b.Box, Text: b.Word, Confidence: b.Confidence}
		}
		words := pageWords(boxes, bounds, img.Page, t.config.MinConfidence)
		for _, w := range words {
			out.Append(w)
		}
		t.logger.Debug().Int("batch", batch.Index).Int("page", img.Page).Int("count", len(words)).Msg("page recognized")
	}
	return out, nil
}

// Transcribe returns the text Tesseract reads in an image, with runs of
// whitespace collapsed
func (t *Tesseract) Transcribe(ctx context.Context, data []byte) (string, error) {
	const op = "transcribe"
	if err := ctx.Err(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.client.SetImageFromBytes(data); err != nil {
		return "", wrap(op, model.ExtractorTesseract, fmt.Errorf("set image: %w", err))
	}
	text, err := t.client.Text()
	if err != nil {
		return "", wrap(op, model.ExtractorTesseract, err)
	}
	return strings.Join(strings.Fields(text), " "), nil
}
