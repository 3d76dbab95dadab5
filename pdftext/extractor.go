package pdftext

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/model"
	"github.com/tsawler/folio/ocr"
	"github.com/tsawler/folio/pages"
	"github.com/tsawler/folio/reader"
)

// Config holds the settings of the text layer extractor
type Config struct {
	// XTolerance is the largest gap, in points, between two glyphs of one
	// word along the writing direction
	XTolerance float64 `yaml:"x_tolerance"`

	// YTolerance is the largest baseline shift, in points, inside a word
	YTolerance float64 `yaml:"y_tolerance"`

	// VisualElements enables extraction of horizontal rules
	VisualElements bool `yaml:"visual_elements"`

	// MinRuleWidth is the shortest rule kept, in points
	MinRuleWidth float64 `yaml:"min_rule_width"`

	// MaxRuleThickness is the thickest filled rectangle still read as a
	// rule, in points
	MaxRuleThickness float64 `yaml:"max_rule_thickness"`

	Quality ocr.QualityConfig `yaml:"quality"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		XTolerance:       1,
		YTolerance:       1,
		VisualElements:   true,
		MinRuleWidth:     10,
		MaxRuleThickness: 2,
		Quality:          ocr.DefaultQualityConfig(),
	}
}

// Extractor reads words from the text layer of digital PDFs. It is the
// cheapest extractor and the usual primary one; scanned or badly encoded
// documents fail its quality checks and go to an OCR fallback.
type Extractor struct {
	config Config
	logger zerolog.Logger
}

var _ ocr.Extractor = (*Extractor)(nil)

// New creates an extractor with default settings
func New() *Extractor {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an extractor with custom settings
func NewWithConfig(config Config) *Extractor {
	return &Extractor{
		config: config,
		logger: logger.WithComponent("pdftext"),
	}
}

// WithLogger sets a custom logger
func (e *Extractor) WithLogger(l zerolog.Logger) *Extractor {
	e.logger = l
	return e
}

// Name identifies the extractor
func (e *Extractor) Name() model.Extractor { return model.ExtractorPDFText }

// ExtractWords returns the words and rules of every page of the batch PDF.
// Encrypted documents and words failing the quality checks are reported
// as errors; ocr.IsQualityFault tells the caller to try OCR instead.
func (e *Extractor) ExtractWords(ctx context.Context, batch ocr.Batch) (*model.Layout, error) {
	const op = "extract words"
	fail := func(err error) error {
		return &ocr.ExtractionError{Op: op, Extractor: model.ExtractorPDFText, Err: err}
	}
	if len(batch.PDF) == 0 {
		return nil, fail(ocr.ErrNoPDF)
	}

	r, err := reader.NewReader(batch.PDF)
	if errors.Is(err, reader.ErrEncrypted) {
		// no text layer we can read; OCR works from the rendered pages
		return nil, fail(fmt.Errorf("%w: %w", ocr.ErrEmptyContent, err))
	}
	if err != nil {
		return nil, fail(err)
	}
	count, err := r.PageCount()
	if err != nil {
		return nil, fail(err)
	}

	out := &model.Layout{}
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := r.GetPage(i)
		if err != nil {
			return nil, fail(fmt.Errorf("page %d: %w", i, err))
		}
		elements, err := e.extractPage(r, page, i)
		if err != nil {
			return nil, fail(fmt.Errorf("page %d: %w", i, err))
		}
		out.Append(elements...)
	}

	if err := ocr.CheckQuality(out, e.config.Quality); err != nil {
		e.logger.Debug().Int("batch", batch.Index).Err(err).Msg("text layer rejected")
		return nil, fail(err)
	}
	e.logger.Debug().Int("batch", batch.Index).Int("count", out.Len()).Msg("text layer extracted")
	return out, nil
}

func (e *Extractor) extractPage(r *reader.Reader, page *pages.Page, index int) ([]model.Element, error) {
	geo, err := pageGeometry(page)
	if err != nil {
		return nil, err
	}
	resources, err := page.Resources()
	if err != nil {
		return nil, err
	}
	data, err := page.ContentData()
	if err != nil {
		return nil, err
	}

	in := newInterpreter(r, geo.base, e.logger)
	in.run(data, resources)

	var elements []model.Element
	for _, chars := range groupWords(in.chars, e.config.XTolerance, e.config.YTolerance) {
		if w := toWord(chars, geo, index); w != nil {
			elements = append(elements, w)
		}
	}
	if e.config.VisualElements {
		for _, v := range rules(in.path, geo, index, e.config.MinRuleWidth, e.config.MaxRuleThickness) {
			elements = append(elements, v)
		}
	}
	return elements, nil
}
