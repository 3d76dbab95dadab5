package folio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/tsawler/folio/config"
	"github.com/tsawler/folio/detect"
	"github.com/tsawler/folio/ocr"
	"github.com/tsawler/folio/pdftext"
	"github.com/tsawler/folio/pipeline"
	"github.com/tsawler/folio/tables"
)

// stages holds the extractors, detectors and transcriber built from a
// configuration, sharing one client per cloud service
type stages struct {
	config config.Config

	primary     ocr.Extractor
	fallback    ocr.Extractor
	detectors   []detect.Detector
	transcriber ocr.Transcriber

	vision     *ocr.Vision
	documentAI *detect.DocumentAI
	tesseract  *ocr.Tesseract
	records    []*detect.Records
	closers    []io.Closer
}

// newStages builds every stage named by c. A Tesseract fallback or
// transcriber is dropped with a warning on log when the binary was built
// without OCR support.
func newStages(ctx context.Context, c config.Config, log zerolog.Logger) (*stages, error) {
	s := &stages{config: c}

	var err error
	if s.primary, err = s.extractor(ctx, c.Extraction.Primary); err != nil {
		s.Close()
		return nil, fmt.Errorf("folio: primary extractor: %w", err)
	}
	if name := c.Extraction.Fallback; name != "" && name != config.ExtractorNone {
		s.fallback, err = s.extractor(ctx, name)
		if errors.Is(err, ocr.ErrOCRNotEnabled) {
			log.Warn().Str("extractor", name).Msg("OCR not enabled, running without fallback")
			s.fallback, err = nil, nil
		}
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("folio: fallback extractor: %w", err)
		}
	}

	for _, name := range c.Extraction.Detectors {
		switch name {
		case config.ExtractorRecords:
			records, err := s.loadRecords()
			if err != nil {
				s.Close()
				return nil, err
			}
			for _, r := range records {
				s.detectors = append(s.detectors, r)
			}
		case config.ExtractorDocumentAI:
			d, err := s.docAI(ctx)
			if err != nil {
				s.Close()
				return nil, err
			}
			s.detectors = append(s.detectors, d)
		}
	}

	switch c.Extraction.Transcriber {
	case config.ExtractorVision:
		v, err := s.visionClient(ctx)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.transcriber = ocr.NewVisionTranscriber(v)
	case config.ExtractorTesseract:
		t, err := s.tesseractEngine()
		if errors.Is(err, ocr.ErrOCRNotEnabled) {
			log.Warn().Msg("OCR not enabled, images are not transcribed")
		} else if err != nil {
			s.Close()
			return nil, err
		} else {
			s.transcriber = t
		}
	}
	return s, nil
}

func (s *stages) extractor(ctx context.Context, name string) (ocr.Extractor, error) {
	switch name {
	case config.ExtractorPDFText:
		return pdftext.NewWithConfig(s.config.PDFText), nil
	case config.ExtractorTesseract:
		return s.tesseractEngine()
	case config.ExtractorVision:
		return s.visionClient(ctx)
	case config.ExtractorDocumentAI:
		return s.docAI(ctx)
	case config.ExtractorRecords:
		records, err := s.loadRecords()
		if err != nil {
			return nil, err
		}
		return records[0], nil
	}
	return nil, fmt.Errorf("%w: unknown extractor %q", config.ErrInvalid, name)
}

func (s *stages) tesseractEngine() (*ocr.Tesseract, error) {
	if s.tesseract != nil {
		return s.tesseract, nil
	}
	t, err := ocr.NewTesseractWithConfig(s.config.Tesseract)
	if err != nil {
		return nil, err
	}
	s.tesseract = t
	s.closers = append(s.closers, t)
	return s.tesseract, nil
}

func (s *stages) visionClient(ctx context.Context) (*ocr.Vision, error) {
	if s.vision != nil {
		return s.vision, nil
	}
	v, err := ocr.NewVision(ctx, s.config.Vision)
	if err != nil {
		return nil, err
	}
	s.vision = v
	s.closers = append(s.closers, v)
	return s.vision, nil
}

func (s *stages) docAI(ctx context.Context) (*detect.DocumentAI, error) {
	if s.documentAI != nil {
		return s.documentAI, nil
	}
	d, err := detect.NewDocumentAI(ctx, s.config.DocumentAI)
	if err != nil {
		return nil, err
	}
	s.documentAI = d
	s.closers = append(s.closers, d)
	return s.documentAI, nil
}

// loadRecords reads every record file once, in trust order
func (s *stages) loadRecords() ([]*detect.Records, error) {
	if s.records != nil {
		return s.records, nil
	}
	if len(s.config.Extraction.RecordFiles) == 0 {
		return nil, fmt.Errorf("%w: no record file", config.ErrInvalid)
	}
	converter := tables.NewStructureConverterWithConfig(s.config.Structure)
	for _, path := range s.config.Extraction.RecordFiles {
		file, err := detect.LoadRecords(path)
		if err != nil {
			return nil, err
		}
		r, err := detect.NewRecordsWithConfig(file, s.config.Records)
		if err != nil {
			return nil, fmt.Errorf("folio: %s: %w", path, err)
		}
		s.records = append(s.records, r.WithStructureConverter(converter))
	}
	return s.records, nil
}

// pipeline assembles the stages into a pipeline
func (s *stages) pipeline() *pipeline.Pipeline {
	p := pipeline.NewWithConfig(s.config.PipelineConfig(), s.primary).
		WithDetectors(s.detectors...)
	if s.fallback != nil {
		p.WithFallback(s.fallback)
	}
	if s.transcriber != nil {
		p.WithTranscriber(s.transcriber)
	}
	return p
}

// Close releases the cloud clients and the OCR engine
func (s *stages) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
