package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/folio/detect"
	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/layout"
	"github.com/tsawler/folio/model"
	"github.com/tsawler/folio/ocr"
	"github.com/tsawler/folio/rag"
)

// Pipeline turns a PDF into an enriched document. Every batch of pages is
// extracted, aggregated and analyzed on its own; batches are then merged
// by page, enriched, transcribed and exported as one document.
type Pipeline struct {
	config      Config
	primary     ocr.Extractor
	fallback    ocr.Extractor
	detectors   []detect.Detector
	transcriber ocr.Transcriber
	modifier    *rag.Modifier
	exporter    *rag.Exporter
	logger      zerolog.Logger
}

// New creates a pipeline with default settings reading words with primary
func New(primary ocr.Extractor) *Pipeline {
	return NewWithConfig(DefaultConfig(), primary)
}

// NewWithConfig creates a pipeline with custom settings
func NewWithConfig(config Config, primary ocr.Extractor) *Pipeline {
	return &Pipeline{
		config:   config,
		primary:  primary,
		modifier: rag.NewModifierWithConfig(config.Enrich),
		exporter: rag.NewExporterWithConfig(config.Enrich),
		logger:   logger.WithComponent("pipeline"),
	}
}

// WithFallback sets the extractor used when the primary one fails its
// quality checks or its words do not line up with the detected layout
func (p *Pipeline) WithFallback(e ocr.Extractor) *Pipeline {
	p.fallback = e
	return p
}

// WithDetectors sets the layout detectors, most trusted first
func (p *Pipeline) WithDetectors(d ...detect.Detector) *Pipeline {
	p.detectors = d
	return p
}

// WithTranscriber sets the service that reads the text of image elements
func (p *Pipeline) WithTranscriber(t ocr.Transcriber) *Pipeline {
	p.transcriber = t
	return p
}

// WithLogger replaces the logger of the pipeline and of its stages
func (p *Pipeline) WithLogger(l zerolog.Logger) *Pipeline {
	p.logger = l
	p.modifier.WithLogger(l)
	p.exporter.WithLogger(l)
	return p
}

// BatchReport describes how one batch went
type BatchReport struct {
	Index     int
	Pages     []int
	Extractor model.Extractor
	Fallback  bool
	Attempts  int
	State     State
	Stats     layout.AnalysisStats
	Unordered int
	Duration  time.Duration
}

// Result is the outcome of a run
type Result struct {
	// Layout is the enriched document
	Layout *model.Layout

	// State is the last state reached by the document as a whole
	State State

	Batches []BatchReport

	// Failed lists the batches that failed on every attempt; their pages
	// are missing from Layout
	Failed []*BatchError

	// Warnings are the data quality issues met along the way
	Warnings []string

	Enrichment  rag.ModifyStats
	Transcribed int
}

type batchOutcome struct {
	report   BatchReport
	layout   *model.Layout
	warnings []string
	err      *BatchError
}

// Run processes every page of src
func (p *Pipeline) Run(ctx context.Context, src Source) (*Result, error) {
	return p.RunPages(ctx, src, AllPages(src))
}

// RunPages processes the given 0-based pages of src. A batch that fails on
// every attempt is reported in Result.Failed and left out of the document;
// an error is returned only when ctx is done or no batch succeeds.
func (p *Pipeline) RunPages(ctx context.Context, src Source, pages []int) (*Result, error) {
	if p.primary == nil {
		return nil, errors.New("pipeline: no word extractor")
	}

	plan := PlanBatches(pages, p.config.BatchSize)
	if w, ok := src.(interface{ Whole() bool }); ok && w.Whole() {
		if len(pages) != src.PageCount() {
			p.logger.Warn().Str("document", src.Name()).Msg("page selection ignored, document cannot be split")
		}
		plan = PlanBatches(AllPages(src), 0)
	}
	if len(plan) == 0 {
		return nil, ErrNoPages
	}
	p.logger.Info().Str("document", src.Name()).Int("pages", len(pages)).Int("batches", len(plan)).Msg("processing document")

	outcomes := make([]batchOutcome, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	if p.config.Concurrency > 0 {
		g.SetLimit(p.config.Concurrency)
	}
	for i, batchPages := range plan {
		g.Go(func() error {
			outcomes[i] = p.runBatch(gctx, src, i, batchPages)
			// only cancellation stops the other batches
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{}
	var parts []model.BatchLayout
	for _, o := range outcomes {
		result.Batches = append(result.Batches, o.report)
		result.Warnings = append(result.Warnings, o.warnings...)
		if o.err != nil {
			result.Failed = append(result.Failed, o.err)
			result.Warnings = append(result.Warnings, o.err.Error())
			continue
		}
		parts = append(parts, model.BatchLayout{Layout: o.layout, Pages: o.report.Pages})
	}
	if len(parts) == 0 {
		errs := make([]error, len(result.Failed))
		for i, e := range result.Failed {
			errs[i] = e
		}
		return result, fmt.Errorf("pipeline: every batch failed: %w", errors.Join(errs...))
	}

	doc := model.MergeByPage(parts...)
	result.Enrichment = p.modifier.Apply(doc)
	result.State = StateEnriched

	if p.transcriber != nil && p.config.TranscribeImages {
		texts, err := ocr.TranscribeImages(ctx, p.transcriber, doc.Images(), p.config.Transcribe.Concurrency, p.logger)
		if err != nil {
			return nil, err
		}
		rag.SetImageContents(doc, texts)
		result.Transcribed = len(texts)
	}
	for _, img := range doc.Images() {
		img.Metadata.Image = nil
	}
	doc.FilterEmpty(false)

	result.Layout = doc
	p.logger.Info().Str("document", src.Name()).Int("elements", doc.Len()).
		Int("failed_batches", len(result.Failed)).Int("warnings", len(result.Warnings)).
		Msg("document processed")
	return result, nil
}

// Export writes the document of a run in the given format
func (p *Pipeline) Export(w io.Writer, result *Result, format rag.Format) error {
	if result == nil || result.Layout == nil {
		return errors.New("pipeline: nothing to export")
	}
	if err := p.exporter.Export(w, result.Layout, format); err != nil {
		return err
	}
	result.State = StateExported
	return nil
}

// runBatch runs the stages of one batch, starting over on failure
func (p *Pipeline) runBatch(ctx context.Context, src Source, index int, pages []int) batchOutcome {
	log := logger.WithBatch("pipeline", index)
	start := time.Now()
	out := batchOutcome{report: BatchReport{Index: index, Pages: pages}}
	attempts := 1 + max(p.config.MaxRetries, 0)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		out.report.Attempts = attempt
		out.report.State = StatePending
		out.report.Fallback = false
		out.report.Extractor = model.ExtractorUnknown
		out.warnings = nil

		var l *model.Layout
		l, err = p.processBatch(ctx, src, index, pages, &out, log)
		if err == nil {
			out.layout = l
			out.report.Duration = time.Since(start)
			log.Debug().Ints("pages", pages).Dur("duration", out.report.Duration).Msg("batch done")
			return out
		}
		if ctx.Err() != nil {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Str("state", out.report.State.String()).Msg("batch failed")
	}
	out.err = &BatchError{Batch: index, Pages: pages, State: out.report.State, Err: err}
	out.report.Duration = time.Since(start)
	return out
}

func (p *Pipeline) processBatch(ctx context.Context, src Source, index int, pages []int, out *batchOutcome, log zerolog.Logger) (*model.Layout, error) {
	batch, err := src.Batch(ctx, index, pages)
	if err != nil {
		return nil, err
	}

	words, extractor, err := p.extractWords(ctx, batch, out, log)
	if err != nil {
		return nil, err
	}
	var layouts []*model.Layout
	for _, d := range p.detectors {
		l, err := d.Detect(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name(), err)
		}
		layouts = append(layouts, l)
	}
	out.report.Extractor = extractor
	out.report.State = StateExtracted

	analyzer := layout.NewAnalyzerWithConfig(p.config.Analyzer).WithLogger(log).
		WithStageHook(func(s layout.Stage) { out.report.State = analyzerStates[s] })
	var structure *model.Layout
	if len(layouts) > 0 {
		structure = analyzer.Aggregate(layouts...)
	}
	out.report.State = StateAggregated

	if structure != nil && p.config.CheckAlignment && !out.report.Fallback {
		ratio, total := emptyRatio(words, structure, p.config.WithinThreshold)
		if ratio > p.config.AlignmentThreshold {
			msg := fmt.Sprintf("batch %d: %.0f%% of %d elements have no word under them", index, ratio*100, total)
			out.warnings = append(out.warnings, msg)
			if p.fallback == nil {
				log.Warn().Float64("ratio", ratio).Msg("words not aligned with the layout, no fallback extractor")
			} else {
				log.Warn().Float64("ratio", ratio).Str("extractor", p.fallback.Name().String()).Msg("words not aligned with the layout, using fallback")
				words, err = p.fallback.ExtractWords(ctx, batch)
				if err != nil {
					return nil, fmt.Errorf("%w: %w", ErrMisaligned, err)
				}
				out.report.Extractor = p.fallback.Name()
				out.report.Fallback = true
			}
		}
	}

	result := analyzer.Analyze(words, structure)
	out.report.Stats = result.Stats
	out.report.Unordered = len(result.Unordered)
	if len(result.Unordered) > 0 {
		out.warnings = append(out.warnings, fmt.Sprintf("batch %d: %d elements not reached by reading order", index, len(result.Unordered)))
	}

	if p.transcriber != nil && p.config.TranscribeImages {
		ocr.AttachCrops(result.Layout.Images(), batch.Image, p.config.Transcribe.MaxSide)
	}
	return result.Layout, nil
}

// extractWords runs the primary extractor, and the fallback one when the
// primary words fail the quality checks
func (p *Pipeline) extractWords(ctx context.Context, batch ocr.Batch, out *batchOutcome, log zerolog.Logger) (*model.Layout, model.Extractor, error) {
	words, err := p.primary.ExtractWords(ctx, batch)
	if err == nil {
		return words, p.primary.Name(), nil
	}
	if !ocr.IsQualityFault(err) || p.fallback == nil {
		return nil, p.primary.Name(), err
	}

	log.Warn().Err(err).Str("extractor", p.fallback.Name().String()).Msg("primary words rejected, using fallback")
	out.warnings = append(out.warnings, fmt.Sprintf("batch %d: %v", batch.Index, err))
	out.report.Fallback = true
	words, err = p.fallback.ExtractWords(ctx, batch)
	if err != nil {
		return nil, p.fallback.Name(), err
	}
	return words, p.fallback.Name(), nil
}
