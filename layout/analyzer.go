package layout

import (
	"github.com/rs/zerolog"

	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/model"
	"github.com/tsawler/folio/tables"
)

// AnalyzerConfig holds configuration options for the layout analyzer.
// Each stage has its own sub-configuration, and there are flags to enable or
// disable optional analysis features.
type AnalyzerConfig struct {
	// Aggregation of the layouts of several detectors
	AggregatorConfig AggregatorConfig `yaml:"aggregate"`

	// Column detection configuration
	ColumnConfig ColumnConfig `yaml:"columns"`

	// Line building configuration
	LineConfig LineConfig `yaml:"lines"`

	// Paragraph population configuration
	ParagraphConfig ParagraphConfig `yaml:"paragraphs"`

	// Table population configuration
	TableConfig tables.PopulateConfig `yaml:"tables"`

	// Reading order configuration
	ReadingOrderConfig ReadingOrderConfig `yaml:"reading_order"`

	// UseColumns enables column detection and reading order sorting
	UseColumns bool `yaml:"use_columns"`
}

// DefaultAnalyzerConfig returns a configuration with sensible defaults for
// typical document layout analysis, with every stage enabled.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		AggregatorConfig:   DefaultAggregatorConfig(),
		ColumnConfig:       DefaultColumnConfig(),
		LineConfig:         DefaultLineConfig(),
		ParagraphConfig:    DefaultParagraphConfig(),
		TableConfig:        tables.DefaultPopulateConfig(),
		ReadingOrderConfig: DefaultReadingOrderConfig(),
		UseColumns:         true,
	}
}

// AnalysisResult holds the document built by the analyzer together with the
// intermediate structures and statistics of the run
type AnalysisResult struct {
	// Layout is the populated structure in reading order
	Layout *model.Layout

	// Columns are the gutters per page found on the populated layout
	Columns [][]model.Column

	// Unordered lists the elements the reading order traversal did not
	// reach, over both sorting passes
	Unordered []model.Element

	// Statistics
	Stats AnalysisStats
}

// AnalysisStats contains counts gathered during the analysis
type AnalysisStats struct {
	WordCount     int
	LineCount     int
	TableCount    int
	InferredCount int
	ColumnCount   int
	ElementCount  int
}

// Stage is a step of Analyze that has completed
type Stage int

const (
	StageLinesBuilt Stage = iota
	StagePopulated
	StageColumnsDetected
	StageOrdered
	StageRefined
)

var stageNames = [...]string{"lines built", "populated", "columns detected", "ordered", "refined"}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// Analyzer builds a document from OCR words and the structure predicted by
// layout detectors. It runs column detection, reading order sorting, line
// building, table and paragraph population and order refinement in sequence.
type Analyzer struct {
	config AnalyzerConfig
	log    zerolog.Logger

	aggregator           *Aggregator
	columnDetector       *ColumnDetector
	lineBuilder          *LineBuilder
	populator            *Populator
	tablePopulator       *tables.Populator
	readingOrderDetector *ReadingOrderDetector

	onStage func(Stage)
}

// NewAnalyzer creates a new layout analyzer with default configuration.
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithConfig(DefaultAnalyzerConfig())
}

// NewAnalyzerWithConfig creates a new layout analyzer with the specified configuration.
func NewAnalyzerWithConfig(config AnalyzerConfig) *Analyzer {
	return &Analyzer{
		config:               config,
		log:                  logger.WithComponent("layout"),
		aggregator:           NewAggregatorWithConfig(config.AggregatorConfig),
		columnDetector:       NewColumnDetectorWithConfig(config.ColumnConfig),
		lineBuilder:          NewLineBuilderWithConfig(config.LineConfig),
		populator:            NewPopulatorWithConfig(config.ParagraphConfig),
		tablePopulator:       tables.NewPopulatorWithConfig(config.TableConfig),
		readingOrderDetector: NewReadingOrderDetectorWithConfig(config.ReadingOrderConfig),
	}
}

// WithLogger replaces the logger of the analyzer and of every stage
func (a *Analyzer) WithLogger(l zerolog.Logger) *Analyzer {
	a.log = l
	a.aggregator.WithLogger(l)
	a.columnDetector.WithLogger(l)
	a.lineBuilder.WithLogger(l)
	a.populator.WithLogger(l)
	a.tablePopulator.WithLogger(l)
	a.readingOrderDetector.WithLogger(l)
	return a
}

// WithStageHook sets a function called each time Analyze completes a
// stage. Stages are reported in order, including column detection and
// ordering when UseColumns is off.
func (a *Analyzer) WithStageHook(fn func(Stage)) *Analyzer {
	a.onStage = fn
	return a
}

func (a *Analyzer) done(s Stage) {
	if a.onStage != nil {
		a.onStage(s)
	}
}

// Aggregate merges the layouts of several detectors, most trusted first
func (a *Analyzer) Aggregate(layouts ...*model.Layout) *model.Layout {
	return a.aggregator.Aggregate(layouts...)
}

// Analyze populates structure with the content of ocr and returns it in
// reading order. ocr holds words or lines plus visual elements; it is
// consumed. structure may be nil, in which case every word ends up in an
// inferred paragraph.
//
// With UseColumns, the structure is sorted by reading order before
// population so that lines never cross a gutter, then sorted again once
// inferred paragraphs have settled the geometry. Elements left without
// content are dropped; empty images are kept for transcription.
func (a *Analyzer) Analyze(ocr *model.Layout, structure *model.Layout) *AnalysisResult {
	if ocr == nil {
		ocr = &model.Layout{}
	}
	result := &AnalysisResult{
		Stats: AnalysisStats{WordCount: countWords(ocr)},
	}

	var columns [][]model.Column
	if a.config.UseColumns && structure != nil && structure.Len() > 0 {
		columns = a.columnDetector.Detect(structure, ocr)
		sorted := a.readingOrderDetector.Sort(structure, columns)
		structure = sorted.Layout
		result.Unordered = append(result.Unordered, sorted.Unordered...)
	}

	if len(ocr.Words()) > 0 {
		ocr = a.lineBuilder.Build(ocr, columns)
	}
	for _, e := range ocr.Elements {
		if e.Type() == model.ElementTypeLine {
			result.Stats.LineCount++
		}
	}
	a.done(StageLinesBuilt)

	if structure != nil {
		for _, e := range structure.Elements {
			if e.Type() == model.ElementTypeTable {
				structure = a.tablePopulator.Populate(ocr, structure)
				break
			}
		}
	}

	structure = a.populator.Populate(ocr, structure, columns)
	a.populator.InsertVisualElements(ocr, structure)
	a.done(StagePopulated)

	refine := a.config.UseColumns && structure.Len() > 0
	if refine {
		structure.SortByBBox()
		columns = a.columnDetector.Detect(structure, nil)
	}
	a.done(StageColumnsDetected)
	if refine {
		sorted := a.readingOrderDetector.Sort(structure, columns)
		structure = sorted.Layout
		result.Unordered = append(result.Unordered, sorted.Unordered...)
	}
	a.done(StageOrdered)
	if refine {
		a.readingOrderDetector.Refine(structure, columns)
	}
	a.done(StageRefined)
	structure.FilterEmpty(true)

	result.Layout = structure
	result.Columns = columns
	for _, page := range columns {
		result.Stats.ColumnCount += len(page)
	}
	for _, e := range structure.Elements {
		if e.Type() == model.ElementTypeTableContent {
			result.Stats.TableCount++
		}
		if e.Meta().Inferred {
			result.Stats.InferredCount++
		}
	}
	result.Stats.ElementCount = structure.Len()

	if len(result.Unordered) > 0 {
		a.log.Warn().Int("count", len(result.Unordered)).Msg("elements not reached by reading order")
	}
	a.log.Debug().Int("words", result.Stats.WordCount).Int("elements", result.Stats.ElementCount).
		Int("tables", result.Stats.TableCount).Int("inferred", result.Stats.InferredCount).
		Msg("document built")
	return result
}

// countWords counts the words of a layout of words or lines
func countWords(l *model.Layout) int {
	n := 0
	for _, e := range l.Elements {
		switch el := e.(type) {
		case *model.Word:
			n++
		case *model.Line:
			n += len(el.Words)
		}
	}
	return n
}
