package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/model"
	"github.com/tsawler/folio/ocr"
	"github.com/tsawler/folio/tables"
)

// Box is a bounding box as [x0, y0, x1, y1]
type Box [4]float64

// Prediction is one box predicted by a detector
type Prediction struct {
	Label string  `json:"label" yaml:"label"`
	Score float64 `json:"score" yaml:"score"`
	Box   Box     `json:"bbox" yaml:"bbox"`
}

// TablePrediction is a table with the structure boxes predicted inside it
type TablePrediction struct {
	Score float64      `json:"score" yaml:"score"`
	Box   Box          `json:"bbox" yaml:"bbox"`
	Cells []Prediction `json:"cells" yaml:"cells"`
}

// WordRecord is one OCR word
type WordRecord struct {
	Content    string  `json:"content" yaml:"content"`
	Box        Box     `json:"bbox" yaml:"bbox"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Vertical   bool    `json:"vertical" yaml:"vertical"`
	FontName   string  `json:"fontname" yaml:"fontname"`
}

// PageRecord holds everything predicted on one document page. Width and
// Height are set when boxes are in pixels.
type PageRecord struct {
	Page        int               `json:"page" yaml:"page"`
	Width       float64           `json:"width,omitempty" yaml:"width,omitempty"`
	Height      float64           `json:"height,omitempty" yaml:"height,omitempty"`
	Predictions []Prediction      `json:"predictions,omitempty" yaml:"predictions,omitempty"`
	Tables      []TablePrediction `json:"tables,omitempty" yaml:"tables,omitempty"`
	Words       []WordRecord      `json:"words,omitempty" yaml:"words,omitempty"`
}

// RecordFile is the content of a prediction file
type RecordFile struct {
	Extractor model.Extractor `json:"extractor" yaml:"extractor"`
	Pages     []PageRecord    `json:"pages" yaml:"pages"`
}

// normalize returns b divided by the page size when the page is in pixels
func (p PageRecord) normalize(b Box) [4]float64 {
	if p.Width > 0 && p.Height > 0 {
		return [4]float64{b[0] / p.Width, b[1] / p.Height, b[2] / p.Width, b[3] / p.Height}
	}
	return b
}

// ParseRecords decodes a record file. YAML is a superset of JSON, so
// asJSON only selects the stricter decoder.
func ParseRecords(r io.Reader, asJSON bool) (*RecordFile, error) {
	var f RecordFile
	if asJSON {
		if err := json.NewDecoder(r).Decode(&f); err != nil {
			return nil, fmt.Errorf("detect: decode records: %w", err)
		}
	} else if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("detect: decode records: %w", err)
	}
	if len(f.Pages) == 0 {
		return nil, ErrNoPredictions
	}
	return &f, nil
}

// LoadRecords reads a record file; ".json" files are decoded as JSON,
// anything else as YAML
func LoadRecords(path string) (*RecordFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	asJSON := strings.EqualFold(filepath.Ext(path), ".json")
	f, err := ParseRecords(bytes.NewReader(data), asJSON)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// RecordsConfig holds the confidence thresholds applied to records
type RecordsConfig struct {
	// ParagraphThreshold drops paragraph-like predictions below this score
	// Default: 0.5
	ParagraphThreshold float64 `yaml:"paragraph_threshold"`

	// TableThreshold drops table predictions below this score
	// Default: 0.5
	TableThreshold float64 `yaml:"table_threshold"`

	// Labels extends or overrides the label mapping of the extractor,
	// e.g. {"Caption": "title"}
	Labels map[string]string `yaml:"labels"`
}

// DefaultRecordsConfig returns sensible defaults
func DefaultRecordsConfig() RecordsConfig {
	return RecordsConfig{
		ParagraphThreshold: 0.5,
		TableThreshold:     0.5,
	}
}

// Records serves the predictions of a record file batch by batch. It is a
// Detector for layout and table records and an ocr.Extractor for word
// records.
type Records struct {
	file      *RecordFile
	config    RecordsConfig
	labels    map[string]model.ElementType
	structure *tables.StructureConverter
	logger    zerolog.Logger
}

// NewRecords creates a Records detector with default configuration
func NewRecords(file *RecordFile) (*Records, error) {
	return NewRecordsWithConfig(file, DefaultRecordsConfig())
}

// NewRecordsWithConfig creates a Records detector with custom configuration
func NewRecordsWithConfig(file *RecordFile, config RecordsConfig) (*Records, error) {
	labels := make(map[string]model.ElementType)
	for k, v := range LabelMap(file.Extractor) {
		labels[k] = v
	}
	for k, v := range config.Labels {
		t, err := model.ParseElementType(v)
		if err != nil {
			return nil, fmt.Errorf("detect: label %q: %w", k, err)
		}
		labels[k] = t
	}
	return &Records{
		file:      file,
		config:    config,
		labels:    labels,
		structure: tables.NewStructureConverter(),
		logger:    logger.WithComponent("detect"),
	}, nil
}

// WithStructureConverter replaces the converter used for TATR tables
func (r *Records) WithStructureConverter(c *tables.StructureConverter) *Records {
	r.structure = c
	return r
}

// WithLogger replaces the component logger
func (r *Records) WithLogger(l zerolog.Logger) *Records {
	r.logger = l
	return r
}

// Name identifies the extractor that produced the records
func (r *Records) Name() model.Extractor {
	if r.file.Extractor == model.ExtractorUnknown {
		return model.ExtractorRecords
	}
	return r.file.Extractor
}

type localPage struct {
	page   int
	record PageRecord
}

// batchPages returns the page records of batch in page order, along with
// their batch-local index. A batch without page mapping covers the first
// PageCount document pages.
func (r *Records) batchPages(batch ocr.Batch) []localPage {
	var pages []localPage
	for _, p := range r.file.Pages {
		local := batch.LocalPage(p.Page)
		if len(batch.Pages) == 0 && p.Page < batch.PageCount {
			local = p.Page
		}
		if local >= 0 {
			pages = append(pages, localPage{page: local, record: p})
		}
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].page < pages[j].page })
	return pages
}

// Detect returns the elements predicted on the pages of batch
func (r *Records) Detect(ctx context.Context, batch ocr.Batch) (*model.Layout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := &model.Layout{}
	skipped := 0
	for _, lp := range r.batchPages(batch) {
		for _, pred := range lp.record.Predictions {
			e := r.predictionElement(pred, lp.record, lp.page)
			if e == nil {
				skipped++
				continue
			}
			out.Append(e)
		}
		for _, tp := range lp.record.Tables {
			t := r.tableElement(tp, lp.record, lp.page)
			if t == nil {
				skipped++
				continue
			}
			out.Append(t)
		}
	}
	r.logger.Debug().Int("batch", batch.Index).Str("extractor", r.Name().String()).
		Int("count", out.Len()).Int("skipped", skipped).Msg("predictions loaded")
	return out, nil
}

func (r *Records) predictionElement(pred Prediction, p PageRecord, page int) model.Element {
	t, ok := r.labels[pred.Label]
	if !ok {
		return nil
	}
	threshold := r.config.ParagraphThreshold
	if t == model.ElementTypeTable {
		threshold = r.config.TableThreshold
	}
	if pred.Score < threshold {
		return nil
	}
	e := newElement(t, p.normalize(pred.Box), page)
	if e == nil {
		return nil
	}
	meta := e.Meta()
	meta.Confidence = pred.Score
	meta.Label = pred.Label
	meta.Extractor = r.Name()
	return e
}

func (r *Records) tableElement(tp TablePrediction, p PageRecord, page int) *model.Table {
	if tp.Score < r.config.TableThreshold {
		return nil
	}
	b := p.normalize(tp.Box)
	t := model.NewTable(b[0], b[1], b[2], b[3], page)
	if t == nil {
		return nil
	}
	t.Metadata.Confidence = tp.Score
	t.Metadata.Extractor = r.Name()

	var boxes []tables.StructureBox
	for _, c := range tp.Cells {
		cb := p.normalize(c.Box)
		bbox, ok := model.NewBBox(cb[0], cb[1], cb[2], cb[3])
		if !ok {
			continue
		}
		boxes = append(boxes, tables.StructureBox{Label: c.Label, Score: c.Score, BBox: bbox})
	}
	if len(boxes) == 0 {
		return t
	}
	r.structure.Convert(t, boxes)
	for i := range t.Cells {
		t.Cells[i].Extractor = r.Name()
	}
	return t
}

// ExtractWords returns the words recorded on the pages of batch
func (r *Records) ExtractWords(ctx context.Context, batch ocr.Batch) (*model.Layout, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := &model.Layout{}
	for _, lp := range r.batchPages(batch) {
		for _, wr := range lp.record.Words {
			b := lp.record.normalize(wr.Box)
			w := model.NewWord(wr.Content, b[0], b[1], b[2], b[3], lp.page)
			if w == nil || strings.TrimSpace(wr.Content) == "" {
				continue
			}
			w.Metadata.Confidence = wr.Confidence
			w.Metadata.Vertical = wr.Vertical
			w.Metadata.FontName = wr.FontName
			w.Metadata.Extractor = r.Name()
			out.Append(w)
		}
	}
	return out, nil
}
