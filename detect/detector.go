package detect

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tsawler/folio/model"
	"github.com/tsawler/folio/ocr"
)

// ErrNoPredictions is returned when a record file holds no page
var ErrNoPredictions = errors.New("detect: no predictions")

// Detector produces the structural elements of a batch: paragraphs, titles,
// lists, images and tables without content, on batch-local pages
type Detector interface {
	Name() model.Extractor
	Detect(ctx context.Context, batch ocr.Batch) (*model.Layout, error)
}

// Labels of the YOLO DocStructBench model
var yoloLabels = map[string]model.ElementType{
	"table":           model.ElementTypeTable,
	"title":           model.ElementTypeTitle,
	"figure_caption":  model.ElementTypeTitle,
	"table_caption":   model.ElementTypeTitle,
	"formula_caption": model.ElementTypeTitle,
	"plain text":      model.ElementTypeText,
	"table_footnote":  model.ElementTypeText,
	"isolate_formula": model.ElementTypeText,
	"abandon":         model.ElementTypeExtra,
	"figure":          model.ElementTypeImage,
}

// Labels of the Detectron2 PubLayNet model
var detectron2Labels = map[string]model.ElementType{
	"Text":   model.ElementTypeText,
	"Title":  model.ElementTypeTitle,
	"List":   model.ElementTypeList,
	"Table":  model.ElementTypeTable,
	"Figure": model.ElementTypeImage,
}

// Labels of the TATR detection model
var tatrLabels = map[string]model.ElementType{
	"table":         model.ElementTypeTable,
	"table rotated": model.ElementTypeTable,
}

// LabelMap returns the label to element type mapping of a detector
func LabelMap(ex model.Extractor) map[string]model.ElementType {
	switch ex {
	case model.ExtractorYOLO:
		return yoloLabels
	case model.ExtractorDetectron2:
		return detectron2Labels
	case model.ExtractorTATR:
		return tatrLabels
	}
	return nil
}

// newElement creates an empty element of type t, or nil when the box is
// invalid. Images get a fresh id.
func newElement(t model.ElementType, b [4]float64, page int) model.Element {
	if t == model.ElementTypeTable {
		if tbl := model.NewTable(b[0], b[1], b[2], b[3], page); tbl != nil {
			return tbl
		}
		return nil
	}
	p := model.NewParagraph(t, b[0], b[1], b[2], b[3], page)
	if p == nil {
		return nil
	}
	if t == model.ElementTypeImage {
		p.Metadata.ID = uuid.NewString()
	}
	return p
}
