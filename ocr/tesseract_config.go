package ocr

import (
	"image"
	"strings"

	"github.com/tsawler/folio/model"
)

// PageSegMode represents Tesseract page segmentation modes.
// These control how Tesseract analyzes the page layout.
type PageSegMode int

// Page segmentation modes (values match Tesseract).
const (
	PSM_OSD_ONLY               PageSegMode = 0  // Orientation and script detection only
	PSM_AUTO_OSD               PageSegMode = 1  // Automatic with OSD
	PSM_AUTO_ONLY              PageSegMode = 2  // Automatic, no OSD or OCR
	PSM_AUTO                   PageSegMode = 3  // Fully automatic (default)
	PSM_SINGLE_COLUMN          PageSegMode = 4  // Single column of variable sizes
	PSM_SINGLE_BLOCK_VERT_TEXT PageSegMode = 5  // Single uniform block of vertically aligned text
	PSM_SINGLE_BLOCK           PageSegMode = 6  // Single uniform block of text
	PSM_SINGLE_LINE            PageSegMode = 7  // Single text line
	PSM_SPARSE_TEXT            PageSegMode = 11 // Find as much text as possible
)

// TesseractConfig holds Tesseract settings
type TesseractConfig struct {
	// Languages are the traineddata names to load, e.g. "eng", "fra"
	Languages []string `yaml:"languages"`

	// PageSegMode selects the page segmentation mode
	PageSegMode PageSegMode `yaml:"page_seg_mode"`

	// MinConfidence drops words recognized with a lower confidence (0-100)
	MinConfidence float64 `yaml:"min_confidence"`
}

// DefaultTesseractConfig returns sensible defaults
func DefaultTesseractConfig() TesseractConfig {
	return TesseractConfig{
		Languages:   []string{"eng"},
		PageSegMode: PSM_AUTO,
	}
}

// wordBox is a recognized word in pixel coordinates, confidence in 0-100
type wordBox struct {
	Rect       image.Rectangle
	Text       string
	Confidence float64
}

// pageWords converts the pixel boxes found on one page image into words
// normalized to the image bounds
func pageWords(boxes []wordBox, bounds image.Rectangle, page int, minConfidence float64) []*model.Word {
	width, height := float64(bounds.Dx()), float64(bounds.Dy())
	if width <= 0 || height <= 0 {
		return nil
	}

	var words []*model.Word
	for _, b := range boxes {
		text := strings.TrimSpace(b.Text)
		if text == "" || b.Confidence < minConfidence {
			continue
		}
		r := b.Rect.Sub(bounds.Min)
		w := model.NewWord(text,
			float64(r.Min.X)/width, float64(r.Min.Y)/height,
			float64(r.Max.X)/width, float64(r.Max.Y)/height,
			page)
		if w == nil {
			continue
		}
		w.Metadata.Confidence = b.Confidence / 100
		w.Metadata.Extractor = model.ExtractorTesseract
		words = append(words, w)
	}
	return words
}
