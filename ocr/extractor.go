package ocr

import (
	"context"

	"github.com/tsawler/folio/model"
)

// PageImage is the scan of one page of a batch. Page is the index of the
// page inside the batch.
type PageImage struct {
	Page int
	Data []byte
}

// Batch is the unit of work handed to word extractors: a sub-document of a
// few pages and, when available, the image of each page. Pages are indexed
// from 0 inside the batch; Pages maps them back to document pages.
type Batch struct {
	Index     int
	Pages     []int
	PDF       []byte
	PageCount int
	Images    []PageImage
}

// LocalPage returns the batch index of a document page, or -1
func (b Batch) LocalPage(page int) int {
	for i, p := range b.Pages {
		if p == page {
			return i
		}
	}
	return -1
}

// Image returns the image of a batch page, or nil
func (b Batch) Image(page int) []byte {
	for _, img := range b.Images {
		if img.Page == page {
			return img.Data
		}
	}
	return nil
}

// Extractor produces the words of a batch. The returned layout holds
// Word elements, and may hold VisualElements, with batch-local pages.
type Extractor interface {
	Name() model.Extractor
	ExtractWords(ctx context.Context, batch Batch) (*model.Layout, error)
}
