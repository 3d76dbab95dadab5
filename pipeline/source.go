package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"

	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/ocr"
	"github.com/tsawler/folio/reader"
)

// Source cuts a document into batches
type Source interface {
	// Name identifies the document in logs and exports
	Name() string

	// PageCount returns the number of pages of the document
	PageCount() int

	// Batch returns the sub-document made of the given document pages,
	// which are sorted and unique
	Batch(ctx context.Context, index int, pages []int) (ocr.Batch, error)
}

var disableConfigDir sync.Once

func pdfcpuConfig() *pdfmodel.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return conf
}

// PDFSource serves batches of a PDF held in memory. Sub-documents are
// written by pdfcpu; page images come from the scanned image of each page,
// when there is one.
type PDFSource struct {
	name      string
	data      []byte
	pageCount int
	whole     bool // pdfcpu cannot rewrite the file; batches carry all of it
	reader    *reader.Reader
	conf      *pdfmodel.Configuration
	logger    zerolog.Logger
}

var _ Source = (*PDFSource)(nil)

// OpenPDF reads the PDF at path
func OpenPDF(path string) (*PDFSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewPDFSource(filepath.Base(path), data)
}

// NewPDFSource prepares data for batching. Documents pdfcpu cannot read
// are still accepted when the built-in reader can count their pages; they
// are then processed as a single batch.
func NewPDFSource(name string, data []byte) (*PDFSource, error) {
	s := &PDFSource{
		name:   name,
		data:   data,
		conf:   pdfcpuConfig(),
		logger: logger.WithComponent("pipeline"),
	}

	r, readerErr := reader.NewReader(data)
	if readerErr == nil {
		s.reader = r
	}

	count, err := api.PageCount(bytes.NewReader(data), s.conf)
	if err == nil {
		s.pageCount = count
		return s, nil
	}
	if readerErr != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	count, readerErr = r.PageCount()
	if readerErr != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	s.logger.Warn().Err(err).Str("document", name).Msg("document cannot be split, processing it whole")
	s.pageCount = count
	s.whole = true
	return s, nil
}

// Name returns the document name
func (s *PDFSource) Name() string { return s.name }

// PageCount returns the number of pages
func (s *PDFSource) PageCount() int { return s.pageCount }

// Whole reports whether the document can only be processed in one batch
func (s *PDFSource) Whole() bool { return s.whole }

// Batch writes the sub-document of pages and collects their scans
func (s *PDFSource) Batch(ctx context.Context, index int, pages []int) (ocr.Batch, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Batch{}, err
	}
	batch := ocr.Batch{Index: index, Pages: pages, PageCount: len(pages)}
	for _, p := range pages {
		if p < 0 || p >= s.pageCount {
			return batch, fmt.Errorf("page %d out of range [0, %d)", p, s.pageCount)
		}
	}

	if s.whole || s.coversAll(pages) {
		batch.PDF = s.data
	} else {
		selected := make([]string, len(pages))
		for i, p := range pages {
			selected[i] = strconv.Itoa(p + 1)
		}
		var buf bytes.Buffer
		if err := api.Trim(bytes.NewReader(s.data), &buf, selected, s.conf); err != nil {
			return batch, fmt.Errorf("failed to extract pages %v: %w", pages, err)
		}
		batch.PDF = buf.Bytes()
	}

	batch.Images = s.pageImages(pages)
	return batch, nil
}

func (s *PDFSource) coversAll(pages []int) bool {
	return len(pages) == s.pageCount
}

// pageImages returns the scan of every page that has one, indexed by batch
// page
func (s *PDFSource) pageImages(pages []int) []ocr.PageImage {
	if s.reader == nil {
		return nil
	}
	var images []ocr.PageImage
	for i, p := range pages {
		page, err := s.reader.GetPage(p)
		if err != nil {
			s.logger.Debug().Err(err).Int("page", p).Msg("page not readable")
			continue
		}
		data, err := s.reader.ScanImage(page)
		if err != nil {
			s.logger.Debug().Err(err).Int("page", p).Msg("page image not decoded")
			continue
		}
		if data != nil {
			images = append(images, ocr.PageImage{Page: i, Data: data})
		}
	}
	return images
}

// PlanBatches splits the selected pages into sorted batches of size pages.
// A size of 0 or less keeps every page in one batch. Duplicate pages are
// dropped.
func PlanBatches(pages []int, size int) [][]int {
	uniq := make([]int, 0, len(pages))
	seen := make(map[int]bool, len(pages))
	for _, p := range pages {
		if !seen[p] {
			seen[p] = true
			uniq = append(uniq, p)
		}
	}
	sort.Ints(uniq)
	if len(uniq) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]int{uniq}
	}

	var batches [][]int
	for start := 0; start < len(uniq); start += size {
		end := min(start+size, len(uniq))
		batches = append(batches, uniq[start:end:end])
	}
	return batches
}

// AllPages returns the indices of every page of src
func AllPages(src Source) []int {
	pages := make([]int, src.PageCount())
	for i := range pages {
		pages[i] = i
	}
	return pages
}
