package ocr

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"

	"github.com/tsawler/folio/internal/gcp"
	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/model"
)

// maxVisionPages is the page limit of a synchronous file annotation
const maxVisionPages = 5

// VisionConfig holds Cloud Vision settings
type VisionConfig struct {
	Credentials gcp.Credentials `yaml:"credentials"`

	// Endpoint overrides the API endpoint, e.g. "eu-vision.googleapis.com:443"
	Endpoint string `yaml:"endpoint"`

	// LanguageHints are BCP-47 codes passed to text detection
	LanguageHints []string `yaml:"language_hints"`

	// PagesPerRequest caps the pages of one annotation request (1-5)
	PagesPerRequest int `yaml:"pages_per_request"`
}

// DefaultVisionConfig returns sensible defaults
func DefaultVisionConfig() VisionConfig {
	return VisionConfig{PagesPerRequest: maxVisionPages}
}

// Vision extracts words from batch PDFs with Google Cloud Vision document
// text detection
type Vision struct {
	client *vision.ImageAnnotatorClient
	config VisionConfig
	logger zerolog.Logger
}

// NewVision creates a Vision extractor. Credentials missing from config are
// read from GOOGLE_CREDENTIALS or GOOGLE_APPLICATION_CREDENTIALS, then from
// application default credentials.
func NewVision(ctx context.Context, config VisionConfig) (*Vision, error) {
	config.Credentials = config.Credentials.FromEnv()
	if config.PagesPerRequest <= 0 || config.PagesPerRequest > maxVisionPages {
		config.PagesPerRequest = maxVisionPages
	}
	client, err := vision.NewImageAnnotatorClient(ctx, gcp.ClientOptions(config.Credentials, config.Endpoint)...)
	if err != nil {
		return nil, wrap("init", model.ExtractorVision, fmt.Errorf("create client: %w", err))
	}
	return NewVisionWithClient(client, config), nil
}

// NewVisionWithClient creates a Vision extractor around an existing client
func NewVisionWithClient(client *vision.ImageAnnotatorClient, config VisionConfig) *Vision {
	return &Vision{
		client: client,
		config: config,
		logger: logger.WithComponent("ocr"),
	}
}

// WithLogger replaces the component logger
func (v *Vision) WithLogger(l zerolog.Logger) *Vision {
	v.logger = l
	return v
}

// Close closes the underlying client
func (v *Vision) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

// Name identifies the extractor
func (v *Vision) Name() model.Extractor { return model.ExtractorVision }

// ExtractWords annotates the batch PDF a few pages at a time and returns
// its words
func (v *Vision) ExtractWords(ctx context.Context, batch Batch) (*model.Layout, error) {
	const op = "extract words"
	if len(batch.PDF) == 0 {
		return nil, wrap(op, model.ExtractorVision, ErrNoPDF)
	}

	out := &model.Layout{}
	for first := 0; first < batch.PageCount; first += v.config.PagesPerRequest {
		last := min(first+v.config.PagesPerRequest, batch.PageCount)
		pages := make([]int32, 0, last-first)
		for p := first; p < last; p++ {
			pages = append(pages, int32(p+1))
		}

		req := &visionpb.BatchAnnotateFilesRequest{
			Requests: []*visionpb.AnnotateFileRequest{{
				InputConfig: &visionpb.InputConfig{
					Content:  batch.PDF,
					MimeType: "application/pdf",
				},
				Features: []*visionpb.Feature{{
					Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION,
				}},
				ImageContext: &visionpb.ImageContext{LanguageHints: v.config.LanguageHints},
				Pages:        pages,
			}},
		}
		resp, err := v.client.BatchAnnotateFiles(ctx, req)
		if err != nil {
			return nil, wrap(op, model.ExtractorVision, err)
		}
		if len(resp.GetResponses()) == 0 {
			return nil, wrap(op, model.ExtractorVision, errors.New("empty response"))
		}
		words, err := wordsFromFileResponse(resp.GetResponses()[0], first)
		if err != nil {
			return nil, wrap(op, model.ExtractorVision, err)
		}
		for _, w := range words {
			out.Append(w)
		}
		v.logger.Debug().Int("batch", batch.Index).Int("first_page", first).Int("count", len(words)).Msg("pages annotated")
	}
	return out, nil
}

// wordsFromFileResponse converts a file annotation into words. Pages are
// numbered from the annotation context when present, from firstPage
// onwards otherwise.
func wordsFromFileResponse(resp *visionpb.AnnotateFileResponse, firstPage int) ([]*model.Word, error) {
	if msg := resp.GetError().GetMessage(); msg != "" {
		return nil, fmt.Errorf("vision: %s", msg)
	}

	var words []*model.Word
	for i, r := range resp.GetResponses() {
		if msg := r.GetError().GetMessage(); msg != "" {
			return nil, fmt.Errorf("vision: page %d: %s", firstPage+i, msg)
		}
		page := firstPage + i
		if n := r.GetContext().GetPageNumber(); n > 0 {
			page = int(n) - 1
		}
		for _, p := range r.GetFullTextAnnotation().GetPages() {
			words = append(words, pageWordsFromVision(p, page)...)
		}
	}
	return words, nil
}

func pageWordsFromVision(p *visionpb.Page, page int) []*model.Word {
	var words []*model.Word
	for _, block := range p.GetBlocks() {
		for _, para := range block.GetParagraphs() {
			for _, vw := range para.GetWords() {
				var sb strings.Builder
				for _, s := range vw.GetSymbols() {
					sb.WriteString(s.GetText())
				}
				text := strings.TrimSpace(sb.String())
				if text == "" {
					continue
				}
				x0, y0, x1, y1, vertical, ok := polyBox(vw.GetBoundingBox(), p.GetWidth(), p.GetHeight())
				if !ok {
					continue
				}
				w := model.NewWord(text, x0, y0, x1, y1, page)
				if w == nil {
					continue
				}
				w.Metadata.Confidence = float64(vw.GetConfidence())
				w.Metadata.Extractor = model.ExtractorVision
				w.Metadata.Vertical = vertical
				words = append(words, w)
			}
		}
	}
	return words
}

// polyBox returns the normalized bounds of a polygon. Pixel vertices are
// normalized by the page size. The first edge of a Vision polygon follows
// the reading direction, so a mostly vertical first edge marks vertical
// text.
func polyBox(poly *visionpb.BoundingPoly, width, height int32) (x0, y0, x1, y1 float64, vertical, ok bool) {
	var xs, ys []float64
	if nv := poly.GetNormalizedVertices(); len(nv) > 0 {
		for _, v := range nv {
			xs = append(xs, float64(v.GetX()))
			ys = append(ys, float64(v.GetY()))
		}
	} else if width > 0 && height > 0 {
		for _, v := range poly.GetVertices() {
			xs = append(xs, float64(v.GetX())/float64(width))
			ys = append(ys, float64(v.GetY())/float64(height))
		}
	}
	if len(xs) < 2 {
		return 0, 0, 0, 0, false, false
	}

	x0, y0, x1, y1 = xs[0], ys[0], xs[0], ys[0]
	for i := range xs {
		x0, x1 = math.Min(x0, xs[i]), math.Max(x1, xs[i])
		y0, y1 = math.Min(y0, ys[i]), math.Max(y1, ys[i])
	}
	vertical = math.Abs(ys[1]-ys[0]) > math.Abs(xs[1]-xs[0])
	return x0, y0, x1, y1, vertical, true
}
