package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/folio/internal/logger"
	"github.com/tsawler/folio/model"
)

// Transcriber turns the PNG crop of an image element into text
type Transcriber interface {
	Transcribe(ctx context.Context, png []byte) (string, error)
}

// VisionTranscriber transcribes image crops with Cloud Vision document text
// detection
type VisionTranscriber struct {
	vision *Vision
}

// NewVisionTranscriber shares the client of v
func NewVisionTranscriber(v *Vision) *VisionTranscriber {
	return &VisionTranscriber{vision: v}
}

// Transcribe returns the text found in the image, with runs of whitespace
// collapsed
func (t *VisionTranscriber) Transcribe(ctx context.Context, png []byte) (string, error) {
	const op = "transcribe"
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Content: png},
			Features: []*visionpb.Feature{{
				Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION,
			}},
			ImageContext: &visionpb.ImageContext{LanguageHints: t.vision.config.LanguageHints},
		}},
	}
	resp, err := t.vision.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", wrap(op, model.ExtractorVision, err)
	}
	return transcription(resp)
}

func transcription(resp *visionpb.BatchAnnotateImagesResponse) (string, error) {
	if len(resp.GetResponses()) == 0 {
		return "", nil
	}
	r := resp.GetResponses()[0]
	if msg := r.GetError().GetMessage(); msg != "" {
		return "", wrap("transcribe", model.ExtractorVision, fmt.Errorf("vision: %s", msg))
	}
	return strings.Join(strings.Fields(r.GetFullTextAnnotation().GetText()), " "), nil
}

// AttachCrops gives every image element an id and the PNG crop of its
// region, cut from pageImage(page). Images already holding a crop are
// left alone. It returns the number of crops attached.
func AttachCrops(images []*model.Paragraph, pageImage func(page int) []byte, maxSide int) int {
	log := logger.WithComponent("ocr")
	n := 0
	for _, img := range images {
		if img.Metadata.ID == "" {
			img.Metadata.ID = uuid.NewString()
		}
		if len(img.Metadata.Image) > 0 {
			continue
		}
		data := pageImage(img.Page)
		if data == nil {
			continue
		}
		crop, err := CropElement(data, img.BBox, maxSide)
		if err != nil {
			log.Warn().Err(err).Int("page", img.Page).Str("id", img.Metadata.ID).Msg("cannot crop image element")
			continue
		}
		img.Metadata.Image = crop
		n++
	}
	return n
}

// TranscribeConfig holds image transcription settings
type TranscribeConfig struct {
	// Concurrency caps the transcriptions in flight
	Concurrency int `yaml:"concurrency"`

	// MaxSide caps the longer side of image crops, in pixels
	MaxSide int `yaml:"max_side"`
}

// DefaultTranscribeConfig returns sensible defaults
func DefaultTranscribeConfig() TranscribeConfig {
	return TranscribeConfig{
		Concurrency: 4,
		MaxSide:     1024,
	}
}

// TranscribeImages runs t over the crops of images and returns the text of
// each image by id. A failing image is logged and skipped; only
// cancellation of ctx is returned as an error.
func TranscribeImages(ctx context.Context, t Transcriber, images []*model.Paragraph, concurrency int, log zerolog.Logger) (map[string]string, error) {
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	var mu sync.Mutex
	texts := make(map[string]string)
	for _, img := range images {
		if img.Metadata.ID == "" || len(img.Metadata.Image) == 0 {
			continue
		}
		id, data := img.Metadata.ID, img.Metadata.Image
		g.Go(func() error {
			text, err := t.Transcribe(gctx, data)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn().Err(err).Str("id", id).Msg("image transcription failed")
				return nil
			}
			if text == "" {
				return nil
			}
			mu.Lock()
			texts[id] = text
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return texts, err
	}
	return texts, nil
}
