package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/tsawler/folio/model"
)

// imageBounds returns the pixel bounds of an encoded image without
// decoding its pixels
func imageBounds(data []byte) (image.Rectangle, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("decode image config: %w", err)
	}
	return image.Rect(0, 0, cfg.Width, cfg.Height), nil
}

// pixelRect maps a normalized box onto bounds, rounding outwards
func pixelRect(box model.BBox, bounds image.Rectangle) image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	return image.Rect(
		bounds.Min.X+int(math.Floor(box.X0*w)),
		bounds.Min.Y+int(math.Floor(box.Y0*h)),
		bounds.Min.X+int(math.Ceil(box.X1*w)),
		bounds.Min.Y+int(math.Ceil(box.Y1*h)),
	).Intersect(bounds)
}

// fitSize scales w x h down so that the longer side is at most maxSide.
// A non-positive maxSide keeps the size.
func fitSize(w, h, maxSide int) (int, int) {
	longest := max(w, h)
	if maxSide <= 0 || longest <= maxSide {
		return w, h
	}
	scale := float64(maxSide) / float64(longest)
	return max(1, int(math.Round(float64(w)*scale))), max(1, int(math.Round(float64(h)*scale)))
}

// CropElement cuts the region under box out of a page image (PNG, JPEG,
// TIFF, BMP or WebP) and returns it as PNG. The crop is scaled down so that
// its longer side is at most maxSide pixels; zero keeps the original size.
func CropElement(pageImage []byte, box model.BBox, maxSide int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(pageImage))
	if err != nil {
		return nil, fmt.Errorf("ocr: decode page image: %w", err)
	}
	rect := pixelRect(box, src.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("ocr: crop of %v is empty", box.Tuple())
	}

	w, h := fitSize(rect.Dx(), rect.Dy(), maxSide)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == rect.Dx() && h == rect.Dy() {
		draw.Draw(dst, dst.Bounds(), src, rect.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, rect, draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("ocr: encode crop: %w", err)
	}
	return buf.Bytes(), nil
}
