package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/folio/model"
)

// pageImage returns a PNG whose right half is black
func pageImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.White
			if x >= width/2 {
				c = color.Black
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestCropElement(t *testing.T) {
	page := pageImage(t, 200, 100)

	crop, err := CropElement(page, model.MustBBox(0.5, 0.5, 1.0, 1.0), 0)
	require.NoError(t, err)
	img := decodePNG(t, crop)
	assert.Equal(t, image.Rect(0, 0, 100, 50), img.Bounds())
	r, _, _, _ := img.At(10, 10).RGBA()
	assert.Zero(t, r, "crop comes from the black half")

	scaled, err := CropElement(page, model.MustBBox(0.5, 0.5, 1.0, 1.0), 50)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 25), decodePNG(t, scaled).Bounds())
}

func TestCropElementErrors(t *testing.T) {
	_, err := CropElement([]byte("not an image"), model.MustBBox(0, 0, 1, 1), 0)
	assert.Error(t, err)
}

func TestImageBounds(t *testing.T) {
	bounds, err := imageBounds(pageImage(t, 30, 20))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 30, 20), bounds)

	_, err = imageBounds(nil)
	assert.Error(t, err)
}

func TestFitSize(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{100, 50, 0, 100, 50},
		{100, 50, 200, 100, 50},
		{100, 50, 50, 50, 25},
		{50, 400, 100, 13, 100},
		{1000, 1, 10, 10, 1},
	}
	for _, tt := range tests {
		w, h := fitSize(tt.w, tt.h, tt.max)
		assert.Equal(t, [2]int{tt.wantW, tt.wantH}, [2]int{w, h})
	}
}
