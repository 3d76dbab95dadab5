//go:build ocr

package ocr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestPNG creates a white image with a black rectangle. OCR might or
// might not recognize anything in it.
func createTestPNG(width, height int) []byte {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	for x := 10; x < 50; x++ {
		for y := 10; y < 30; y++ {
			img.Set(x, y, color.Black)
		}
	}

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func newTestTesseract(t *testing.T) *Tesseract {
	t.Helper()
	client, err := NewTesseract()
	if err != nil {
		t.Skipf("Tesseract not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestTesseractExtractWords(t *testing.T) {
	client := newTestTesseract(t)

	batch := Batch{PageCount: 1, Images: []PageImage{{Page: 0, Data: createTestPNG(100, 50)}}}
	// the image is just a rectangle, only the call itself is checked
	l, err := client.ExtractWords(context.Background(), batch)
	require.NoError(t, err)
	for _, w := range l.Words() {
		assert.Equal(t, 0, w.Page)
	}
}

func TestTesseractNoImages(t *testing.T) {
	client := newTestTesseract(t)

	_, err := client.ExtractWords(context.Background(), Batch{PageCount: 1})
	assert.ErrorIs(t, err, ErrNoPageImages)
}

func TestTesseractTranscribe(t *testing.T) {
	client := newTestTesseract(t)

	_, err := client.Transcribe(context.Background(), createTestPNG(100, 50))
	assert.NoError(t, err)
}

func TestTesseractClose(t *testing.T) {
	client, err := NewTesseract()
	if err != nil {
		t.Skipf("Tesseract not available: %v", err)
	}
	require.NoError(t, client.Close())
	// second close is safe
	require.NoError(t, client.Close())
}
