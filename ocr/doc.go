// Package ocr extracts words from page batches and checks their quality.
//
// Two word extractors are provided. Tesseract runs locally over the page
// images of a batch; it wraps gosseract and needs the "ocr" build tag:
//
//	go build -tags ocr
//
// Without the tag every Tesseract call returns ErrOCRNotEnabled. Tesseract
// must be installed on the system (brew install tesseract, or
// apt-get install tesseract-ocr).
//
// Vision sends the batch PDF to Google Cloud Vision document text
// detection and maps the returned word boxes onto the page.
//
// CheckQuality rejects word sets with too many "(cid:N)" placeholders or
// unreadable characters; callers use the returned error to switch to a
// fallback extractor. CropElement and TranscribeImages turn image elements
// into text through a Transcriber.
package ocr
