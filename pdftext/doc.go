// Package pdftext extracts words and horizontal rules from the text layer
// of digital PDFs.
//
// The extractor interprets each page's content streams, form XObjects
// included, and records every shown glyph with its box in display space.
// Glyphs are grouped into words in content stream order: a word ends at a
// blank glyph or when the next glyph does not follow the previous one
// within the configured tolerances. Text drawn with a vertical font, or
// rotated away from the page's reading direction, yields vertical words.
//
// Stroked path segments and thin filled rectangles become visual elements
// the layout builder uses to separate tables and sections.
//
// A batch whose words are mostly CID placeholders or unreadable, or which
// has no words at all, is rejected with an error for which
// ocr.IsQualityFault reports true, so the caller can run OCR instead:
//
//	layout, err := pdftext.New().ExtractWords(ctx, batch)
//	if ocr.IsQualityFault(err) {
//	    layout, err = fallback.ExtractWords(ctx, batch)
//	}
package pdftext
