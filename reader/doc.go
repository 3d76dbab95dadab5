// Package reader loads PDF documents held in memory and resolves their
// objects.
//
// It ties the lower level core package (lexer, cross-reference tables,
// object streams) to the pages package:
//
//	r, err := reader.Open("document.pdf")
//	if err != nil {
//	    return err
//	}
//	count, _ := r.PageCount()
//	page, _ := r.GetPage(0) // 0-based
//
// # Damaged files
//
// A cross-reference section that cannot be parsed, or an offset that does
// not point at the expected object, makes the reader rebuild its table by
// scanning the file for "n g obj" markers. Encrypted documents are
// rejected with [ErrEncrypted].
//
// # Object Resolution
//
//   - GetObject(num) loads an object by number, from an object stream when
//     the table says so
//   - Resolve(obj) follows an indirect reference, or returns obj as is
//
// Loaded objects are cached for the life of the Reader.
//
// # Images
//
// [Reader.ExtractPageImages] lists the image XObjects of a page and
// [Reader.ScanImage] returns the dominant one as JPEG or PNG bytes, which
// is what OCR engines need for scanned pages.
package reader
