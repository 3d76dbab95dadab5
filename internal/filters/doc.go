// Package filters undoes the standard PDF stream filters.
//
// FlateDecode and LZWDecode reverse the TIFF and PNG predictors given in
// the decode parameters:
//
//	out, err := filters.FlateDecode(data, filters.Params{"Predictor": 12, "Columns": 5})
//
// ASCIIHexDecode, ASCII85Decode and RunLengthDecode take no parameters.
// CCITTFaxDecode returns packed one bit per pixel rows decoded with
// golang.org/x/image/ccitt, and the TIFF flavour of LZW comes from
// golang.org/x/image/tiff/lzw.
package filters
