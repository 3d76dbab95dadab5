package filters

import (
	"bytes"
	"io"

	"golang.org/x/image/ccitt"
)

// CCITTFaxDecode decodes Group 3 and Group 4 fax data into packed rows of
// one bit per pixel. K below zero selects Group 4. Without /Rows the height
// is taken from the data.
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	format := ccitt.Group3
	if params.Int("K", 0) < 0 {
		format = ccitt.Group4
	}
	rows := params.Int("Rows", 0)
	if rows <= 0 {
		rows = ccitt.AutoDetectHeight
	}

	r := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, format,
		params.Int("Columns", 1728), rows,
		&ccitt.Options{Invert: params.Bool("BlackIs1", false)})
	return io.ReadAll(r)
}
