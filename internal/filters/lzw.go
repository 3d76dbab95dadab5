package filters

import (
	"bytes"
	"compress/lzw"
	"fmt"
	"io"

	tifflzw "golang.org/x/image/tiff/lzw"
)

// LZWDecode decompresses LZW data. PDF's default EarlyChange of 1 widens
// codes one entry early, which is the TIFF variant of the algorithm.
func LZWDecode(data []byte, params Params) ([]byte, error) {
	var rc io.ReadCloser
	if params.Int("EarlyChange", 1) == 1 {
		rc = tifflzw.NewReader(bytes.NewReader(data), tifflzw.MSB, 8)
	} else {
		rc = lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
	}
	defer rc.Close()

	out, err := io.ReadAll(rc)
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("lzw: %w", err)
	}

	return unpredict(out, params)
}
