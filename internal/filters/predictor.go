package filters

import "fmt"

// unpredict reverses the Predictor of Flate and LZW streams: 1 is none,
// 2 is TIFF horizontal differencing and 10 to 15 are the PNG filters,
// chosen per row by a tag byte.
func unpredict(data []byte, params Params) ([]byte, error) {
	predictor := params.Int("Predictor", 1)
	colors := params.Int("Colors", 1)
	bpc := params.Int("BitsPerComponent", 8)
	columns := params.Int("Columns", 1)
	if colors < 1 || columns < 1 {
		return nil, fmt.Errorf("predictor: %d colors, %d columns", colors, columns)
	}

	switch {
	case predictor <= 1:
		return data, nil
	case predictor == 2:
		if bpc != 8 {
			return nil, fmt.Errorf("predictor 2: %d bits per component", bpc)
		}
		return tiffRows(data, colors*columns, colors)
	case predictor >= 10 && predictor <= 15:
		rowLen := (colors*bpc*columns + 7) / 8
		pixel := max(1, (colors*bpc+7)/8)
		return pngRows(data, rowLen, pixel)
	}
	return nil, fmt.Errorf("predictor %d not supported", predictor)
}

func tiffRows(data []byte, rowLen, pixel int) ([]byte, error) {
	if len(data)%rowLen != 0 {
		return nil, fmt.Errorf("predictor 2: %d bytes is not a whole number of %d byte rows", len(data), rowLen)
	}
	out := append([]byte(nil), data...)
	for row := 0; row < len(out); row += rowLen {
		for i := row + pixel; i < row+rowLen; i++ {
			out[i] += out[i-pixel]
		}
	}
	return out, nil
}

// pngRows undoes the PNG filters. A trailing partial row is dropped.
func pngRows(data []byte, rowLen, pixel int) ([]byte, error) {
	stride := rowLen + 1
	rows := len(data) / stride
	if rows == 0 && len(data) > 0 {
		return nil, fmt.Errorf("png predictor: %d bytes, rows of %d", len(data), stride)
	}

	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		tag := data[r*stride]
		in := data[r*stride+1 : (r+1)*stride]
		cur := out[r*rowLen : (r+1)*rowLen]
		for i, x := range in {
			var left, upLeft byte
			if i >= pixel {
				left, upLeft = cur[i-pixel], prev[i-pixel]
			}
			up := prev[i]
			switch tag {
			case 0:
				cur[i] = x
			case 1:
				cur[i] = x + left
			case 2:
				cur[i] = x + up
			case 3:
				cur[i] = x + byte((int(left)+int(up))/2)
			case 4:
				cur[i] = x + paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("png predictor: row %d has filter %d", r, tag)
			}
		}
		prev = cur
	}
	return out, nil
}

// paeth picks the neighbour closest to left+up-upLeft, ties going to
// left then up
func paeth(left, up, upLeft byte) byte {
	p := int(left) + int(up) - int(upLeft)
	dl, du, dul := absInt(p-int(left)), absInt(p-int(up)), absInt(p-int(upLeft))
	switch {
	case dl <= du && dl <= dul:
		return left
	case du <= dul:
		return up
	}
	return upLeft
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
