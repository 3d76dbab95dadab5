package core

import (
	"errors"
	"fmt"

	"github.com/tsawler/folio/internal/filters"
)

// ErrUnsupportedFilter is returned for filters that cannot be decoded,
// such as JBIG2Decode or encrypted streams
var ErrUnsupportedFilter = errors.New("unsupported filter")

type decodeFunc func(data []byte, params filters.Params) ([]byte, error)

func noParams(f func([]byte) ([]byte, error)) decodeFunc {
	return func(data []byte, _ filters.Params) ([]byte, error) { return f(data) }
}

// passThrough leaves image codecs encoded for the image readers
func passThrough(data []byte, _ filters.Params) ([]byte, error) { return data, nil }

var decoders = map[string]decodeFunc{
	"FlateDecode":     filters.FlateDecode,
	"LZWDecode":       filters.LZWDecode,
	"CCITTFaxDecode":  filters.CCITTFaxDecode,
	"ASCIIHexDecode":  noParams(filters.ASCIIHexDecode),
	"ASCII85Decode":   noParams(filters.ASCII85Decode),
	"RunLengthDecode": noParams(filters.RunLengthDecode),
	"DCTDecode":       passThrough,
	"JPXDecode":       passThrough,
}

// abbreviations used by inline images
var filterAliases = map[string]string{
	"Fl": "FlateDecode", "LZW": "LZWDecode", "CCF": "CCITTFaxDecode",
	"AHx": "ASCIIHexDecode", "A85": "ASCII85Decode", "RL": "RunLengthDecode",
	"DCT": "DCTDecode",
}

// Filters returns the filter names of the stream in application order
func (s *Stream) Filters() []string {
	switch f := s.Dict.Get("Filter").(type) {
	case Name:
		return []string{string(f)}
	case Array:
		names := make([]string, 0, len(f))
		for _, o := range f {
			if n, ok := o.(Name); ok {
				names = append(names, string(n))
			}
		}
		return names
	}
	return nil
}

// Decode applies the stream's filters in order and returns the result.
// DCTDecode and JPXDecode data is returned still encoded.
func (s *Stream) Decode() ([]byte, error) {
	filter := s.Dict.Get("Filter")
	switch filter.(type) {
	case nil, Null, Name, Array:
	default:
		return nil, fmt.Errorf("stream /Filter is %T", filter)
	}
	if a, ok := filter.(Array); ok {
		for i, o := range a {
			if _, ok := o.(Name); !ok {
				return nil, fmt.Errorf("stream /Filter[%d] is %T", i, o)
			}
		}
	}

	data := s.Data
	for i, name := range s.Filters() {
		if alias, ok := filterAliases[name]; ok {
			name = alias
		}
		decode, ok := decoders[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, name)
		}
		out, err := decode(data, decodeParams(s.Dict, i))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		data = out
	}
	return data, nil
}

// decodeParams returns the /DecodeParms entry for filter i. A single
// dictionary applies to every filter.
func decodeParams(d Dict, i int) filters.Params {
	var params Dict
	switch v := d.Get("DecodeParms").(type) {
	case Dict:
		params = v
	case Array:
		params, _ = v.Get(i).(Dict)
	}
	return toParams(params)
}

func toParams(d Dict) filters.Params {
	if len(d) == 0 {
		return nil
	}
	params := make(filters.Params, len(d))
	for k, v := range d {
		switch v := v.(type) {
		case Int:
			params[k] = int(v)
		case Real:
			params[k] = float64(v)
		case Bool:
			params[k] = bool(v)
		case Name:
			params[k] = string(v)
		case String:
			params[k] = string(v)
		default:
			params[k] = v
		}
	}
	return params
}
