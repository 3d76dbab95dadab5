package filters

// Params holds the /DecodeParms entries of a stream with PDF values
// converted to Go ones: integers to int, reals to float64, booleans to
// bool and names to string.
type Params map[string]any

// Int returns the integer value of key, or def
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Bool returns the boolean value of key, or def
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}
