package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Object is a value of the PDF object model. The set of implementations is
// closed: Null, Bool, Int, Real, String, Name, Array, Dict, *Stream,
// IndirectRef and Keyword.
type Object interface {
	fmt.Stringer
	object()
}

// Null is the PDF null object
type Null struct{}

// Bool is a PDF boolean
type Bool bool

// Int is a PDF integer
type Int int64

// Real is a PDF real number
type Real float64

// String holds the bytes of a literal or hexadecimal string, escapes
// already resolved
type String string

// Name is a PDF name without its leading slash
type Name string

// Keyword is a bare token that is not an object by itself, such as obj,
// endstream or a content stream operator
type Keyword string

// Array is a PDF array
type Array []Object

// Dict is a PDF dictionary keyed by name
type Dict map[string]Object

// Stream is a dictionary followed by raw, still encoded, data
type Stream struct {
	Dict Dict
	Data []byte
}

// IndirectRef points to an object by number and generation
type IndirectRef struct {
	Number     int
	Generation int
}

// IndirectObject is a numbered object as it appears in the file body
type IndirectObject struct {
	Ref    IndirectRef
	Object Object
}

func (Null) object()        {}
func (Bool) object()        {}
func (Int) object()         {}
func (Real) object()        {}
func (String) object()      {}
func (Name) object()        {}
func (Keyword) object()     {}
func (Array) object()       {}
func (Dict) object()        {}
func (*Stream) object()     {}
func (IndirectRef) object() {}

func (Null) String() string      { return "null" }
func (b Bool) String() string    { return strconv.FormatBool(bool(b)) }
func (i Int) String() string     { return strconv.FormatInt(int64(i), 10) }
func (r Real) String() string    { return strconv.FormatFloat(float64(r), 'f', -1, 64) }
func (s String) String() string  { return string(s) }
func (n Name) String() string    { return "/" + string(n) }
func (k Keyword) String() string { return string(k) }

func (a Array) String() string {
	parts := make([]string, len(a))
	for i, o := range a {
		parts[i] = str(o)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// String writes the entries sorted by key so the output is stable
func (d Dict) String() string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("<<")
	for _, k := range keys {
		fmt.Fprintf(&b, " /%s %s", k, str(d[k]))
	}
	b.WriteString(" >>")
	return b.String()
}

func (s *Stream) String() string {
	return fmt.Sprintf("%s stream[%d]", s.Dict, len(s.Data))
}

func (r IndirectRef) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

func str(o Object) string {
	if o == nil {
		return "null"
	}
	return o.String()
}

// Len returns the number of elements
func (a Array) Len() int { return len(a) }

// Get returns element i, or nil when i is out of range
func (a Array) Get(i int) Object {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i]
}

// GetInt returns element i when it is an integer
func (a Array) GetInt(i int) (Int, bool) {
	v, ok := a.Get(i).(Int)
	return v, ok
}

// GetName returns element i when it is a name
func (a Array) GetName(i int) (Name, bool) {
	v, ok := a.Get(i).(Name)
	return v, ok
}

// Get returns the value of key, or nil
func (d Dict) Get(key string) Object { return d[key] }

// Has reports whether key is present
func (d Dict) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Set stores value under key
func (d Dict) Set(key string, value Object) { d[key] = value }

// GetName returns the value of key when it is a name
func (d Dict) GetName(key string) (Name, bool) {
	v, ok := d[key].(Name)
	return v, ok
}

// GetInt returns the value of key when it is an integer
func (d Dict) GetInt(key string) (Int, bool) {
	v, ok := d[key].(Int)
	return v, ok
}

// GetArray returns the value of key when it is an array
func (d Dict) GetArray(key string) (Array, bool) {
	v, ok := d[key].(Array)
	return v, ok
}

// GetDict returns the value of key when it is a dictionary
func (d Dict) GetDict(key string) (Dict, bool) {
	v, ok := d[key].(Dict)
	return v, ok
}

// GetString returns the value of key when it is a string
func (d Dict) GetString(key string) (String, bool) {
	v, ok := d[key].(String)
	return v, ok
}
