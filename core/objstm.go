package core

import (
	"fmt"
	"strconv"
)

// ObjectStream gives access to the objects packed in a /Type /ObjStm
// stream. The stream is decoded on first use.
type ObjectStream struct {
	stream *Stream
	n      int
	first  int

	loaded  bool
	err     error
	data    []byte
	numbers []int
	offsets []int
	cache   map[int]Object
}

// NewObjectStream checks the dictionary of stream and wraps it
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("object stream: nil stream")
	}
	if t, _ := stream.Dict.GetName("Type"); t != "ObjStm" {
		return nil, fmt.Errorf("object stream: /Type is %v", stream.Dict.Get("Type"))
	}
	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream: bad /N %v", stream.Dict.Get("N"))
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream: bad /First %v", stream.Dict.Get("First"))
	}
	if ext := stream.Dict.Get("Extends"); ext != nil {
		if _, ok := ext.(IndirectRef); !ok {
			return nil, fmt.Errorf("object stream: /Extends is %T", ext)
		}
	}
	return &ObjectStream{stream: stream, n: int(n), first: int(first), cache: map[int]Object{}}, nil
}

// load decodes the data and reads the header of object number and offset
// pairs
func (o *ObjectStream) load() error {
	if o.loaded {
		return o.err
	}
	o.loaded = true
	o.err = func() error {
		data, err := o.stream.Decode()
		if err != nil {
			return fmt.Errorf("object stream: %w", err)
		}
		if o.first > len(data) {
			return fmt.Errorf("object stream: /First %d beyond %d bytes", o.first, len(data))
		}
		sc := NewScanner(data[:o.first])
		for i := 0; i < o.n; i++ {
			num, err1 := sc.Next()
			off, err2 := sc.Next()
			if err1 != nil || err2 != nil || num.Kind != TokenInt || off.Kind != TokenInt {
				return fmt.Errorf("object stream: header pair %d is malformed", i)
			}
			n, _ := strconv.Atoi(string(num.Text))
			offset, _ := strconv.Atoi(string(off.Text))
			o.numbers = append(o.numbers, n)
			o.offsets = append(o.offsets, offset)
		}
		o.data = data
		return nil
	}()
	return o.err
}

// GetObjectByIndex returns the object at position index of the header and
// its object number
func (o *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if err := o.load(); err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(o.offsets) {
		return nil, 0, fmt.Errorf("object stream: index %d of %d", index, len(o.offsets))
	}
	num := o.numbers[index]
	if obj, ok := o.cache[index]; ok {
		return obj, num, nil
	}

	start := o.first + o.offsets[index]
	end := len(o.data)
	if index+1 < len(o.offsets) {
		end = min(end, o.first+o.offsets[index+1])
	}
	if start >= len(o.data) || start > end {
		return nil, 0, fmt.Errorf("object stream: object %d at %d outside data", num, start)
	}

	obj, err := NewParser(o.data[start:end]).ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("object stream: object %d: %w", num, err)
	}
	o.cache[index] = obj
	return obj, num, nil
}

// GetObjectByNumber returns object num and its index in the stream
func (o *ObjectStream) GetObjectByNumber(num int) (Object, int, error) {
	if err := o.load(); err != nil {
		return nil, 0, err
	}
	for i, n := range o.numbers {
		if n == num {
			obj, _, err := o.GetObjectByIndex(i)
			return obj, i, err
		}
	}
	return nil, 0, fmt.Errorf("object stream: object %d not found", num)
}

// Len returns the number of objects announced by /N
func (o *ObjectStream) Len() int { return o.n }
