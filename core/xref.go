package core

import (
	"bytes"
	"fmt"
	"strconv"
)

// XRefEntryType identifies how an object is stored in the file.
type XRefEntryType int

const (
	// XRefEntryFree marks a free object number.
	XRefEntryFree XRefEntryType = iota
	// XRefEntryUncompressed marks an object stored at a byte offset.
	XRefEntryUncompressed
	// XRefEntryCompressed marks an object stored inside an object stream.
	XRefEntryCompressed
)

func (t XRefEntryType) String() string {
	switch t {
	case XRefEntryFree:
		return "free"
	case XRefEntryUncompressed:
		return "uncompressed"
	case XRefEntryCompressed:
		return "compressed"
	default:
		return fmt.Sprintf("XRefEntryType(%d)", int(t))
	}
}

// XRefEntry is a single cross-reference entry.
//
// For compressed entries Offset holds the object number of the containing
// object stream and Generation holds the index of the object inside it.
type XRefEntry struct {
	Type       XRefEntryType
	Offset     int64
	Generation int
	InUse      bool
}

// XRefTable maps object numbers to their locations.
type XRefTable struct {
	Entries  map[int]*XRefEntry
	Trailer  Dict
	IsStream bool // the table came from a cross-reference stream
}

// NewXRefTable creates a new empty XRef table
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get retrieves an XRef entry by object number
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or updates an XRef entry
func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

// Size returns the number of entries in the table
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// XRefParser reads the cross-reference sections of a PDF held in memory.
type XRefParser struct {
	data []byte
}

// NewXRefParser creates a parser over the complete file contents.
func NewXRefParser(data []byte) *XRefParser {
	return &XRefParser{data: data}
}

// FindXRef returns the offset recorded after the last startxref keyword.
func (x *XRefParser) FindXRef() (int64, error) {
	tail := x.data
	if len(tail) > 1024 {
		tail = tail[len(tail)-1024:]
	}

	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx == -1 {
		return 0, fmt.Errorf("startxref not found in PDF")
	}

	fields := bytes.Fields(tail[idx+len("startxref"):])
	if len(fields) == 0 {
		return 0, fmt.Errorf("invalid startxref format")
	}

	offset, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid xref offset: %w", err)
	}
	if offset < 0 || offset >= int64(len(x.data)) {
		return 0, fmt.Errorf("xref offset %d outside file of %d bytes", offset, len(x.data))
	}
	return offset, nil
}

// ParseXRef parses the section at offset, which may be a classic table or
// a cross-reference stream. A hybrid file's /XRefStm entries are folded
// into the classic table.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	if offset < 0 || offset >= int64(len(x.data)) {
		return nil, fmt.Errorf("xref offset %d outside file", offset)
	}

	pos := skipSpace(x.data, int(offset))
	if bytes.HasPrefix(x.data[pos:], []byte("xref")) {
		table, err := x.parseTable(pos)
		if err != nil {
			return nil, err
		}
		if stm, ok := table.Trailer.GetInt("XRefStm"); ok {
			hybrid, err := x.parseStreamAt(int64(stm))
			if err != nil {
				return nil, fmt.Errorf("failed to parse /XRefStm: %w", err)
			}
			for num, e := range hybrid.Entries {
				if cur, ok := table.Entries[num]; !ok || !cur.InUse {
					table.Set(num, e)
				}
			}
		}
		return table, nil
	}

	return x.parseStreamAt(int64(pos))
}

func skipSpace(data []byte, pos int) int {
	for pos < len(data) && isSpace(data[pos]) {
		pos++
	}
	return pos
}

// nextLine returns the line starting at pos without its terminator, and
// the position of the following line.
func nextLine(data []byte, pos int) ([]byte, int) {
	start := pos
	for pos < len(data) && data[pos] != '\n' && data[pos] != '\r' {
		pos++
	}
	line := data[start:pos]
	if pos < len(data) && data[pos] == '\r' {
		pos++
	}
	if pos < len(data) && data[pos] == '\n' {
		pos++
	}
	return line, pos
}

func (x *XRefParser) parseTable(pos int) (*XRefTable, error) {
	line, pos := nextLine(x.data, pos)
	if string(bytes.TrimSpace(line)) != "xref" {
		return nil, fmt.Errorf("expected 'xref' keyword, got %q", line)
	}

	table := NewXRefTable()
	for pos < len(x.data) {
		start := pos
		line, pos = nextLine(x.data, pos)
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}

		if bytes.HasPrefix(trimmed, []byte("trailer")) {
			dictStart := start + bytes.Index(x.data[start:], []byte("trailer")) + len("trailer")
			obj, err := NewParser(x.data[dictStart:]).ParseObject()
			if err != nil {
				return nil, fmt.Errorf("failed to parse trailer: %w", err)
			}
			dict, ok := obj.(Dict)
			if !ok {
				return nil, fmt.Errorf("trailer is not a dictionary, got %T", obj)
			}
			table.Trailer = dict
			return table, nil
		}

		parts := bytes.Fields(trimmed)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid subsection header: %q", trimmed)
		}
		first, err := strconv.Atoi(string(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid first object number: %w", err)
		}
		count, err := strconv.Atoi(string(parts[1]))
		if err != nil || count < 0 {
			return nil, fmt.Errorf("invalid subsection count %q", parts[1])
		}

		for i := 0; i < count; i++ {
			if pos >= len(x.data) {
				return nil, fmt.Errorf("unexpected end of xref subsection")
			}
			line, pos = nextLine(x.data, pos)
			entry, err := parseTableEntry(line)
			if err != nil {
				return nil, err
			}
			table.Set(first+i, entry)
		}
	}

	return nil, fmt.Errorf("xref table missing trailer")
}

// parseTableEntry parses "nnnnnnnnnn ggggg n". Writers disagree on the
// padding so the fields are split on whitespace.
func parseTableEntry(line []byte) (*XRefEntry, error) {
	parts := bytes.Fields(line)
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid xref entry %q", line)
	}

	offset, err := strconv.ParseInt(string(parts[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid offset %q: %w", parts[0], err)
	}
	gen, err := strconv.Atoi(string(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid generation %q: %w", parts[1], err)
	}

	switch string(parts[2]) {
	case "n":
		return &XRefEntry{Type: XRefEntryUncompressed, Offset: offset, Generation: gen, InUse: true}, nil
	case "f":
		return &XRefEntry{Type: XRefEntryFree, Offset: offset, Generation: gen}, nil
	default:
		return nil, fmt.Errorf("invalid in-use flag %q", parts[2])
	}
}

func (x *XRefParser) parseStreamAt(offset int64) (*XRefTable, error) {
	if offset < 0 || offset >= int64(len(x.data)) {
		return nil, fmt.Errorf("xref stream offset %d outside file", offset)
	}

	obj, err := NewParser(x.data[offset:]).ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref stream object: %w", err)
	}
	stream, ok := obj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("xref stream object is %T, not a stream", obj.Object)
	}
	return ParseXRefStream(stream)
}

// ParseXRefStream decodes a cross-reference stream into a table whose
// trailer is the stream dictionary.
func ParseXRefStream(stream *Stream) (*XRefTable, error) {
	dict := stream.Dict
	if typ, _ := dict.GetName("Type"); typ != "XRef" {
		return nil, fmt.Errorf("xref stream /Type is %q, want XRef", typ)
	}
	size, ok := dict.GetInt("Size")
	if !ok {
		return nil, fmt.Errorf("xref stream missing /Size")
	}

	wArr, ok := dict.GetArray("W")
	if !ok {
		return nil, fmt.Errorf("xref stream missing /W")
	}
	if len(wArr) != 3 {
		return nil, fmt.Errorf("xref stream /W has %d fields, want 3", len(wArr))
	}
	w := make([]int, 3)
	for i := range wArr {
		v, ok := wArr.GetInt(i)
		if !ok || v < 0 || v > 8 {
			return nil, fmt.Errorf("invalid /W field %v", wArr[i])
		}
		w[i] = int(v)
	}

	index := []int{0, int(size)}
	if arr, ok := dict.GetArray("Index"); ok {
		if len(arr)%2 != 0 {
			return nil, fmt.Errorf("xref stream /Index has odd length %d", len(arr))
		}
		index = index[:0]
		for i := range arr {
			v, ok := arr.GetInt(i)
			if !ok {
				return nil, fmt.Errorf("invalid /Index value %v", arr[i])
			}
			index = append(index, int(v))
		}
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode xref stream: %w", err)
	}

	table := NewXRefTable()
	table.IsStream = true
	table.Trailer = dict

	pos := 0
	for i := 0; i < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			entry, n, err := parseXRefStreamEntry(data[pos:], w)
			if err != nil {
				return nil, fmt.Errorf("object %d: %w", first+j, err)
			}
			pos += n
			table.Set(first+j, entry)
		}
	}
	return table, nil
}

func parseXRefStreamEntry(data []byte, w []int) (*XRefEntry, int, error) {
	n := w[0] + w[1] + w[2]
	if len(data) < n {
		return nil, 0, fmt.Errorf("xref stream entry truncated: %d of %d bytes", len(data), n)
	}

	typ := int64(1)
	if w[0] > 0 {
		typ = readBigEndianInt(data, w[0])
	}
	f2 := readBigEndianInt(data[w[0]:], w[1])
	f3 := readBigEndianInt(data[w[0]+w[1]:], w[2])

	switch typ {
	case 0:
		return &XRefEntry{Type: XRefEntryFree, Offset: f2, Generation: int(f3)}, n, nil
	case 1:
		return &XRefEntry{Type: XRefEntryUncompressed, Offset: f2, Generation: int(f3), InUse: true}, n, nil
	case 2:
		return &XRefEntry{Type: XRefEntryCompressed, Offset: f2, Generation: int(f3), InUse: true}, n, nil
	default:
		// unknown types are treated as null references
		return &XRefEntry{Type: XRefEntryFree}, n, nil
	}
}

func readBigEndianInt(data []byte, width int) int64 {
	var v int64
	for i := 0; i < width && i < len(data); i++ {
		v = v<<8 | int64(data[i])
	}
	return v
}

// MergeXRefTables merges tables from incremental updates, oldest first.
// Later entries override earlier ones and the last trailer wins.
func MergeXRefTables(tables ...*XRefTable) *XRefTable {
	merged := NewXRefTable()
	for _, table := range tables {
		for objNum, entry := range table.Entries {
			merged.Set(objNum, entry)
		}
		merged.Trailer = table.Trailer
		merged.IsStream = table.IsStream
	}
	return merged
}

// ParseAllXRefs follows the /Prev chain from the last section and returns
// the sections oldest first.
func (x *XRefParser) ParseAllXRefs() ([]*XRefTable, error) {
	offset, err := x.FindXRef()
	if err != nil {
		return nil, err
	}

	var tables []*XRefTable
	seen := make(map[int64]bool)
	for {
		if seen[offset] {
			return nil, fmt.Errorf("xref /Prev loop at offset %d", offset)
		}
		seen[offset] = true

		table, err := x.ParseXRef(offset)
		if err != nil {
			return nil, fmt.Errorf("failed to parse xref at %d: %w", offset, err)
		}
		tables = append([]*XRefTable{table}, tables...)

		prev, ok := table.Trailer.GetInt("Prev")
		if !ok {
			return tables, nil
		}
		offset = int64(prev)
	}
}
