package core

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// buildClassicPDF lays out objects 1..n and appends a classic xref table.
func buildClassicPDF(objects ...string) ([]byte, []int64) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int64, len(objects))
	for i, body := range objects {
		offsets[i] = int64(buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes(), offsets
}

func TestFindXRef(t *testing.T) {
	data, _ := buildClassicPDF("<< /Type /Catalog >>")
	offset, err := NewXRefParser(data).FindXRef()
	if err != nil {
		t.Fatalf("FindXRef() error = %v", err)
	}
	if !bytes.HasPrefix(data[offset:], []byte("xref")) {
		t.Errorf("offset %d does not point at xref", offset)
	}

	if _, err := NewXRefParser([]byte("%PDF-1.4\n")).FindXRef(); err == nil {
		t.Error("expected error without startxref")
	}
	if _, err := NewXRefParser([]byte("startxref\n99999\n%%EOF")).FindXRef(); err == nil {
		t.Error("expected error for offset past the end")
	}
}

func TestParseClassicXRef(t *testing.T) {
	data, offsets := buildClassicPDF("<< /Type /Catalog >>", "(hello)")
	tables, err := NewXRefParser(data).ParseAllXRefs()
	if err != nil {
		t.Fatalf("ParseAllXRefs() error = %v", err)
	}
	if len(tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(tables))
	}

	table := tables[0]
	if table.IsStream {
		t.Error("classic table reported as stream")
	}
	if table.Size() != 3 {
		t.Errorf("Size() = %d, want 3", table.Size())
	}
	free, _ := table.Get(0)
	if free.InUse || free.Type != XRefEntryFree || free.Generation != 65535 {
		t.Errorf("entry 0 = %+v, want free", free)
	}
	for i, off := range offsets {
		e, ok := table.Get(i + 1)
		if !ok || e.Offset != off || e.Type != XRefEntryUncompressed {
			t.Errorf("entry %d = %+v, want offset %d", i+1, e, off)
		}
	}
	if size, _ := table.Trailer.GetInt("Size"); size != 3 {
		t.Errorf("trailer /Size = %d", size)
	}
}

func TestParseXRefEntryErrors(t *testing.T) {
	for _, line := range []string{"0000000000 00000", "abc 00000 n", "0000000010 00000 x"} {
		if _, err := parseTableEntry([]byte(line)); err == nil {
			t.Errorf("parseTableEntry(%q) expected error", line)
		}
	}
}

func TestReadBigEndianInt(t *testing.T) {
	tests := []struct {
		data  []byte
		width int
		want  int64
	}{
		{[]byte{0x01}, 1, 1},
		{[]byte{0x10, 0x00}, 2, 4096},
		{[]byte{0x01, 0x02, 0x03}, 3, 0x010203},
		{[]byte{0xFF}, 0, 0},
		{[]byte{0x01}, 2, 1},
	}
	for _, tt := range tests {
		if got := readBigEndianInt(tt.data, tt.width); got != tt.want {
			t.Errorf("readBigEndianInt(%v, %d) = %d, want %d", tt.data, tt.width, got, tt.want)
		}
	}
}

func TestParseXRefStreamEntry(t *testing.T) {
	w := []int{1, 2, 1}
	tests := []struct {
		name string
		data []byte
		want XRefEntry
	}{
		{"free", []byte{0, 0, 5, 3}, XRefEntry{Type: XRefEntryFree, Offset: 5, Generation: 3}},
		{"uncompressed", []byte{1, 0x10, 0x00, 0}, XRefEntry{Type: XRefEntryUncompressed, Offset: 4096, InUse: true}},
		{"compressed", []byte{2, 0, 10, 2}, XRefEntry{Type: XRefEntryCompressed, Offset: 10, Generation: 2, InUse: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, n, err := parseXRefStreamEntry(tt.data, w)
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if n != 4 {
				t.Errorf("consumed %d bytes, want 4", n)
			}
			if *got != tt.want {
				t.Errorf("entry = %+v, want %+v", *got, tt.want)
			}
		})
	}

	// a zero-width type field defaults to uncompressed
	got, _, err := parseXRefStreamEntry([]byte{0, 9, 0}, []int{0, 2, 1})
	if err != nil || got.Type != XRefEntryUncompressed || got.Offset != 9 {
		t.Errorf("default type entry = %+v, %v", got, err)
	}

	if _, _, err := parseXRefStreamEntry([]byte{1, 0}, w); err == nil {
		t.Error("expected error for truncated entry")
	}
}

func xrefStreamObject(dict string, data []byte) string {
	return fmt.Sprintf("7 0 obj\n<< %s /Length %d >>\nstream\n%s\nendstream\nendobj\n", dict, len(data), data)
}

func TestParseXRefStream(t *testing.T) {
	data := []byte{
		0, 0, 0, 0,
		1, 0, 15, 0,
		2, 0, 9, 0,
		2, 0, 9, 1,
	}
	obj := xrefStreamObject("/Type /XRef /Size 4 /W [1 2 1] /Root 1 0 R", data)

	table, err := NewXRefParser([]byte(obj)).ParseXRef(0)
	if err != nil {
		t.Fatalf("ParseXRef() error = %v", err)
	}
	if !table.IsStream {
		t.Error("expected IsStream")
	}
	if table.Size() != 4 {
		t.Fatalf("Size() = %d, want 4", table.Size())
	}
	if e, _ := table.Get(1); e.Offset != 15 || e.Type != XRefEntryUncompressed {
		t.Errorf("entry 1 = %+v", e)
	}
	if e, _ := table.Get(3); e.Type != XRefEntryCompressed || e.Offset != 9 || e.Generation != 1 {
		t.Errorf("entry 3 = %+v", e)
	}
	if _, ok := table.Trailer.Get("Root").(IndirectRef); !ok {
		t.Error("trailer should be the stream dictionary")
	}
}

func TestParseXRefStreamIndex(t *testing.T) {
	data := []byte{
		1, 0, 20, 0,
		1, 0, 40, 0,
		1, 0, 60, 0,
	}
	obj := xrefStreamObject("/Type /XRef /Size 12 /W [1 2 1] /Index [3 1 10 2]", data)

	table, err := NewXRefParser([]byte(obj)).ParseXRef(0)
	if err != nil {
		t.Fatalf("ParseXRef() error = %v", err)
	}
	for num, off := range map[int]int64{3: 20, 10: 40, 11: 60} {
		if e, ok := table.Get(num); !ok || e.Offset != off {
			t.Errorf("entry %d = %+v, want offset %d", num, e, off)
		}
	}
	if _, ok := table.Get(0); ok {
		t.Error("object 0 is outside /Index")
	}
}

func TestParseXRefStreamErrors(t *testing.T) {
	tests := []struct {
		name string
		dict string
	}{
		{"missing type", "/Size 1 /W [1 2 1]"},
		{"wrong type", "/Type /Page /Size 1 /W [1 2 1]"},
		{"missing size", "/Type /XRef /W [1 2 1]"},
		{"missing w", "/Type /XRef /Size 1"},
		{"short w", "/Type /XRef /Size 1 /W [1 2]"},
		{"odd index", "/Type /XRef /Size 1 /W [1 2 1] /Index [0]"},
		{"truncated data", "/Type /XRef /Size 5 /W [1 2 1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := xrefStreamObject(tt.dict, []byte{1, 0, 15, 0})
			if _, err := NewXRefParser([]byte(obj)).ParseXRef(0); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseAllXRefsIncremental(t *testing.T) {
	base, offsets := buildClassicPDF("<< /Type /Catalog >>", "(old)")
	prev, err := NewXRefParser(base).FindXRef()
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	buf.Write(base)
	updated := int64(buf.Len())
	buf.WriteString("2 0 obj\n(new)\nendobj\n")
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n2 1\n%010d 00000 n \ntrailer\n<< /Size 3 /Root 1 0 R /Prev %d >>\nstartxref\n%d\n%%%%EOF\n", updated, prev, xref)

	tables, err := NewXRefParser(buf.Bytes()).ParseAllXRefs()
	if err != nil {
		t.Fatalf("ParseAllXRefs() error = %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("got %d tables, want 2", len(tables))
	}

	merged := MergeXRefTables(tables...)
	if e, _ := merged.Get(2); e.Offset != updated {
		t.Errorf("object 2 offset = %d, want the update at %d", e.Offset, updated)
	}
	if e, _ := merged.Get(1); e.Offset != offsets[0] {
		t.Errorf("object 1 offset = %d, want %d", e.Offset, offsets[0])
	}
	if _, ok := merged.Trailer.GetInt("Prev"); !ok {
		t.Error("merged trailer should be the newest")
	}
}

func TestParseAllXRefsLoop(t *testing.T) {
	doc := "xref\n0 1\n0000000000 65535 f \ntrailer\n<< /Size 1 /Prev 0 >>\nstartxref\n0\n%%EOF\n"
	_, err := NewXRefParser([]byte(doc)).ParseAllXRefs()
	if err == nil || !strings.Contains(err.Error(), "loop") {
		t.Errorf("expected loop error, got %v", err)
	}
}

func TestHybridXRef(t *testing.T) {
	stm := xrefStreamObject("/Type /XRef /Size 4 /W [1 2 1] /Index [3 1]", []byte{2, 0, 9, 0})
	var buf bytes.Buffer
	buf.WriteString(stm)
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 4\n0000000000 65535 f \n0000000100 00000 n \n0000000200 00000 n \n0000000000 00000 f \n")
	fmt.Fprintf(&buf, "trailer\n<< /Size 4 /XRefStm 0 >>\nstartxref\n%d\n%%%%EOF\n", xref)

	table, err := NewXRefParser(buf.Bytes()).ParseXRef(int64(xref))
	if err != nil {
		t.Fatalf("ParseXRef() error = %v", err)
	}
	if table.IsStream {
		t.Error("hybrid section is a classic table")
	}
	e, _ := table.Get(3)
	if e.Type != XRefEntryCompressed || e.Offset != 9 {
		t.Errorf("object 3 = %+v, want compressed in stream 9", e)
	}
	if e, _ := table.Get(1); e.Offset != 100 {
		t.Errorf("object 1 = %+v", e)
	}
}
