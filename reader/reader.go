package reader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/tsawler/folio/core"
	"github.com/tsawler/folio/pages"
)

// ErrEncrypted is returned for documents protected by a security handler.
var ErrEncrypted = errors.New("reader: encrypted documents are not supported")

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Reader gives object-level access to a PDF held in memory. A Reader
// caches parsed objects and is not safe for concurrent use.
type Reader struct {
	data    []byte
	version PDFVersion
	xref    *core.XRefTable

	cache      map[int]core.Object
	objStreams map[int]*core.ObjectStream
	loading    map[int]bool
	rebuilt    bool

	pageTree *pages.PageTree
}

var _ pages.ObjectResolver = (*Reader)(nil)
var _ core.ReferenceResolver = (*Reader)(nil)

// Open reads the file at path into memory and parses its structure.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return NewReader(data)
}

// NewReader parses the header and cross-reference sections of data.
// Damaged cross-reference data is rebuilt by scanning for objects.
func NewReader(data []byte) (*Reader, error) {
	r := &Reader{
		data:       data,
		cache:      make(map[int]core.Object),
		objStreams: make(map[int]*core.ObjectStream),
		loading:    make(map[int]bool),
	}

	version, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	r.version = version

	tables, err := core.NewXRefParser(data).ParseAllXRefs()
	if err != nil {
		if err := r.rebuildXRef(); err != nil {
			return nil, fmt.Errorf("failed to load xref: %w", err)
		}
	} else {
		r.xref = core.MergeXRefTables(tables...)
	}

	if r.xref.Trailer.Has("Encrypt") {
		return nil, ErrEncrypted
	}
	return r, nil
}

var headerPattern = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)

func parseHeader(data []byte) (PDFVersion, error) {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	m := headerPattern.FindSubmatch(head)
	if m == nil {
		return PDFVersion{}, fmt.Errorf("missing %%PDF header")
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	return PDFVersion{Major: major, Minor: minor}, nil
}

var objectPattern = regexp.MustCompile(`(?m)(?:^|[\r\n\s])(\d+)\s+(\d+)\s+obj\b`)

// rebuildXRef scans the file for "n g obj" headers. Later definitions of
// an object win, as they would with incremental updates.
func (r *Reader) rebuildXRef() error {
	table := core.NewXRefTable()
	for _, m := range objectPattern.FindAllSubmatchIndex(r.data, -1) {
		num, err1 := strconv.Atoi(string(r.data[m[2]:m[3]]))
		gen, err2 := strconv.Atoi(string(r.data[m[4]:m[5]]))
		if err1 != nil || err2 != nil {
			continue
		}
		table.Set(num, &core.XRefEntry{
			Type:       core.XRefEntryUncompressed,
			Offset:     int64(m[2]),
			Generation: gen,
			InUse:      true,
		})
	}
	if table.Size() == 0 {
		return fmt.Errorf("no objects found")
	}

	if idx := bytes.LastIndex(r.data, []byte("trailer")); idx >= 0 {
		obj, err := core.NewParser(r.data[idx+len("trailer"):]).ParseObject()
		if dict, ok := obj.(core.Dict); err == nil && ok {
			table.Trailer = dict
		}
	}

	r.xref = table
	r.cache = make(map[int]core.Object)
	r.rebuilt = true

	if !table.Trailer.Has("Root") {
		for num := range table.Entries {
			obj, err := r.GetObject(num)
			if err != nil {
				continue
			}
			if dict, ok := obj.(core.Dict); ok {
				if typ, _ := dict.GetName("Type"); typ == "Catalog" {
					table.Trailer.Set("Root", core.IndirectRef{Number: num})
					break
				}
			}
		}
	}
	return nil
}

// Version returns the version from the file header.
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Trailer returns the trailer of the newest cross-reference section.
func (r *Reader) Trailer() core.Dict {
	return r.xref.Trailer
}

// XRefTable returns the merged cross-reference table.
func (r *Reader) XRefTable() *core.XRefTable {
	return r.xref
}

// NumObjects returns the number of in-use objects.
func (r *Reader) NumObjects() int {
	n := 0
	for _, e := range r.xref.Entries {
		if e.InUse {
			n++
		}
	}
	return n
}

// GetObject loads object num. Free and missing objects are null.
func (r *Reader) GetObject(num int) (core.Object, error) {
	if obj, ok := r.cache[num]; ok {
		return obj, nil
	}
	entry, ok := r.xref.Get(num)
	if !ok || !entry.InUse {
		return core.Null{}, nil
	}
	if r.loading[num] {
		return nil, fmt.Errorf("object %d refers to itself while loading", num)
	}
	r.loading[num] = true
	defer delete(r.loading, num)

	var obj core.Object
	var err error
	switch entry.Type {
	case core.XRefEntryCompressed:
		obj, err = r.compressedObject(num, entry)
	default:
		obj, err = r.objectAt(num, entry.Offset)
	}
	if err != nil && !r.rebuilt && entry.Type != core.XRefEntryCompressed {
		// stale offsets are common in edited files
		if rerr := r.rebuildXRef(); rerr == nil {
			delete(r.loading, num)
			return r.GetObject(num)
		}
	}
	if err != nil {
		return nil, err
	}

	r.cache[num] = obj
	return obj, nil
}

func (r *Reader) objectAt(num int, offset int64) (core.Object, error) {
	if offset < 0 || offset >= int64(len(r.data)) {
		return nil, fmt.Errorf("object %d offset %d outside file", num, offset)
	}
	p := core.NewParser(r.data[offset:])
	p.SetReferenceResolver(r)
	ind, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", num, err)
	}
	if ind.Ref.Number != num {
		return nil, fmt.Errorf("offset %d holds object %d, want %d", offset, ind.Ref.Number, num)
	}
	return ind.Object, nil
}

func (r *Reader) compressedObject(num int, entry *core.XRefEntry) (core.Object, error) {
	stmNum := int(entry.Offset)
	stm, ok := r.objStreams[stmNum]
	if !ok {
		obj, err := r.GetObject(stmNum)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", stmNum, err)
		}
		stream, ok := obj.(*core.Stream)
		if !ok {
			return nil, fmt.Errorf("object stream %d is %T", stmNum, obj)
		}
		stm, err = core.NewObjectStream(stream)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", stmNum, err)
		}
		r.objStreams[stmNum] = stm
	}

	obj, got, err := stm.GetObjectByIndex(entry.Generation)
	if err == nil && got == num {
		return obj, nil
	}
	obj, _, err = stm.GetObjectByNumber(num)
	if err != nil {
		return nil, fmt.Errorf("object %d in stream %d: %w", num, stmNum, err)
	}
	return obj, nil
}

// ResolveReference loads the object ref points to.
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.GetObject(ref.Number)
}

// Resolve follows indirect references until it reaches a direct object.
// A nil object resolves to nil.
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	for i := 0; i < 32; i++ {
		ref, ok := obj.(core.IndirectRef)
		if !ok {
			return obj, nil
		}
		next, err := r.GetObject(ref.Number)
		if err != nil {
			return nil, err
		}
		obj = next
	}
	return nil, fmt.Errorf("reference chain too long")
}

// Catalog returns the document catalog.
func (r *Reader) Catalog() (core.Dict, error) {
	obj, err := r.Resolve(r.xref.Trailer.Get("Root"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Root: %w", err)
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("catalog is %T, not a dictionary", obj)
	}
	return dict, nil
}

// Info returns the document information dictionary, or nil.
func (r *Reader) Info() (core.Dict, error) {
	obj, err := r.Resolve(r.xref.Trailer.Get("Info"))
	if err != nil {
		return nil, err
	}
	dict, _ := obj.(core.Dict)
	return dict, nil
}

func (r *Reader) pages() (*pages.PageTree, error) {
	if r.pageTree != nil {
		return r.pageTree, nil
	}
	catalog, err := r.Catalog()
	if err != nil {
		return nil, err
	}
	obj, err := r.Resolve(catalog.Get("Pages"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Pages: %w", err)
	}
	root, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid /Pages type: %T", obj)
	}
	r.pageTree = pages.NewPageTree(root, r)
	return r.pageTree, nil
}

// PageCount returns the number of pages in the document.
func (r *Reader) PageCount() (int, error) {
	tree, err := r.pages()
	if err != nil {
		return 0, err
	}
	return tree.Count()
}

// GetPage returns the page at index (0-based).
func (r *Reader) GetPage(index int) (*pages.Page, error) {
	tree, err := r.pages()
	if err != nil {
		return nil, err
	}
	return tree.GetPage(index)
}
