package pages

import (
	"bytes"
	"fmt"

	"github.com/tsawler/folio/core"
)

// ObjectResolver dereferences indirect objects.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
}

// inheritable lists the page attributes a page may take from its ancestors.
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// PageTree is the flattened page tree of a document.
type PageTree struct {
	root     core.Dict
	resolver ObjectResolver
	pages    []*Page
}

// NewPageTree creates a page tree from the root /Pages dictionary.
func NewPageTree(root core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{root: root, resolver: resolver}
}

// Count returns the number of pages found by walking the tree. The /Count
// entry is not trusted.
func (t *PageTree) Count() (int, error) {
	if err := t.load(); err != nil {
		return 0, err
	}
	return len(t.pages), nil
}

// GetPage returns the page at the given index (0-based)
func (t *PageTree) GetPage(index int) (*Page, error) {
	if err := t.load(); err != nil {
		return nil, err
	}
	if index < 0 || index >= len(t.pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(t.pages))
	}
	return t.pages[index], nil
}

// Pages returns all pages in document order.
func (t *PageTree) Pages() ([]*Page, error) {
	if err := t.load(); err != nil {
		return nil, err
	}
	return t.pages, nil
}

func (t *PageTree) load() error {
	if t.pages != nil {
		return nil
	}
	pages := make([]*Page, 0)
	if err := t.walk(t.root, core.Dict{}, &pages, 0); err != nil {
		return fmt.Errorf("failed to traverse page tree: %w", err)
	}
	t.pages = pages
	return nil
}

func (t *PageTree) walk(node, inherited core.Dict, out *[]*Page, depth int) error {
	if depth > 64 {
		return fmt.Errorf("page tree deeper than 64 levels")
	}

	attrs := make(core.Dict, len(inherited))
	for k, v := range inherited {
		attrs[k] = v
	}
	for _, key := range inheritable {
		if v := node.Get(key); v != nil {
			attrs[key] = v
		}
	}

	typ, _ := node.GetName("Type")
	kids := node.Get("Kids")
	if typ == "Page" || (typ == "" && kids == nil) {
		*out = append(*out, &Page{dict: node, inherited: attrs, resolver: t.resolver})
		return nil
	}

	resolved, err := t.resolver.Resolve(kids)
	if err != nil {
		return fmt.Errorf("failed to resolve /Kids: %w", err)
	}
	arr, ok := resolved.(core.Array)
	if !ok {
		return fmt.Errorf("invalid /Kids type: %T", resolved)
	}
	for i, kid := range arr {
		obj, err := t.resolver.Resolve(kid)
		if err != nil {
			return fmt.Errorf("failed to resolve kid %d: %w", i, err)
		}
		dict, ok := obj.(core.Dict)
		if !ok {
			return fmt.Errorf("invalid kid type: %T", obj)
		}
		if err := t.walk(dict, attrs, out, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Page is a leaf of the page tree with its inherited attributes resolved.
type Page struct {
	dict      core.Dict
	inherited core.Dict
	resolver  ObjectResolver
}

// NewPage creates a page from its dictionary and the attributes it
// inherits.
func NewPage(dict, inherited core.Dict, resolver ObjectResolver) *Page {
	if inherited == nil {
		inherited = core.Dict{}
	}
	return &Page{dict: dict, inherited: inherited, resolver: resolver}
}

// Dict returns the page dictionary.
func (p *Page) Dict() core.Dict {
	return p.dict
}

func (p *Page) attr(name string) core.Object {
	if v := p.dict.Get(name); v != nil {
		return v
	}
	return p.inherited.Get(name)
}

// MediaBox returns the page media box [x0 y0 x1 y1]. A missing box
// defaults to US Letter.
func (p *Page) MediaBox() ([]float64, error) {
	box, err := p.box("MediaBox")
	if err != nil {
		return nil, err
	}
	if box == nil {
		return []float64{0, 0, 612, 792}, nil
	}
	return box, nil
}

// CropBox returns the visible region, which defaults to the media box.
func (p *Page) CropBox() ([]float64, error) {
	box, err := p.box("CropBox")
	if err != nil || box == nil {
		return p.MediaBox()
	}
	return box, nil
}

func (p *Page) box(name string) ([]float64, error) {
	obj := p.attr(name)
	if obj == nil {
		return nil, nil
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	arr, ok := resolved.(core.Array)
	if !ok || len(arr) != 4 {
		return nil, fmt.Errorf("invalid %s: %v", name, resolved)
	}

	box := make([]float64, 4)
	for i, elem := range arr {
		elem, _ = p.resolver.Resolve(elem)
		switch v := elem.(type) {
		case core.Int:
			box[i] = float64(v)
		case core.Real:
			box[i] = float64(v)
		default:
			return nil, fmt.Errorf("invalid %s element type: %T", name, elem)
		}
	}
	// normalize so that x0 < x1 and y0 < y1
	if box[0] > box[2] {
		box[0], box[2] = box[2], box[0]
	}
	if box[1] > box[3] {
		box[1], box[3] = box[3], box[1]
	}
	return box, nil
}

// Resources returns the page resources dictionary, or an empty dictionary
// when the page has none.
func (p *Page) Resources() (core.Dict, error) {
	obj := p.attr("Resources")
	if obj == nil {
		return core.Dict{}, nil
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Resources: %w", err)
	}
	dict, ok := resolved.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid Resources type: %T", resolved)
	}
	return dict, nil
}

// Contents returns the page content streams.
func (p *Page) Contents() ([]*core.Stream, error) {
	obj := p.dict.Get("Contents")
	if obj == nil {
		return nil, nil
	}
	resolved, err := p.resolver.Resolve(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Contents: %w", err)
	}

	switch v := resolved.(type) {
	case *core.Stream:
		return []*core.Stream{v}, nil
	case core.Array:
		streams := make([]*core.Stream, 0, len(v))
		for i, elem := range v {
			s, err := p.resolver.Resolve(elem)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve contents[%d]: %w", i, err)
			}
			if stream, ok := s.(*core.Stream); ok {
				streams = append(streams, stream)
			}
		}
		return streams, nil
	default:
		return nil, fmt.Errorf("invalid Contents type: %T", resolved)
	}
}

// ContentData returns the decoded content streams joined by newlines, the
// way a viewer concatenates them.
func (p *Page) ContentData() ([]byte, error) {
	streams, err := p.Contents()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for i, s := range streams {
		data, err := s.Decode()
		if err != nil {
			return nil, fmt.Errorf("content stream %d: %w", i, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Rotate returns the page rotation normalized to 0, 90, 180 or 270.
func (p *Page) Rotate() int {
	obj, _ := p.resolver.Resolve(p.attr("Rotate"))
	rotate, ok := obj.(core.Int)
	if !ok {
		return 0
	}
	r := int(rotate) % 360
	if r < 0 {
		r += 360
	}
	return r - r%90
}

// Width returns the width of the crop box.
func (p *Page) Width() (float64, error) {
	box, err := p.CropBox()
	if err != nil {
		return 0, err
	}
	return box[2] - box[0], nil
}

// Height returns the height of the crop box.
func (p *Page) Height() (float64, error) {
	box, err := p.CropBox()
	if err != nil {
		return 0, err
	}
	return box[3] - box[1], nil
}
