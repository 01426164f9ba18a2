package document

import (
	"strings"

	"doc-editor/pkg/element"
)

// Document is an ordered sequence of elements with a memoized full render.
// The cache is cleared by Add, which is the only way to change the sequence.
type Document struct {
	elements []element.Element
	cached   *string
}

// New creates an empty document
func New() *Document {
	return &Document{}
}

// Add appends e to the end of the document and drops the cached render.
// A nil element is ignored.
func (d *Document) Add(e element.Element) {
	if e == nil {
		return
	}
	d.elements = append(d.elements, e)
	d.cached = nil
}

// Render returns the concatenated render of all elements, computing it only
// when no valid cache exists.
func (d *Document) Render() string {
	if d.cached != nil {
		return *d.cached
	}
	out := d.RenderFresh()
	d.cached = &out
	return out
}

// RenderFresh renders every element without reading or updating the cache.
func (d *Document) RenderFresh() string {
	var b strings.Builder
	for _, e := range d.elements {
		b.WriteString(e.Render())
	}
	return b.String()
}

// Len returns the number of elements.
func (d *Document) Len() int {
	return len(d.elements)
}

// Elements returns a copy of the element sequence.
func (d *Document) Elements() []element.Element {
	out := make([]element.Element, len(d.elements))
	copy(out, d.elements)
	return out
}
