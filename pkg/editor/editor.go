package editor

import (
	"doc-editor/pkg/document"
	"doc-editor/pkg/element"
	"doc-editor/pkg/storage"
)

// Editor binds one document to one sink.
type Editor struct {
	doc  *document.Document
	sink storage.Sink
}

// New creates a new editor. A nil document starts empty; a nil sink discards saves.
func New(doc *document.Document, sink storage.Sink) *Editor {
	if doc == nil {
		doc = document.New()
	}
	if sink == nil {
		sink = storage.NewNullSink()
	}
	return &Editor{doc: doc, sink: sink}
}

// Add appends an already constructed element
func (e *Editor) Add(el element.Element) {
	e.doc.Add(el)
}

func (e *Editor) AddText(s string) {
	e.doc.Add(element.NewText(s))
}

func (e *Editor) AddImage(path string) {
	e.doc.Add(element.NewImage(path))
}

func (e *Editor) AddNewline() {
	e.doc.Add(element.NewLine{})
}

func (e *Editor) AddTab() {
	e.doc.Add(element.Tab{})
}

// RenderDocument returns the document render, served from cache when valid.
func (e *Editor) RenderDocument() string {
	return e.doc.Render()
}

// RenderFresh renders the elements without reading or filling the document cache.
func (e *Editor) RenderFresh() string {
	return e.doc.RenderFresh()
}

// SaveDocument renders the elements afresh, bypassing the document cache, and
// hands the result to the sink. Sink errors are returned as is.
func (e *Editor) SaveDocument() error {
	return e.sink.Save(e.RenderFresh())
}

// Len returns the number of elements in the document.
func (e *Editor) Len() int {
	return e.doc.Len()
}

// Sink returns the editor's persistence target.
func (e *Editor) Sink() storage.Sink {
	return e.sink
}

// Elements returns a copy of the document's elements.
func (e *Editor) Elements() []element.Element {
	return e.doc.Elements()
}
