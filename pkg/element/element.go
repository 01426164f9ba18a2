package element

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names an element variant. It is the key used by the API and by element scripts.
type Kind string

const (
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindNewLine Kind = "newline"
	KindTab     Kind = "tab"
)

// ErrUnknownKind is returned by New for a kind that has no element variant.
var ErrUnknownKind = errors.New("unknown element kind")

// Element is a unit of document content. Render must be pure.
type Element interface {
	Kind() Kind
	Render() string
}

// Text renders its string verbatim.
type Text struct {
	Text string
}

// NewText creates a new text element
func NewText(s string) Text {
	return Text{Text: s}
}

func (t Text) Kind() Kind     { return KindText }
func (t Text) Render() string { return t.Text }

// Image is a reference to an image file, rendered as a placeholder.
type Image struct {
	Path string
}

// NewImage creates a new image element
func NewImage(path string) Image {
	return Image{Path: path}
}

func (i Image) Kind() Kind     { return KindImage }
func (i Image) Render() string { return "[Image: " + i.Path + "]" }

// NewLine renders a single line break.
type NewLine struct{}

func (NewLine) Kind() Kind     { return KindNewLine }
func (NewLine) Render() string { return "\n" }

// Tab renders a single horizontal tab.
type Tab struct{}

func (Tab) Kind() Kind     { return KindTab }
func (Tab) Render() string { return "\t" }

// New builds an element from its kind name. value is the text for KindText and
// the path for KindImage; it is ignored for the other kinds.
func New(kind string, value string) (Element, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case KindText:
		return NewText(value), nil
	case KindImage:
		return NewImage(value), nil
	case KindNewLine:
		return NewLine{}, nil
	case KindTab:
		return Tab{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Compile-time checks that every variant implements Element
var (
	_ Element = Text{}
	_ Element = Image{}
	_ Element = NewLine{}
	_ Element = Tab{}
)
