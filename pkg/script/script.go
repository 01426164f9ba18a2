// Package script reads and writes element scripts, a line-oriented notation
// for building documents:
//
//	# greeting
//	text "Hello, world!"
//	newline
//	tab
//	image "picture.jpg"
//
// String literals follow Go quoting rules.
package script

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"doc-editor/pkg/element"
)

var (
	scriptLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `#[^\n]*`},
		{Name: "String", Pattern: `"(?:\\.|[^"\\\n])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
		{Name: "Newline", Pattern: `\n`},
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
	})

	scriptParser = participle.MustBuild[Script](
		participle.Lexer(scriptLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.Map(unquote, "String"),
	)
)

// unquote decodes a string literal byte for byte, so escapes such as \xff
// yield the raw byte.
func unquote(tok lexer.Token) (lexer.Token, error) {
	s, err := strconv.Unquote(tok.Value)
	if err != nil {
		return tok, fmt.Errorf("%s: invalid string %s: %w", tok.Pos, tok.Value, err)
	}
	tok.Value = s
	return tok, nil
}

// Script is a parsed element script.
type Script struct {
	Statements []*Statement `parser:"( @@ | Newline )*"`
}

// Statement is one line of a script. Exactly one field is set.
type Statement struct {
	Pos lexer.Position `parser:""`

	Text    *string `parser:"  'text' @String"`
	Image   *string `parser:"| 'image' @String"`
	NewLine bool    `parser:"| @'newline'"`
	Tab     bool    `parser:"| @'tab'"`
}

// Adder receives elements in script order. Both *document.Document and
// *editor.Editor satisfy it.
type Adder interface {
	Add(e element.Element)
}

// Parse reads a whole script.
func Parse(r io.Reader) (*Script, error) {
	s, err := scriptParser.Parse("", r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := s.checkLines(); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseString parses a script held in memory.
func ParseString(src string) (*Script, error) {
	s, err := scriptParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if err := s.checkLines(); err != nil {
		return nil, err
	}
	return s, nil
}

// checkLines rejects more than one statement per line.
func (s *Script) checkLines() error {
	for i := 1; i < len(s.Statements); i++ {
		if s.Statements[i].Pos.Line == s.Statements[i-1].Pos.Line {
			return fmt.Errorf("failed to parse script: %s: expected newline", s.Statements[i].Pos)
		}
	}
	return nil
}

// Element converts the statement into its element.
func (st *Statement) Element() element.Element {
	switch {
	case st.Text != nil:
		return element.NewText(*st.Text)
	case st.Image != nil:
		return element.NewImage(*st.Image)
	case st.NewLine:
		return element.NewLine{}
	case st.Tab:
		return element.Tab{}
	default:
		return nil
	}
}

// Elements returns the script's elements in order.
func (s *Script) Elements() []element.Element {
	out := make([]element.Element, 0, len(s.Statements))
	for _, st := range s.Statements {
		if e := st.Element(); e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Apply appends every element of the script to dst.
func (s *Script) Apply(dst Adder) {
	for _, e := range s.Elements() {
		dst.Add(e)
	}
}

// Format writes elements back out as a script that Parse accepts.
func Format(elems []element.Element) string {
	var b strings.Builder
	for _, e := range elems {
		switch v := e.(type) {
		case element.Text:
			b.WriteString("text " + strconv.Quote(v.Text))
		case element.Image:
			b.WriteString("image " + strconv.Quote(v.Path))
		case element.NewLine:
			b.WriteString("newline")
		case element.Tab:
			b.WriteString("tab")
		default:
			// Unknown variants keep their output as text.
			b.WriteString("text " + strconv.Quote(e.Render()))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
