package storage

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
)

// A4 page geometry in millimetres; font size in points.
const (
	pdfPageWidth   = 210.0
	pdfPageHeight  = 297.0
	pdfMargin      = 20.0
	pdfFontSize    = 11.0
	pdfLineSpacing = 1.3
	pdfTabWidth    = 4
)

// PDFSink typesets the rendered text onto A4 pages and writes a PDF file.
// Lines are not wrapped; tabs become spaces.
type PDFSink struct {
	Filename string

	family *canvas.FontFamily
}

// NewPDFSink creates a new PDF sink
func NewPDFSink(filename string) *PDFSink {
	if filename == "" {
		filename = "document.pdf"
	}
	return &PDFSink{Filename: filename}
}

func (s *PDFSink) Save(data string) error {
	out, err := s.render(data)
	if err != nil {
		return fmt.Errorf("failed to typeset pdf: %w", err)
	}
	if err := os.WriteFile(s.Filename, out, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.Filename, err)
	}
	return nil
}

func (s *PDFSink) String() string {
	return s.Filename
}

func (s *PDFSink) render(data string) ([]byte, error) {
	family, err := s.fontFamily()
	if err != nil {
		return nil, err
	}
	face := family.Face(pdfFontSize, canvas.Black, canvas.FontRegular, canvas.FontNormal)
	metrics := face.Metrics()

	lineHeight := metrics.LineHeight * pdfLineSpacing
	if lineHeight <= 0 {
		lineHeight = pdfFontSize * pdfLineSpacing
	}
	pages := paginate(pdfLines(data), linesPerPage(lineHeight))

	var buf bytes.Buffer
	writer := pdf.New(&buf, pdfPageWidth, pdfPageHeight, nil)
	writer.SetInfo(s.Filename, "", "", "", "doc-editor")
	for i, lines := range pages {
		if i > 0 {
			writer.NewPage(pdfPageWidth, pdfPageHeight)
		}
		c := canvas.New(pdfPageWidth, pdfPageHeight)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV)

		y := pdfMargin
		for _, line := range lines {
			if line != "" {
				ctx.DrawText(pdfMargin, y+metrics.Ascent, canvas.NewTextLine(face, line, canvas.Left))
			}
			y += lineHeight
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *PDFSink) fontFamily() (*canvas.FontFamily, error) {
	if s.family != nil {
		return s.family, nil
	}
	family := canvas.NewFontFamily("doc-editor")
	if err := family.LoadFont(lmroman10regular.TTF, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}
	s.family = family
	return family, nil
}

// pdfLines splits rendered text into printable lines.
func pdfLines(data string) []string {
	data = strings.ReplaceAll(data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\t", strings.Repeat(" ", pdfTabWidth))
	return strings.Split(data, "\n")
}

func linesPerPage(lineHeight float64) int {
	n := int(math.Floor((pdfPageHeight - 2*pdfMargin) / lineHeight))
	if n < 1 {
		return 1
	}
	return n
}

// paginate groups lines into pages. It always returns at least one page.
func paginate(lines []string, perPage int) [][]string {
	var pages [][]string
	for len(lines) > perPage {
		pages = append(pages, lines[:perPage])
		lines = lines[perPage:]
	}
	return append(pages, lines)
}

var _ Sink = (*PDFSink)(nil)
