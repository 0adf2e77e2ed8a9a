package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/a3tai/mcp-pdf-layout/internal/layout"
	"github.com/ledongthuc/pdf"
)

// LedongthucExtractor reads text runs with github.com/ledongthuc/pdf and
// page geometry through a GeometryReader
type LedongthucExtractor struct {
	geometry GeometryReader
}

// NewLedongthucExtractor creates an extractor. geometry may be nil, in which
// case pages report zero geometry.
func NewLedongthucExtractor(geometry GeometryReader) *LedongthucExtractor {
	return &LedongthucExtractor{geometry: geometry}
}

// Extract returns one Page per PDF page with all positioned text runs
func (e *LedongthucExtractor) Extract(ctx context.Context, path string) (*Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, &CollaboratorError{
			Library: LibraryLedongthuc,
			Op:      "open_file",
			Err:     fmt.Errorf("failed to open PDF: %w", err),
		}
	}
	defer f.Close()

	var geometries []layout.PageGeometry
	if e.geometry != nil {
		geometries, err = e.geometry.PageGeometries(ctx, path)
		if err != nil {
			return nil, err
		}
	}

	numPages := reader.NumPage()
	doc := &Document{
		Path:   path,
		Source: LibraryLedongthuc,
		Pages:  make([]Page, 0, numPages),
	}

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := Page{Index: pageNum - 1}
		if pageNum-1 < len(geometries) {
			page.Geometry = geometries[pageNum-1]
		}

		p := reader.Page(pageNum)
		if !p.V.IsNull() {
			frags, err := pageFragments(p, pageNum-1)
			if err != nil {
				return nil, &CollaboratorError{
					Library: LibraryLedongthuc,
					Op:      "extract_text",
					Err:     fmt.Errorf("page %d: %w", pageNum, err),
				}
			}
			page.Fragments = frags
		}
		doc.Pages = append(doc.Pages, page)
	}

	return doc, nil
}

// pageFragments converts the library's text runs. The content stream
// interpreter panics on some malformed streams, so it is contained here.
func pageFragments(p pdf.Page, pageIndex int) (frags []layout.TextFragment, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("content stream could not be interpreted: %v", r)
		}
	}()

	content := p.Content()
	frags = make([]layout.TextFragment, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		frags = append(frags, layout.TextFragment{
			X:          t.X,
			Y:          t.Y,
			Text:       t.S,
			FontSizePt: t.FontSize,
			Bold:       IsBoldFont(t.Font),
			PageIndex:  pageIndex,
		})
	}
	return frags, nil
}

var boldMarkers = []string{"bold", "black", "heavy", "semibold", "demibold"}

// IsBoldFont guesses weight from a PostScript font name such as
// "ABCDEF+Arial,Bold" or "Helvetica-Black"
func IsBoldFont(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range boldMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
