// Package extract reads positioned text fragments and page geometry out of
// PDF files and hands them to the layout engine.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/a3tai/mcp-pdf-layout/internal/layout"
)

// Library identifies the PDF library backing an operation
type Library string

const (
	LibraryLedongthuc Library = "ledongthuc"
	LibraryPDFCPU     Library = "pdfcpu"
	LibraryHOCR       Library = "hocr"
)

// Page is everything the layout engine needs from one page
type Page struct {
	Index     int                   `json:"index"` // 0-based
	Geometry  layout.PageGeometry   `json:"geometry"`
	Fragments []layout.TextFragment `json:"fragments"`
}

// Document is the extraction result for a whole file
type Document struct {
	Path   string  `json:"path"`
	Source Library `json:"source"`
	Pages  []Page  `json:"pages"`
}

// FragmentsByPage returns the fragments of every page, in page order
func (d *Document) FragmentsByPage() [][]layout.TextFragment {
	pages := make([][]layout.TextFragment, len(d.Pages))
	for i, p := range d.Pages {
		pages[i] = p.Fragments
	}
	return pages
}

// FragmentCount returns the number of fragments across all pages
func (d *Document) FragmentCount() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Fragments)
	}
	return n
}

// HasTextLayer reports whether any page produced text
func (d *Document) HasTextLayer() bool {
	return d.FragmentCount() > 0
}

// Text returns the reading-order text of the document, one clustered line
// per output line and pages separated by a blank line
func (d *Document) Text(opts layout.ClusterOptions) string {
	return layout.PagesText(d.FragmentsByPage(), opts)
}

// Extractor produces fragments for a PDF on disk
type Extractor interface {
	Extract(ctx context.Context, path string) (*Document, error)
}

// GeometryReader reports the native geometry of every page
type GeometryReader interface {
	PageGeometries(ctx context.Context, path string) ([]layout.PageGeometry, error)
}

// CollaboratorError wraps a failure coming from an underlying library
type CollaboratorError struct {
	Library Library `json:"library"`
	Op      string  `json:"operation"`
	Err     error   `json:"error"`
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("PDF %s library error in %s: %v", e.Library, e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

var (
	// ErrNoTextLayer means the PDF has no extractable text, typically a scan.
	// Callers fall back to OCR output.
	ErrNoTextLayer = errors.New("document has no extractable text layer")

	// ErrPageOutOfRange is returned for page numbers outside the document
	ErrPageOutOfRange = errors.New("page number out of range")
)
