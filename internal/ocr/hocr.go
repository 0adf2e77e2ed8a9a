// Package ocr turns OCR engine output into text fragments so scanned PDFs
// can go through the same layout pipeline as born-digital ones.
//
// The OCR engine itself runs elsewhere; this package only reads its hOCR
// output (as written by e.g. `tesseract page.png out hocr`).
package ocr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"

	"github.com/a3tai/mcp-pdf-layout/internal/layout"
)

// ErrNoPages is returned when the input has no ocr_page element
var ErrNoPages = errors.New("no ocr_page elements found in hOCR data")

// BBox is a bounding box in image pixels, origin top-left
type BBox struct {
	X1, Y1, X2, Y2 float64
}

// Width returns the box width
func (b BBox) Width() float64 { return b.X2 - b.X1 }

// Height returns the box height
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Word is one recognized word
type Word struct {
	Text       string
	BBox       BBox
	Line       BBox // enclosing ocr_line, zero when absent
	Confidence float64
	Bold       bool
}

// Page is one recognized page image
type Page struct {
	BBox  BBox
	Words []Word
}

// Document is a parsed hOCR file
type Document struct {
	Pages []Page
}

// Parse reads hOCR markup. Non UTF-8 input declared as another charset is
// decoded as ISO-8859-1, which is what older Tesseract builds emit.
func Parse(data []byte) (*Document, error) {
	decoded := data
	if enc := declaredCharset(data); enc != "" && enc != "utf-8" && enc != "utf8" {
		var err error
		decoded, err = charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", enc, err)
		}
	}

	root, err := html.Parse(strings.NewReader(string(decoded)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse hOCR: %w", err)
	}

	doc := &Document{}
	var findPages func(*html.Node)
	findPages = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "ocr_page") {
			page := Page{}
			if b, ok := bboxFromTitle(attr(n, "title")); ok {
				page.BBox = b
			}
			collectWords(n, false, BBox{}, &page.Words)
			doc.Pages = append(doc.Pages, page)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			findPages(c)
		}
	}
	findPages(root)

	if len(doc.Pages) == 0 {
		return nil, ErrNoPages
	}
	return doc, nil
}

// Fragments projects every word onto its PDF page. geometries[i] describes
// the PDF page OCR'd into hOCR page i; when it is missing the image is taken
// to be the page at one point per pixel. A word's fragment sits at the
// lower-left of its box and its font size is the projected box height.
// Words get a trailing space since OCR reports whole words.
func (d *Document) Fragments(geometries []layout.PageGeometry) ([][]layout.TextFragment, error) {
	pages := make([][]layout.TextFragment, len(d.Pages))
	for i, p := range d.Pages {
		preview := layout.PreviewGeometry{WidthPx: p.BBox.Width(), HeightPx: p.BBox.Height()}
		geom := layout.PageGeometry{WidthPt: preview.WidthPx, HeightPt: preview.HeightPx}
		if i < len(geometries) {
			geom = geometries[i]
		}

		proj, err := layout.NewProjector(preview, geom)
		if err != nil {
			return nil, fmt.Errorf("hOCR page %d: %w", i+1, err)
		}
		_, scaleY := proj.Scale()

		frags := make([]layout.TextFragment, 0, len(p.Words))
		for _, w := range p.Words {
			// Words of one ocr_line share the line's bottom edge so they
			// cluster onto one baseline despite descenders.
			bottom := w.BBox.Y2
			if w.Line.Height() > 0 {
				bottom = w.Line.Y2
			}
			origin := proj.ToDocument(layout.Point{X: w.BBox.X1 - p.BBox.X1, Y: bottom - p.BBox.Y1}, 0)
			frags = append(frags, layout.TextFragment{
				X:          origin.X,
				Y:          origin.Y,
				Text:       w.Text + " ",
				FontSizePt: w.BBox.Height() * scaleY,
				Bold:       w.Bold,
				PageIndex:  i,
			})
		}
		pages[i] = frags
	}
	return pages, nil
}

func collectWords(n *html.Node, bold bool, line BBox, words *[]Word) {
	if n.Type == html.ElementNode {
		if n.Data == "strong" || n.Data == "b" {
			bold = true
		}
		if hasClass(n, "ocr_line") || hasClass(n, "ocr_textfloat") || hasClass(n, "ocr_header") {
			if b, ok := bboxFromTitle(attr(n, "title")); ok {
				line = b
			}
		}
		if hasClass(n, "ocrx_word") {
			title := attr(n, "title")
			b, ok := bboxFromTitle(title)
			text := strings.TrimSpace(textContent(n))
			if ok && text != "" {
				*words = append(*words, Word{
					Text:       text,
					BBox:       b,
					Line:       line,
					Confidence: confidenceFromTitle(title),
					Bold:       bold || containsElement(n, "strong", "b"),
				})
			}
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectWords(c, bold, line, words)
	}
}

// parseTitle breaks an hOCR title such as "bbox 10 20 30 40; x_wconf 95"
// into its properties
func parseTitle(title string) map[string][]string {
	props := make(map[string][]string)
	for _, part := range strings.Split(title, ";") {
		items := strings.Fields(part)
		if len(items) > 0 {
			props[items[0]] = items[1:]
		}
	}
	return props
}

func bboxFromTitle(title string) (BBox, bool) {
	v, ok := parseTitle(title)["bbox"]
	if !ok || len(v) < 4 {
		return BBox{}, false
	}
	var coords [4]float64
	for i := 0; i < 4; i++ {
		f, err := strconv.ParseFloat(v[i], 64)
		if err != nil {
			return BBox{}, false
		}
		coords[i] = f
	}
	return BBox{X1: coords[0], Y1: coords[1], X2: coords[2], Y2: coords[3]}, true
}

func confidenceFromTitle(title string) float64 {
	v, ok := parseTitle(title)["x_wconf"]
	if !ok || len(v) == 0 {
		return 0
	}
	f, err := strconv.ParseFloat(v[0], 64)
	if err != nil {
		return 0
	}
	return f
}

func declaredCharset(data []byte) string {
	content := strings.ToLower(string(data))
	idx := strings.Index(content, "charset=")
	if idx < 0 {
		return ""
	}
	rest := content[idx+len("charset="):]
	fields := strings.FieldsFunc(rest, func(r rune) bool {
		return r == '"' || r == ';' || r == '\'' || r == '>' || r == ' ' || r == '/'
	})
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func containsElement(n *html.Node, names ...string) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			for _, name := range names {
				if c.Data == name {
					return true
				}
			}
		}
		if containsElement(c, names...) {
			return true
		}
	}
	return false
}
