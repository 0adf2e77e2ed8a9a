// Package pdftest builds small, well-formed PDF files for tests.
package pdftest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Text is one text run placed with Td
type Text struct {
	X, Y float64
	Size float64
	Bold bool
	S    string
}

// Page describes one page. A zero MediaBox means US Letter.
type Page struct {
	MediaBox [4]float64
	CropBox  *[4]float64
	Rotate   int
	Texts    []Text
}

// Letter returns a portrait US Letter page carrying texts
func Letter(texts ...Text) Page {
	return Page{MediaBox: [4]float64{0, 0, 612, 792}, Texts: texts}
}

// Build renders pages into PDF bytes with a correct xref table
func Build(pages ...Page) []byte {
	if len(pages) == 0 {
		pages = []Page{Letter()}
	}

	var objects []string
	// 1 catalog, 2 pages, 3 regular font, 4 bold font, then page/content pairs.
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 5+2*i)
	}
	objects = append(objects,
		"<<\n/Type /Catalog\n/Pages 2 0 R\n>>",
		fmt.Sprintf("<<\n/Type /Pages\n/Kids [%s]\n/Count %d\n>>", strings.Join(kids, " "), len(pages)),
		"<<\n/Type /Font\n/Subtype /Type1\n/BaseFont /Helvetica\n/Encoding /WinAnsiEncoding\n>>",
		"<<\n/Type /Font\n/Subtype /Type1\n/BaseFont /Helvetica-Bold\n/Encoding /WinAnsiEncoding\n>>",
	)

	for i, p := range pages {
		box := p.MediaBox
		if box == [4]float64{} {
			box = [4]float64{0, 0, 612, 792}
		}

		var dict strings.Builder
		dict.WriteString("<<\n/Type /Page\n/Parent 2 0 R\n")
		fmt.Fprintf(&dict, "/MediaBox %s\n", boxString(box))
		if p.CropBox != nil {
			fmt.Fprintf(&dict, "/CropBox %s\n", boxString(*p.CropBox))
		}
		if p.Rotate != 0 {
			fmt.Fprintf(&dict, "/Rotate %d\n", p.Rotate)
		}
		fmt.Fprintf(&dict, "/Contents %d 0 R\n", 6+2*i)
		dict.WriteString("/Resources <<\n/Font <<\n/F1 3 0 R\n/F2 4 0 R\n>>\n>>\n>>")

		var content strings.Builder
		for _, t := range p.Texts {
			font := "F1"
			if t.Bold {
				font = "F2"
			}
			size := t.Size
			if size == 0 {
				size = 12
			}
			fmt.Fprintf(&content, "BT\n/%s %g Tf\n%g %g Td\n(%s) Tj\nET\n", font, size, t.X, t.Y, escape(t.S))
		}
		stream := content.String()

		objects = append(objects,
			dict.String(),
			fmt.Sprintf("<<\n/Length %d\n>>\nstream\n%sendstream", len(stream), stream),
		)
	}

	var out strings.Builder
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xrefStart := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<<\n/Size %d\n/Root 1 0 R\n>>\nstartxref\n%d\n%%%%EOF", len(objects)+1, xrefStart)

	return []byte(out.String())
}

// WriteFile writes a PDF built from pages into dir and returns its path
func WriteFile(t testing.TB, dir, name string, pages ...Page) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(pages...), 0o644); err != nil {
		t.Fatalf("Failed to write test PDF: %v", err)
	}
	return path
}

func boxString(b [4]float64) string {
	return fmt.Sprintf("[%g %g %g %g]", b[0], b[1], b[2], b[3])
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
