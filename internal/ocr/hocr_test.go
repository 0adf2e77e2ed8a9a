package ocr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-layout/internal/layout"
)

const sampleHOCR = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
 <head>
  <title></title>
  <meta http-equiv="Content-Type" content="text/html;charset=utf-8"/>
  <meta name='ocr-system' content='tesseract 5.3.0' />
 </head>
 <body>
  <div class='ocr_page' id='page_1' title='image "scan.png"; bbox 0 0 1200 1600; ppageno 0'>
   <div class='ocr_carea' id='block_1_1' title="bbox 100 100 900 260">
    <p class='ocr_par' id='par_1_1' lang='eng' title="bbox 100 100 900 260">
     <span class='ocr_line' id='line_1_1' title="bbox 100 100 900 150; baseline 0 -10; x_size 40">
      <span class='ocrx_word' id='word_1_1' title='bbox 100 100 300 140; x_wconf 96'><strong>Invoice</strong></span>
      <span class='ocrx_word' id='word_1_2' title='bbox 320 105 500 150; x_wconf 91'>2024</span>
     </span>
     <span class='ocr_line' id='line_1_2' title="bbox 100 200 900 260">
      <span class='ocrx_word' id='word_1_3' title='bbox 100 200 260 250; x_wconf 88'>Total</span>
      <span class='ocrx_word' id='word_1_4' title='bbox 280 200 300 250; x_wconf 10'>  </span>
     </span>
    </p>
   </div>
  </div>
 </body>
</html>`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sampleHOCR))
	require.NoError(t, err)
	require.Len(t, doc.Pages, 1)

	page := doc.Pages[0]
	assert.Equal(t, BBox{X1: 0, Y1: 0, X2: 1200, Y2: 1600}, page.BBox)

	// Blank words are skipped.
	require.Len(t, page.Words, 3)
	assert.Equal(t, "Invoice", page.Words[0].Text)
	assert.True(t, page.Words[0].Bold)
	assert.Equal(t, 96.0, page.Words[0].Confidence)
	assert.Equal(t, "2024", page.Words[1].Text)
	assert.False(t, page.Words[1].Bold)
	assert.Equal(t, BBox{X1: 100, Y1: 100, X2: 900, Y2: 150}, page.Words[1].Line)
}

func TestParse_NoPages(t *testing.T) {
	_, err := Parse([]byte("<html><body><p>nothing here</p></body></html>"))
	assert.True(t, errors.Is(err, ErrNoPages))
}

func TestParse_Latin1(t *testing.T) {
	data := []byte("<html><head><meta http-equiv='Content-Type' content='text/html; charset=iso-8859-1'></head><body>" +
		"<div class='ocr_page' title='bbox 0 0 100 100'>" +
		"<span class='ocrx_word' title='bbox 0 0 50 10'>caf\xe9</span></div></body></html>")

	doc, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, doc.Pages[0].Words, 1)
	assert.Equal(t, "café", doc.Pages[0].Words[0].Text)
}

func TestFragments_ProjectOntoPage(t *testing.T) {
	doc, err := Parse([]byte(sampleHOCR))
	require.NoError(t, err)

	// A 1200x1600 px scan of a 612x792 pt page.
	pages, err := doc.Fragments([]layout.PageGeometry{{WidthPt: 612, HeightPt: 792}})
	require.NoError(t, err)
	require.Len(t, pages, 1)
	require.Len(t, pages[0], 3)

	inv := pages[0][0]
	assert.InDelta(t, 100*0.51, inv.X, 1e-9)
	assert.InDelta(t, 792-150*0.495, inv.Y, 1e-9, "words sit on the bottom of their line")
	assert.InDelta(t, 40*0.495, inv.FontSizePt, 1e-9)
	assert.True(t, inv.Bold)

	// Both words of the first line share a baseline and cluster together.
	rows, _ := layout.Reconstruct(pages, layout.DefaultTableOptions())
	require.Len(t, rows, 2)
	assert.Equal(t, "Invoice 2024", rows[0].Text)
	assert.True(t, rows[0].Bold)
	assert.Equal(t, "Total", rows[1].Text)
}

func TestFragments_DefaultsToImageSize(t *testing.T) {
	doc, err := Parse([]byte(sampleHOCR))
	require.NoError(t, err)

	pages, err := doc.Fragments(nil)
	require.NoError(t, err)
	assert.InDelta(t, 100, pages[0][0].X, 1e-9)
	assert.InDelta(t, 1600-150, pages[0][0].Y, 1e-9)
}

func TestFragments_InvalidPageBox(t *testing.T) {
	doc := &Document{Pages: []Page{{Words: []Word{{Text: "x", BBox: BBox{X2: 1, Y2: 1}}}}}}
	_, err := doc.Fragments(nil)
	assert.ErrorIs(t, err, layout.ErrInvalidGeometry)
}
