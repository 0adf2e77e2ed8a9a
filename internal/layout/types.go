// Package layout implements the coordinate and layout engine: projection of
// preview coordinates onto PDF pages, clustering of positioned text fragments
// into lines, and reconstruction of those lines into exportable rows.
//
// Everything in this package is pure. Functions never perform I/O, keep no
// state between calls and may be used from any number of goroutines.
package layout

import "math"

// Point represents a coordinate in either preview or document space.
// Which space is meant is decided by the function receiving it.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle. In preview space (X, Y) is the
// top-left corner; in document space it is the lower-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Offset translates the point by origin
func (p Point) Offset(origin Point) Point {
	return Point{X: p.X + origin.X, Y: p.Y + origin.Y}
}

// Offset translates the rectangle by origin. Document rectangles are
// relative to the page box corner; PDF boxes whose lower-left corner is
// not (0, 0) need this to become absolute user-space coordinates.
func (r Rect) Offset(origin Point) Rect {
	return Rect{X: r.X + origin.X, Y: r.Y + origin.Y, Width: r.Width, Height: r.Height}
}

// Size is the extent of placed content, in document points
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PageGeometry describes a page in its native coordinate system
type PageGeometry struct {
	WidthPt     float64 `json:"width_pt"`
	HeightPt    float64 `json:"height_pt"`
	RotationDeg int     `json:"rotation_deg"`
}

// PreviewGeometry describes the rendered bitmap a caller interacts with
type PreviewGeometry struct {
	WidthPx  float64 `json:"width_px"`
	HeightPx float64 `json:"height_px"`
}

// Anchor selects which part of placed content a projected point denotes
type Anchor string

const (
	AnchorTopLeft Anchor = "top_left"
	AnchorCenter  Anchor = "center"
)

// ParseAnchor converts a user supplied anchor name, defaulting to top-left
func ParseAnchor(s string) (Anchor, error) {
	switch Anchor(s) {
	case "", AnchorTopLeft:
		return AnchorTopLeft, nil
	case AnchorCenter, "centre", "centered":
		return AnchorCenter, nil
	default:
		return "", newError(KindInvalidGeometry, "parse_anchor", "unknown anchor mode %q", s)
	}
}

// TextFragment is one positioned run of extracted text
type TextFragment struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Text       string  `json:"text"`
	FontSizePt float64 `json:"font_size_pt"`
	Bold       bool    `json:"bold"`
	PageIndex  int     `json:"page_index"`
}

// Line is a set of fragments sharing a baseline, ordered left to right
type Line struct {
	YKey      float64        `json:"y_key"`
	Fragments []TextFragment `json:"fragments"`
}

// Row is the flattened, export-ready form of a Line
type Row struct {
	Text       string  `json:"text"`
	FontSizePt float64 `json:"font_size_pt"`
	Bold       bool    `json:"bold"`
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
