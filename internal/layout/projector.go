package layout

import "math"

// Projector maps coordinates between a page preview and the page itself.
//
// Preview space has its origin at the top-left corner and grows downwards.
// Document space has its origin at the bottom-left corner and grows upwards.
// Projected coordinates are always expressed in the page's unrotated frame:
// rotation stays a page-level attribute, so removing it later is a pure
// metadata edit.
type Projector struct {
	preview  PreviewGeometry
	page     PageGeometry
	scaleX   float64
	scaleY   float64
	rotation int
}

// NewProjector validates the geometries once so many marks on the same page
// can be projected without re-checking
func NewProjector(preview PreviewGeometry, page PageGeometry) (*Projector, error) {
	if !isPositiveFinite(preview.WidthPx) || !isPositiveFinite(preview.HeightPx) {
		return nil, newError(KindInvalidGeometry, "projector",
			"preview dimensions must be positive, got %gx%g px", preview.WidthPx, preview.HeightPx)
	}
	if !isPositiveFinite(page.WidthPt) || !isPositiveFinite(page.HeightPt) {
		return nil, newError(KindInvalidGeometry, "projector",
			"page dimensions must be positive, got %gx%g pt", page.WidthPt, page.HeightPt)
	}

	rotation, err := NormalizeRotation(page.RotationDeg)
	if err != nil {
		return nil, err
	}

	return &Projector{
		preview:  preview,
		page:     page,
		scaleX:   page.WidthPt / preview.WidthPx,
		scaleY:   page.HeightPt / preview.HeightPx,
		rotation: rotation,
	}, nil
}

// NormalizeRotation folds a rotation into [0, 360) and rejects anything that
// is not a quarter turn
func NormalizeRotation(deg int) (int, error) {
	r := ((deg % 360) + 360) % 360
	if r%90 != 0 {
		return 0, newError(KindInvalidGeometry, "rotation", "rotation must be a multiple of 90, got %d", deg)
	}
	return r, nil
}

// Scale returns the preview-to-document scale factors per axis
func (p *Projector) Scale() (scaleX, scaleY float64) {
	return p.scaleX, p.scaleY
}

// Page returns the page geometry the projector was built for
func (p *Projector) Page() PageGeometry {
	return p.page
}

// ToDocument projects a preview point into document space. contentHeightPt is
// the height of whatever is being placed at the point, 0 for a bare point.
func (p *Projector) ToDocument(pt Point, contentHeightPt float64) Point {
	doc := Point{
		X: pt.X * p.scaleX,
		Y: p.page.HeightPt - pt.Y*p.scaleY - contentHeightPt,
	}
	if p.rotation == 0 {
		return doc
	}
	return rotateAbout(doc, p.center(), -p.rotation)
}

// ToPreview is the exact inverse of ToDocument
func (p *Projector) ToPreview(pt Point, contentHeightPt float64) Point {
	if p.rotation != 0 {
		pt = rotateAbout(pt, p.center(), p.rotation)
	}
	return Point{
		X: pt.X / p.scaleX,
		Y: (p.page.HeightPt - pt.Y - contentHeightPt) / p.scaleY,
	}
}

// Rect projects a preview rectangle (origin top-left) into a document
// rectangle (origin lower-left). Width and height scale independently.
func (p *Projector) Rect(r Rect) (Rect, error) {
	if !(r.Width > 0) || !(r.Height > 0) {
		return Rect{}, newError(KindInvalidCropDimensions, "project_rect",
			"width and height must be positive, got %gx%g", r.Width, r.Height)
	}

	width := r.Width * p.scaleX
	height := r.Height * p.scaleY
	if !(width > 0) || !(height > 0) {
		return Rect{}, newError(KindInvalidCropDimensions, "project_rect",
			"projected size collapsed to %gx%g", width, height)
	}

	if p.rotation == 0 {
		origin := p.ToDocument(Point{X: r.X, Y: r.Y}, height)
		return Rect{X: origin.X, Y: origin.Y, Width: width, Height: height}, nil
	}

	// Rotate every corner and keep the axis-aligned bounds.
	ll := Point{X: r.X * p.scaleX, Y: p.page.HeightPt - r.Y*p.scaleY - height}
	corners := [4]Point{
		ll,
		{X: ll.X + width, Y: ll.Y},
		{X: ll.X, Y: ll.Y + height},
		{X: ll.X + width, Y: ll.Y + height},
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		rc := rotateAbout(c, p.center(), -p.rotation)
		minX = math.Min(minX, rc.X)
		minY = math.Min(minY, rc.Y)
		maxX = math.Max(maxX, rc.X)
		maxY = math.Max(maxY, rc.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, nil
}

// Anchored projects a point denoting either the top-left corner or the
// centre of content of the given document size, and returns the lower-left
// corner at which a page-content writer should draw that content
func (p *Projector) Anchored(pt Point, content Size, anchor Anchor) Point {
	if anchor == AnchorCenter {
		doc := p.ToDocument(pt, 0)
		return Point{X: doc.X - content.Width/2, Y: doc.Y - content.Height/2}
	}
	return p.ToDocument(pt, content.Height)
}

func (p *Projector) center() Point {
	return Point{X: p.page.WidthPt / 2, Y: p.page.HeightPt / 2}
}

// rotateAbout turns pt counter-clockwise by deg (a quarter-turn multiple)
// around c. Exact unit vectors keep quarter turns free of rounding noise.
func rotateAbout(pt, c Point, deg int) Point {
	var cos, sin float64
	switch ((deg % 360) + 360) % 360 {
	case 0:
		cos, sin = 1, 0
	case 90:
		cos, sin = 0, 1
	case 180:
		cos, sin = -1, 0
	case 270:
		cos, sin = 0, -1
	}
	dx, dy := pt.X-c.X, pt.Y-c.Y
	return Point{
		X: c.X + dx*cos - dy*sin,
		Y: c.Y + dx*sin + dy*cos,
	}
}

// ProjectPoint maps a preview point into document space, subtracting the
// height of the content placed there
func ProjectPoint(pt Point, contentHeightPt float64, preview PreviewGeometry, page PageGeometry) (Point, error) {
	p, err := NewProjector(preview, page)
	if err != nil {
		return Point{}, err
	}
	return p.ToDocument(pt, contentHeightPt), nil
}

// ProjectPointToDocument maps a bare preview point into document space
func ProjectPointToDocument(pt Point, preview PreviewGeometry, page PageGeometry) (Point, error) {
	return ProjectPoint(pt, 0, preview, page)
}

// ProjectDocumentToPreview maps a document point back into preview space
func ProjectDocumentToPreview(pt Point, preview PreviewGeometry, page PageGeometry) (Point, error) {
	p, err := NewProjector(preview, page)
	if err != nil {
		return Point{}, err
	}
	return p.ToPreview(pt, 0), nil
}

// ProjectRectToDocument maps a preview rectangle into document space
func ProjectRectToDocument(r Rect, preview PreviewGeometry, page PageGeometry) (Rect, error) {
	if !(r.Width > 0) || !(r.Height > 0) {
		return Rect{}, newError(KindInvalidCropDimensions, "project_rect",
			"width and height must be positive, got %gx%g", r.Width, r.Height)
	}
	p, err := NewProjector(preview, page)
	if err != nil {
		return Rect{}, err
	}
	return p.Rect(r)
}

// ExpandRectByMargin grows a rectangle by margin on every side, in the
// rectangle's own units
func ExpandRectByMargin(r Rect, margin float64) Rect {
	return Rect{
		X:      r.X - margin,
		Y:      r.Y - margin,
		Width:  r.Width + 2*margin,
		Height: r.Height + 2*margin,
	}
}

// ProjectCenterAnchored projects a point that marks the centre of content of
// the given document size and returns its lower-left drawing origin
func ProjectCenterAnchored(pt Point, content Size, preview PreviewGeometry, page PageGeometry) (Point, error) {
	return Project(pt, content, AnchorCenter, preview, page)
}

// Project projects a point under an explicit anchor mode
func Project(pt Point, content Size, anchor Anchor, preview PreviewGeometry, page PageGeometry) (Point, error) {
	p, err := NewProjector(preview, page)
	if err != nil {
		return Point{}, err
	}
	return p.Anchored(pt, content, anchor), nil
}
