package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/a3tai/mcp-pdf-layout/internal/layout"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFCPUGeometry reads page boxes and rotation with pdfcpu
type PDFCPUGeometry struct{}

// NewPDFCPUGeometry creates a pdfcpu backed geometry reader
func NewPDFCPUGeometry() *PDFCPUGeometry {
	return &PDFCPUGeometry{}
}

// PageGeometries returns the visible size (CropBox, else MediaBox) and the
// normalized /Rotate value of every page
func (g *PDFCPUGeometry) PageGeometries(ctx context.Context, path string) ([]layout.PageGeometry, error) {
	pdfCtx, err := readContext(path)
	if err != nil {
		return nil, err
	}

	geometries := make([]layout.PageGeometry, 0, pdfCtx.PageCount)
	for pageNum := 1; pageNum <= pdfCtx.PageCount; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		geom, _, err := pageGeometry(pdfCtx, pageNum)
		if err != nil {
			return nil, err
		}
		geometries = append(geometries, geom)
	}
	return geometries, nil
}

// PageGeometry returns the geometry of one page, pageNum is 1-based
func (g *PDFCPUGeometry) PageGeometry(path string, pageNum int) (layout.PageGeometry, error) {
	geom, _, err := g.PageBox(path, pageNum)
	return geom, err
}

// PageBox returns the geometry of one page together with the lower-left
// corner of its visible box in PDF user space
func (g *PDFCPUGeometry) PageBox(path string, pageNum int) (layout.PageGeometry, layout.Point, error) {
	pdfCtx, err := readContext(path)
	if err != nil {
		return layout.PageGeometry{}, layout.Point{}, err
	}
	if pageNum < 1 || pageNum > pdfCtx.PageCount {
		return layout.PageGeometry{}, layout.Point{}, fmt.Errorf("%w: page %d (document has %d pages)",
			ErrPageOutOfRange, pageNum, pdfCtx.PageCount)
	}
	return pageGeometry(pdfCtx, pageNum)
}

// PageCount returns the number of pages in the file
func (g *PDFCPUGeometry) PageCount(path string) (int, error) {
	pdfCtx, err := readContext(path)
	if err != nil {
		return 0, err
	}
	return pdfCtx.PageCount, nil
}

func readContext(path string) (*model.Context, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &CollaboratorError{
			Library: LibraryPDFCPU,
			Op:      "open_file",
			Err:     fmt.Errorf("failed to open file: %w", err),
		}
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pdfCtx, err := api.ReadContext(file, conf)
	if err != nil {
		return nil, &CollaboratorError{
			Library: LibraryPDFCPU,
			Op:      "open_file",
			Err:     fmt.Errorf("failed to read PDF context: %w", err),
		}
	}

	if err := pdfCtx.EnsurePageCount(); err != nil {
		return nil, &CollaboratorError{
			Library: LibraryPDFCPU,
			Op:      "open_file",
			Err:     fmt.Errorf("failed to ensure page count: %w", err),
		}
	}
	return pdfCtx, nil
}

func pageGeometry(pdfCtx *model.Context, pageNum int) (layout.PageGeometry, layout.Point, error) {
	_, _, inh, err := pdfCtx.PageDict(pageNum, false)
	if err != nil {
		return layout.PageGeometry{}, layout.Point{}, &CollaboratorError{
			Library: LibraryPDFCPU,
			Op:      "page_geometry",
			Err:     fmt.Errorf("page %d: %w", pageNum, err),
		}
	}
	if inh == nil || inh.MediaBox == nil {
		return layout.PageGeometry{}, layout.Point{}, &CollaboratorError{
			Library: LibraryPDFCPU,
			Op:      "page_geometry",
			Err:     fmt.Errorf("page %d has no media box", pageNum),
		}
	}

	box := inh.MediaBox
	if inh.CropBox != nil {
		box = inh.CropBox
	}

	rotation, err := layout.NormalizeRotation(inh.Rotate)
	if err != nil {
		// A non quarter-turn /Rotate is invalid PDF; viewers ignore it.
		rotation = 0
	}

	geom := layout.PageGeometry{
		WidthPt:     box.Width(),
		HeightPt:    box.Height(),
		RotationDeg: rotation,
	}
	return geom, layout.Point{X: box.LL.X, Y: box.LL.Y}, nil
}
