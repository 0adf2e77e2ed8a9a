package pdf

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-pdf-layout/internal/compare"
	"github.com/a3tai/mcp-pdf-layout/internal/export"
	"github.com/a3tai/mcp-pdf-layout/internal/layout"
	"github.com/a3tai/mcp-pdf-layout/internal/ocr"
	"github.com/a3tai/mcp-pdf-layout/internal/pdf/edit"
	"github.com/a3tai/mcp-pdf-layout/internal/pdf/extract"
	"github.com/a3tai/mcp-pdf-layout/internal/pdf/security"
)

// DefaultCropMargin is added around every crop selection, in preview pixels
const DefaultCropMargin = 2.0

// Options configures a Service
type Options struct {
	MaxFileSize     int64
	PDFDirectory    string
	OutputDirectory string
	Table           layout.TableOptions
	DiffThreshold   float64
	CropMargin      float64
	ExtractTimeout  time.Duration
	CacheSize       int
}

// DefaultOptions returns the standard layout policy for directory
func DefaultOptions(directory string) Options {
	return Options{
		MaxFileSize:    100 * 1024 * 1024,
		PDFDirectory:   directory,
		Table:          layout.DefaultTableOptions(),
		DiffThreshold:  compare.DefaultThreshold,
		CropMargin:     DefaultCropMargin,
		ExtractTimeout: 30 * time.Second,
		CacheSize:      32,
	}
}

// Service handles layout operations on PDF files by orchestrating the
// extraction, layout, editing and export components
type Service struct {
	opts      Options
	sandbox   *security.Sandbox
	validator *Validator
	geometry  *extract.PDFCPUGeometry
	extractor *extract.CachingExtractor
}

// NewService creates a new PDF layout service with all components
func NewService(opts Options) (*Service, error) {
	sandbox, err := security.NewSandbox(opts.PDFDirectory, opts.OutputDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path sandbox: %w", err)
	}
	if opts.MaxFileSize <= 0 {
		return nil, fmt.Errorf("max file size must be positive, got %d", opts.MaxFileSize)
	}
	if opts.ExtractTimeout <= 0 {
		opts.ExtractTimeout = 30 * time.Second
	}

	geometry := extract.NewPDFCPUGeometry()
	return &Service{
		opts:      opts,
		sandbox:   sandbox,
		validator: NewValidator(opts.MaxFileSize),
		geometry:  geometry,
		extractor: extract.NewCachingExtractor(extract.NewLedongthucExtractor(geometry), opts.CacheSize),
	}, nil
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.opts.MaxFileSize
}

// ProjectRegion projects a preview point or rectangle into document space,
// or a document point back into the preview for Kind "inverse"
func (s *Service) ProjectRegion(req LayoutProjectRequest) (*LayoutProjectResult, error) {
	page := layout.PageGeometry{WidthPt: req.PageWidth, HeightPt: req.PageHeight, RotationDeg: req.Rotation}
	var origin layout.Point
	if req.Path != "" {
		path, err := s.resolvePDF(req.Path)
		if err != nil {
			return nil, err
		}
		pageNum := req.Page
		if pageNum == 0 {
			pageNum = 1
		}
		page, origin, err = s.geometry.PageBox(path, pageNum)
		if err != nil {
			return nil, err
		}
	}

	proj, err := layout.NewProjector(layout.PreviewGeometry{WidthPx: req.PreviewWidth, HeightPx: req.PreviewHeight}, page)
	if err != nil {
		return nil, err
	}
	scaleX, scaleY := proj.Scale()
	result := &LayoutProjectResult{Page: proj.Page(), Origin: origin, ScaleX: scaleX, ScaleY: scaleY}

	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if kind == "" {
		kind = "point"
		if req.Width != 0 || req.Height != 0 {
			kind = "rect"
		}
	}
	result.Kind = kind

	switch kind {
	case "point":
		anchor, err := layout.ParseAnchor(req.Anchor)
		if err != nil {
			return nil, err
		}
		pt := proj.Anchored(layout.Point{X: req.X, Y: req.Y},
			layout.Size{Width: req.ContentWidth, Height: req.ContentHeight}, anchor).Offset(origin)
		result.Point = &pt
	case "rect":
		margin := s.opts.CropMargin
		if req.Margin != nil {
			margin = *req.Margin
		}
		r, err := projectSelection(layout.Rect{X: req.X, Y: req.Y, Width: req.Width, Height: req.Height},
			margin, layout.PreviewGeometry{WidthPx: req.PreviewWidth, HeightPx: req.PreviewHeight}, page)
		if err != nil {
			return nil, err
		}
		r = r.Offset(origin)
		result.Rect = &r
	case "inverse":
		pt := proj.ToPreview(layout.Point{X: req.X - origin.X, Y: req.Y - origin.Y}, req.ContentHeight)
		result.Point = &pt
	default:
		return nil, fmt.Errorf("unknown projection kind %q (must be point, rect or inverse)", req.Kind)
	}
	return result, nil
}

// PageGeometry reports the size and rotation of every page
func (s *Service) PageGeometry(ctx context.Context, req PDFPageGeometryRequest) (*PDFPageGeometryResult, error) {
	path, err := s.resolvePDF(req.Path)
	if err != nil {
		return nil, err
	}
	geoms, err := s.geometry.PageGeometries(ctx, path)
	if err != nil {
		return nil, err
	}

	result := &PDFPageGeometryResult{Path: path, Pages: make([]PageGeometryInfo, len(geoms))}
	for i, g := range geoms {
		result.Pages[i] = PageGeometryInfo{Number: i + 1, PageGeometry: g}
	}
	return result, nil
}

// CropPage crops a page to a preview selection grown by the crop margin,
// which is measured in preview pixels
func (s *Service) CropPage(ctx context.Context, req PDFCropRequest) (*PDFCropResult, error) {
	path, err := s.resolvePDF(req.Path)
	if err != nil {
		return nil, err
	}
	if req.Page == 0 {
		req.Page = 1
	}
	page, origin, err := s.geometry.PageBox(path, req.Page)
	if err != nil {
		return nil, err
	}

	margin := s.opts.CropMargin
	if req.Margin != nil {
		margin = *req.Margin
	}
	box, err := projectSelection(
		layout.Rect{X: req.X, Y: req.Y, Width: req.Width, Height: req.Height},
		margin,
		layout.PreviewGeometry{WidthPx: req.PreviewWidth, HeightPx: req.PreviewHeight},
		page,
	)
	if err != nil {
		return nil, err
	}
	// Crop boxes are absolute, unlike the page-relative projection.
	box = box.Offset(origin)

	out, err := s.sandbox.ResolveOutput(req.OutputPath, derivedName(path, "cropped", ".pdf"))
	if err != nil {
		return nil, err
	}
	if err := edit.Crop(ctx, path, out, req.Page, box); err != nil {
		return nil, err
	}

	log.Printf("Cropped page %d of %s to %+v", req.Page, path, box)
	return &PDFCropResult{Path: path, OutputPath: out, Page: req.Page, Box: box, Margin: margin}, nil
}

// StampPage writes text at a preview position. The position is projected
// with the geometry of the first selected page.
func (s *Service) StampPage(ctx context.Context, req PDFStampRequest) (*PDFStampResult, error) {
	path, err := s.resolvePDF(req.Path)
	if err != nil {
		return nil, err
	}
	pages, err := edit.ParsePageSelection(req.Pages)
	if err != nil {
		return nil, err
	}
	anchor, err := layout.ParseAnchor(req.Anchor)
	if err != nil {
		return nil, err
	}

	page, err := s.geometry.PageGeometry(path, firstPage(pages))
	if err != nil {
		return nil, err
	}

	opts := edit.DefaultStampOptions()
	if req.FontSize > 0 {
		opts.FontSizePt = req.FontSize
	}
	if req.Opacity > 0 {
		opts.Opacity = req.Opacity
	}

	// Text content is one line tall; width only matters when centred.
	origin, err := layout.Project(
		layout.Point{X: req.X, Y: req.Y},
		layout.Size{Width: req.ContentWidth, Height: opts.FontSizePt},
		anchor,
		layout.PreviewGeometry{WidthPx: req.PreviewWidth, HeightPx: req.PreviewHeight},
		page,
	)
	if err != nil {
		return nil, err
	}

	out, err := s.sandbox.ResolveOutput(req.OutputPath, derivedName(path, "stamped", ".pdf"))
	if err != nil {
		return nil, err
	}
	if err := edit.Stamp(ctx, path, out, pages, req.Text, origin, opts); err != nil {
		return nil, err
	}

	return &PDFStampResult{Path: path, OutputPath: out, Pages: pages, Origin: origin}, nil
}

// RedactPage covers every preview selection on one page with a black box.
// All selections are projected with the same page geometry.
func (s *Service) RedactPage(ctx context.Context, req PDFRedactRequest) (*PDFRedactResult, error) {
	path, err := s.resolvePDF(req.Path)
	if err != nil {
		return nil, err
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if len(req.Rects) == 0 {
		return nil, fmt.Errorf("%w: no areas to redact", layout.ErrInvalidCropDimensions)
	}
	page, err := s.geometry.PageGeometry(path, req.Page)
	if err != nil {
		return nil, err
	}

	proj, err := layout.NewProjector(layout.PreviewGeometry{WidthPx: req.PreviewWidth, HeightPx: req.PreviewHeight}, page)
	if err != nil {
		return nil, err
	}
	boxes := make([]layout.Rect, len(req.Rects))
	for i, r := range req.Rects {
		box, err := proj.Rect(r)
		if err != nil {
			return nil, fmt.Errorf("area %d: %w", i+1, err)
		}
		boxes[i] = box
	}

	out, err := s.sandbox.ResolveOutput(req.OutputPath, derivedName(path, "redacted", ".pdf"))
	if err != nil {
		return nil, err
	}
	if err := edit.Redact(ctx, path, out, req.Page, boxes); err != nil {
		return nil, err
	}

	log.Printf("Redacted %d area(s) on page %d of %s", len(boxes), req.Page, path)
	return &PDFRedactResult{Path: path, OutputPath: out, Page: req.Page, Boxes: boxes}, nil
}

// StampImagePage draws an image at a preview position, centred on it
// unless another anchor is given
func (s *Service) StampImagePage(ctx context.Context, req PDFStampImageRequest) (*PDFStampImageResult, error) {
	path, err := s.resolvePDF(req.Path)
	if err != nil {
		return nil, err
	}
	imagePath, err := s.sandbox.ResolveInput(req.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if err := s.validator.ValidateImage(imagePath); err != nil {
		return nil, err
	}
	pages, err := edit.ParsePageSelection(req.Pages)
	if err != nil {
		return nil, err
	}
	anchorName := req.Anchor
	if anchorName == "" {
		anchorName = string(layout.AnchorCenter)
	}
	anchor, err := layout.ParseAnchor(anchorName)
	if err != nil {
		return nil, err
	}

	pxW, pxH, err := edit.ImageSize(imagePath)
	if err != nil {
		return nil, err
	}
	size := layout.Size{Width: float64(pxW), Height: float64(pxH)}
	if req.Width > 0 {
		size = layout.Size{Width: req.Width, Height: req.Width * float64(pxH) / float64(pxW)}
	}

	page, err := s.geometry.PageGeometry(path, firstPage(pages))
	if err != nil {
		return nil, err
	}
	origin, err := layout.Project(
		layout.Point{X: req.X, Y: req.Y},
		size,
		anchor,
		layout.PreviewGeometry{WidthPx: req.PreviewWidth, HeightPx: req.PreviewHeight},
		page,
	)
	if err != nil {
		return nil, err
	}

	out, err := s.sandbox.ResolveOutput(req.OutputPath, derivedName(path, "signed", ".pdf"))
	if err != nil {
		return nil, err
	}
	if err := edit.StampImage(ctx, path, out, pages, imagePath, origin, size.Width, req.Opacity); err != nil {
		return nil, err
	}

	return &PDFStampImageResult{Path: path, OutputPath: out, Pages: pages, Origin: origin, Size: size}, nil
}

// RotatePages rotates the selected pages
func (s *Service) RotatePages(ctx context.Context, req PDFRotateRequest) (*PDFRotateResult, error) {
	path, err := s.resolvePDF(req.Path)
	if err != nil {
		return nil, err
	}
	pages, err := edit.ParsePageSelection(req.Pages)
	if err != nil {
		return nil, err
	}

	out, err := s.sandbox.ResolveOutput(req.OutputPath, derivedName(path, "rotated", ".pdf"))
	if err != nil {
		return nil, err
	}
	if err := edit.Rotate(ctx, path, out, pages, req.Degrees); err != nil {
		return nil, err
	}

	return &PDFRotateResult{Path: path, OutputPath: out, Pages: pages, Degrees: req.Degrees}, nil
}

// ExportTable reconstructs one row per text line and writes an .xlsx file.
// PDFs without a text layer use hOCR output: HOCRPath when given, else a
// sidecar next to the PDF.
func (s *Service) ExportTable(ctx context.Context, req PDFToTableRequest) (*PDFToTableResult, error) {
	path, err := s.resolvePDF(req.Path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ExtractTimeout)
	defer cancel()

	pages, source, err := s.fragments(ctx, path, req.HOCRPath)
	if err != nil {
		return nil, err
	}

	opts := s.opts.Table
	if req.LineTolerance > 0 {
		opts.Cluster.Tolerance = req.LineTolerance
	}
	if req.BottomUp {
		opts.Cluster.TopDown = false
	}
	rows, warnings := layout.Reconstruct(pages, opts)

	out, err := s.sandbox.ResolveOutput(req.OutputPath, derivedName(path, "", ".xlsx"))
	if err != nil {
		return nil, err
	}
	if err := export.WriteFile(out, rows, ""); err != nil {
		return nil, err
	}

	result := &PDFToTableResult{
		Path:       path,
		OutputPath: out,
		Source:     string(source),
		Pages:      len(pages),
		RowCount:   len(rows),
		Rows:       rows,
	}
	for _, w := range warnings {
		log.Printf("Style warning in %s: %v", path, w.Err())
		result.Warnings = append(result.Warnings, StyleWarningInfo(w))
	}
	return result, nil
}

// ComparePDFs extracts both files concurrently and compares their
// reading-order text. Files without a text layer use their hOCR sidecar
// and fail with ErrNoTextLayer when there is none.
func (s *Service) ComparePDFs(ctx context.Context, req PDFCompareRequest) (*PDFCompareResult, error) {
	opts, err := s.compareOptions(req.Threshold, req.IncludeAll, req.Mode)
	if err != nil {
		return nil, err
	}
	pathA, err := s.resolvePDF(req.PathA)
	if err != nil {
		return nil, fmt.Errorf("first document: %w", err)
	}
	pathB, err := s.resolvePDF(req.PathB)
	if err != nil {
		return nil, fmt.Errorf("second document: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.ExtractTimeout)
	defer cancel()

	var textA, textB string
	var sourceA, sourceB extract.Library
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pages, source, err := s.fragments(gctx, pathA, "")
		if err != nil {
			return fmt.Errorf("first document: %w", err)
		}
		textA, sourceA = layout.PagesText(pages, s.opts.Table.Cluster), source
		return nil
	})
	g.Go(func() error {
		pages, source, err := s.fragments(gctx, pathB, "")
		if err != nil {
			return fmt.Errorf("second document: %w", err)
		}
		textB, sourceB = layout.PagesText(pages, s.opts.Table.Cluster), source
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := compare.Compare(textA, textB, opts)
	return &PDFCompareResult{
		PathA:   pathA,
		PathB:   pathB,
		SourceA: string(sourceA),
		SourceB: string(sourceB),
		Report:  report,
	}, nil
}

// CompareText compares two texts without touching the filesystem
func (s *Service) CompareText(req TextCompareRequest) (*compare.Report, error) {
	opts, err := s.compareOptions(req.Threshold, req.IncludeAll, req.Mode)
	if err != nil {
		return nil, err
	}
	report := compare.Compare(req.TextA, req.TextB, opts)
	return &report, nil
}

// CacheStats reports extraction cache usage
func (s *Service) CacheStats() CacheInfo {
	return CacheInfo(s.extractor.Stats())
}

func (s *Service) compareOptions(threshold *float64, includeAll bool, mode string) (compare.Options, error) {
	m, err := compare.ParseMode(mode)
	if err != nil {
		return compare.Options{}, err
	}
	opts := compare.Options{Threshold: s.opts.DiffThreshold, IncludeAll: includeAll, Mode: m}
	if threshold != nil {
		opts.Threshold = *threshold
	}
	if err := opts.Validate(); err != nil {
		return compare.Options{}, err
	}
	return opts, nil
}

// fragments returns per-page fragments from the text layer, falling back
// to hOCR when the PDF has none
func (s *Service) fragments(ctx context.Context, path, hocrPath string) ([][]layout.TextFragment, extract.Library, error) {
	if hocrPath == "" {
		doc, err := s.extractor.Extract(ctx, path)
		if err != nil {
			return nil, "", err
		}
		if doc.HasTextLayer() {
			return doc.FragmentsByPage(), extract.LibraryLedongthuc, nil
		}

		sidecar := hocrSidecar(path)
		if _, err := os.Stat(sidecar); err != nil {
			return nil, "", fmt.Errorf("%w: %s (no hOCR sidecar at %s)", extract.ErrNoTextLayer, path, sidecar)
		}
		log.Printf("No text layer in %s, using OCR output %s", path, sidecar)
		hocrPath = sidecar
	}

	resolved, err := s.sandbox.ResolveInput(hocrPath)
	if err != nil {
		return nil, "", fmt.Errorf("security validation failed: %w", err)
	}
	if err := s.validator.ValidateHOCR(resolved); err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read hOCR file: %w", err)
	}
	doc, err := ocr.Parse(data)
	if err != nil {
		return nil, "", &extract.CollaboratorError{Library: extract.LibraryHOCR, Op: "parse", Err: err}
	}

	geoms, err := s.geometry.PageGeometries(ctx, path)
	if err != nil {
		return nil, "", err
	}
	pages, err := doc.Fragments(geoms)
	if err != nil {
		return nil, "", err
	}
	return pages, extract.LibraryHOCR, nil
}

// projectSelection grows a preview selection by margin preview pixels and
// projects it. The selection itself must be non-degenerate.
func projectSelection(sel layout.Rect, margin float64, preview layout.PreviewGeometry, page layout.PageGeometry) (layout.Rect, error) {
	if !(sel.Width > 0) || !(sel.Height > 0) {
		return layout.Rect{}, fmt.Errorf("%w: selection is %gx%g", layout.ErrInvalidCropDimensions, sel.Width, sel.Height)
	}
	return layout.ProjectRectToDocument(layout.ExpandRectByMargin(sel, margin), preview, page)
}

func (s *Service) resolvePDF(path string) (string, error) {
	resolved, err := s.sandbox.ResolveInput(path)
	if err != nil {
		return "", fmt.Errorf("security validation failed: %w", err)
	}
	if err := s.validator.ValidatePDF(resolved); err != nil {
		return "", err
	}
	return resolved, nil
}

func derivedName(path, suffix, ext string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if suffix != "" {
		base += "_" + suffix
	}
	return base + ext
}

func firstPage(pages []string) int {
	if len(pages) == 0 {
		return 1
	}
	first := pages[0]
	if i := strings.IndexByte(first, '-'); i >= 0 {
		first = first[:i]
	}
	var n int
	if _, err := fmt.Sscanf(first, "%d", &n); err != nil || n < 1 {
		return 1
	}
	return n
}

// IsNoTextLayer reports whether err means OCR output is needed
func IsNoTextLayer(err error) bool {
	return errors.Is(err, extract.ErrNoTextLayer)
}
