package edit

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-pdf-layout/internal/layout"
)

const (
	// redactPixelsPerPoint is the resolution of the generated fill image
	redactPixelsPerPoint = 4.0

	// maxRedactPixels caps either side of the fill image
	maxRedactPixels = 2000
)

// ImageSize returns the pixel dimensions of a PNG or JPEG file
func ImageSize(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("unsupported image %s: %w", path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("image %s has no pixels", path)
	}
	return cfg.Width, cfg.Height, nil
}

// StampImage draws the image at imagePath with its lower-left corner at at
// on the selected pages, scaled to widthPt. A non-positive widthPt draws
// one point per pixel.
func StampImage(ctx context.Context, in, out string, pages []string, imagePath string, at layout.Point, widthPt, opacity float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pxW, _, err := ImageSize(imagePath)
	if err != nil {
		return err
	}

	scale := 1.0
	if widthPt > 0 {
		scale = widthPt / float64(pxW)
	}
	if !(opacity > 0) || opacity > 1 {
		opacity = 1
	}

	if err := copyIfDistinct(in, out); err != nil {
		return err
	}
	if err := addImage(out, pages, imagePath, at, scale, opacity); err != nil {
		return &EditError{Op: "stamp_image", Err: err}
	}
	return nil
}

// Redact covers every rect on one page (1-based) with an opaque black box.
// The boxes are drawn over the page content; the text underneath stays in
// the content stream.
func Redact(ctx context.Context, in, out string, page int, rects []layout.Rect) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if page < 1 {
		return fmt.Errorf("%w: page %d", ErrInvalidPageSelection, page)
	}
	if len(rects) == 0 {
		return errors.New("no redaction areas given")
	}
	for i, r := range rects {
		if !(r.Width > 0) || !(r.Height > 0) {
			return fmt.Errorf("area %d: %w: %gx%g", i+1, layout.ErrInvalidCropDimensions, r.Width, r.Height)
		}
	}

	tmp, err := os.MkdirTemp("", "redact-*")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := copyIfDistinct(in, out); err != nil {
		return err
	}
	pages := []string{strconv.Itoa(page)}
	for i, r := range rects {
		if err := ctx.Err(); err != nil {
			return err
		}
		fill, scale, err := writeFill(tmp, i, r)
		if err != nil {
			return err
		}
		if err := addImage(out, pages, fill, layout.Point{X: r.X, Y: r.Y}, scale, 1); err != nil {
			return &EditError{Op: "redact", Err: err}
		}
	}
	return nil
}

// writeFill writes a black PNG with the aspect ratio of r. The returned
// scale maps its pixel width onto r.Width; the height is rounded up so the
// box never falls short of r.
func writeFill(dir string, n int, r layout.Rect) (string, float64, error) {
	ppp := redactPixelsPerPoint
	if longest := math.Max(r.Width, r.Height) * ppp; longest > maxRedactPixels {
		ppp = maxRedactPixels / math.Max(r.Width, r.Height)
	}
	pxW := int(math.Max(1, math.Floor(r.Width*ppp)))
	scale := r.Width / float64(pxW)
	pxH := int(math.Max(1, math.Ceil(r.Height/scale)))

	// A zeroed gray image is solid black.
	img := image.NewGray(image.Rect(0, 0, pxW, pxH))

	path := filepath.Join(dir, fmt.Sprintf("fill-%d.png", n))
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create fill image: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", 0, fmt.Errorf("failed to encode fill image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to write fill image: %w", err)
	}
	return path, scale, nil
}

func addImage(file string, pages []string, imagePath string, at layout.Point, scale, opacity float64) error {
	desc := fmt.Sprintf("position:bl, scalefactor:%g abs, rotation:0, opacity:%g", scale, opacity)
	wm, err := pdfcpu.ParseImageWatermarkDetails(imagePath, desc, true, types.POINTS)
	if err != nil {
		return fmt.Errorf("failed to parse image stamp: %w", err)
	}
	wm.Dx = at.X
	wm.Dy = at.Y

	return api.AddWatermarksFile(file, "", pages, wm, configuration())
}
