// Package edit applies page level changes to existing PDFs with pdfcpu.
// All coordinates are PDF user space points, origin bottom-left; callers
// project preview coordinates through layout.Projector first.
package edit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-pdf-layout/internal/layout"
)

// ErrInvalidPageSelection is returned for malformed page lists
var ErrInvalidPageSelection = errors.New("invalid page selection")

// EditError wraps a pdfcpu failure
type EditError struct {
	Op  string `json:"operation"`
	Err error  `json:"error"`
}

func (e *EditError) Error() string {
	return fmt.Sprintf("PDF pdfcpu library error in %s: %v", e.Op, e.Err)
}

func (e *EditError) Unwrap() error {
	return e.Err
}

// StampOptions controls text stamping
type StampOptions struct {
	FontName   string
	FontSizePt float64
	Opacity    float64
	Color      string // hex, e.g. #000000
}

// DefaultStampOptions returns black 12pt Helvetica at full opacity
func DefaultStampOptions() StampOptions {
	return StampOptions{FontName: "Helvetica", FontSizePt: 12, Opacity: 1, Color: "#000000"}
}

// ParsePageSelection turns "all", "" or a list such as "1,3,5-7" into the
// selection format pdfcpu expects. nil selects every page.
func ParsePageSelection(s string) ([]string, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		return nil, nil
	}

	var pages []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bounds := strings.SplitN(part, "-", 2)
		for _, b := range bounds {
			n, err := strconv.Atoi(strings.TrimSpace(b))
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPageSelection, part)
			}
		}
		if len(bounds) == 2 {
			lo, _ := strconv.Atoi(strings.TrimSpace(bounds[0]))
			hi, _ := strconv.Atoi(strings.TrimSpace(bounds[1]))
			if lo > hi {
				return nil, fmt.Errorf("%w: %q", ErrInvalidPageSelection, part)
			}
			part = fmt.Sprintf("%d-%d", lo, hi)
		}
		pages = append(pages, part)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPageSelection, s)
	}
	return pages, nil
}

// Crop sets the crop box of one page (1-based) to rect
func Crop(ctx context.Context, in, out string, page int, rect layout.Rect) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if page < 1 {
		return fmt.Errorf("%w: page %d", ErrInvalidPageSelection, page)
	}
	if !(rect.Width > 0) || !(rect.Height > 0) {
		return fmt.Errorf("%w: %gx%g", layout.ErrInvalidCropDimensions, rect.Width, rect.Height)
	}

	box, err := model.ParseBox(fmt.Sprintf("[%f %f %f %f]",
		rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height), types.POINTS)
	if err != nil {
		return &EditError{Op: "parse_box", Err: err}
	}

	if err := api.CropFile(in, out, []string{strconv.Itoa(page)}, box, configuration()); err != nil {
		return &EditError{Op: "crop", Err: err}
	}
	return nil
}

// Stamp draws text with its lower-left corner at at on the selected pages
func Stamp(ctx context.Context, in, out string, pages []string, text string, at layout.Point, opts StampOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("stamp text cannot be empty")
	}
	if opts.FontName == "" {
		opts.FontName = "Helvetica"
	}
	if !(opts.FontSizePt > 0) {
		opts.FontSizePt = 12
	}
	if !(opts.Opacity > 0) || opts.Opacity > 1 {
		opts.Opacity = 1
	}
	if opts.Color == "" {
		opts.Color = "#000000"
	}

	desc := fmt.Sprintf("fontname:%s, points:%g, position:bl, scalefactor:1 abs, rotation:0, opacity:%g, fillcolor:%s",
		opts.FontName, opts.FontSizePt, opts.Opacity, opts.Color)
	wm, err := pdfcpu.ParseTextWatermarkDetails(text, desc, true, types.POINTS)
	if err != nil {
		return &EditError{Op: "parse_stamp", Err: err}
	}
	wm.Dx = at.X
	wm.Dy = at.Y

	if err := copyIfDistinct(in, out); err != nil {
		return err
	}
	if err := api.AddWatermarksFile(out, "", pages, wm, configuration()); err != nil {
		return &EditError{Op: "stamp", Err: err}
	}
	return nil
}

// Rotate adds degrees (a multiple of 90) to the /Rotate of the selected pages
func Rotate(ctx context.Context, in, out string, pages []string, degrees int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := layout.NormalizeRotation(degrees); err != nil {
		return err
	}
	if err := api.RotateFile(in, out, degrees, pages, configuration()); err != nil {
		return &EditError{Op: "rotate", Err: err}
	}
	return nil
}

func configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func copyIfDistinct(src, dst string) error {
	if dst == "" || dst == src {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy PDF: %w", err)
	}
	return out.Close()
}
