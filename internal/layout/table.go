package layout

import (
	"fmt"
	"math"
	"sort"
)

const (
	// DefaultFontSizePt is used when a line's leading fragment has no usable size
	DefaultFontSizePt = 11.0

	// MinFontSizePt and MaxFontSizePt bound the sizes a spreadsheet cell
	// accepts. Sizes outside them fall back to the default with a warning.
	MinFontSizePt = 1.0
	MaxFontSizePt = 409.0

	// ExportColumn is the one-based spreadsheet column every row is written to
	ExportColumn = 1
)

// TableOptions controls row reconstruction
type TableOptions struct {
	Cluster           ClusterOptions `json:"cluster"`
	DefaultFontSizePt float64        `json:"default_font_size_pt"`
	DefaultBold       bool           `json:"default_bold"`

	// MinFontSizePt and MaxFontSizePt default to the package limits when zero
	MinFontSizePt float64 `json:"min_font_size_pt,omitempty"`
	MaxFontSizePt float64 `json:"max_font_size_pt,omitempty"`
}

// DefaultTableOptions returns the standard reconstruction policy
func DefaultTableOptions() TableOptions {
	return TableOptions{
		Cluster:           DefaultClusterOptions(),
		DefaultFontSizePt: DefaultFontSizePt,
		DefaultBold:       false,
		MinFontSizePt:     MinFontSizePt,
		MaxFontSizePt:     MaxFontSizePt,
	}
}

// sizeLimits returns the usable font size range, repairing unset or
// inverted bounds
func (o TableOptions) sizeLimits() (lo, hi float64) {
	lo, hi = o.MinFontSizePt, o.MaxFontSizePt
	if !isPositiveFinite(lo) {
		lo = MinFontSizePt
	}
	if !isPositiveFinite(hi) {
		hi = MaxFontSizePt
	}
	if lo > hi {
		lo, hi = MinFontSizePt, MaxFontSizePt
	}
	return lo, hi
}

// StyleWarning records a line whose style could not be normalized and was
// replaced by the configured defaults
type StyleWarning struct {
	Page    int     `json:"page"`
	Row     int     `json:"row"`
	Value   float64 `json:"value"`
	Message string  `json:"message"`
}

// Err exposes the warning as an ErrUnsupportedStyle error
func (w StyleWarning) Err() error {
	return newError(KindUnsupportedStyle, "reconstruct", "page %d row %d: %s", w.Page, w.Row, w.Message)
}

// Reconstruct turns the fragments of every page, in page order, into rows.
// Each line becomes exactly one row. Style comes from the line's first
// fragment: mixed-style lines adopt their leading style instead of failing.
func Reconstruct(pages [][]TextFragment, opts TableOptions) ([]Row, []StyleWarning) {
	minSize, maxSize := opts.sizeLimits()
	defaultSize := opts.DefaultFontSizePt
	if !isPositiveFinite(defaultSize) || defaultSize < minSize || defaultSize > maxSize {
		defaultSize = math.Min(math.Max(DefaultFontSizePt, minSize), maxSize)
	}

	var rows []Row
	var warnings []StyleWarning
	for pageIndex, frags := range pages {
		for _, line := range Cluster(frags, opts.Cluster) {
			row := Row{
				Text:       line.Text(),
				FontSizePt: defaultSize,
				Bold:       opts.DefaultBold,
			}
			if len(line.Fragments) > 0 {
				lead := line.Fragments[0]
				row.Bold = lead.Bold || opts.DefaultBold
				switch size := lead.FontSizePt; {
				case size == 0:
					// The extractor did not report a size.
				case !isPositiveFinite(size):
					warnings = append(warnings, StyleWarning{
						Page:    pageIndex,
						Row:     len(rows),
						Value:   sanitizeForReport(size),
						Message: "font size is not a positive number, using default",
					})
				case size < minSize || size > maxSize:
					warnings = append(warnings, StyleWarning{
						Page:    pageIndex,
						Row:     len(rows),
						Value:   size,
						Message: fmt.Sprintf("font size %g is outside %g-%g, using default", size, minSize, maxSize),
					})
				default:
					row.FontSizePt = size
				}
			}
			rows = append(rows, row)
		}
	}
	return rows, warnings
}

// ReconstructFragments groups a flat fragment slice by PageIndex (ascending)
// and reconstructs the rows
func ReconstructFragments(frags []TextFragment, opts TableOptions) ([]Row, []StyleWarning) {
	return Reconstruct(GroupByPage(frags), opts)
}

// GroupByPage splits fragments into per-page slices ordered by page index.
// Input order is preserved within each page.
func GroupByPage(frags []TextFragment) [][]TextFragment {
	byPage := make(map[int][]TextFragment)
	for _, f := range frags {
		byPage[f.PageIndex] = append(byPage[f.PageIndex], f)
	}

	indexes := make([]int, 0, len(byPage))
	for idx := range byPage {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	pages := make([][]TextFragment, len(indexes))
	for i, idx := range indexes {
		pages[i] = byPage[idx]
	}
	return pages
}

// CellPosition returns the one-based (column, row) a row index is exported
// to: one row per line, column A only
func CellPosition(rowIndex int) (col, row int) {
	return ExportColumn, rowIndex + 1
}

// sanitizeForReport keeps warnings JSON encodable
func sanitizeForReport(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return -1
	}
	return v
}
