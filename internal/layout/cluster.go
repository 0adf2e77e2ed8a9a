package layout

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// DefaultLineTolerance is the baseline distance, in points, under which two
// fragments are considered to sit on the same line
const DefaultLineTolerance = 0.1

// keyEpsilon absorbs floating point error when comparing quantized keys
const keyEpsilon = 1e-9

// ClusterOptions controls how fragments are grouped into lines
type ClusterOptions struct {
	// Tolerance is the quantization step for baselines. Scanned or
	// re-encoded documents need a larger value than born-digital ones.
	Tolerance float64 `json:"tolerance"`

	// TopDown orders lines by descending y, which is top-to-bottom reading
	// order in document space. When false lines come out by ascending y,
	// the right order for fragments already expressed in preview space.
	TopDown bool `json:"top_down"`
}

// DefaultClusterOptions returns options for born-digital PDFs in document space
func DefaultClusterOptions() ClusterOptions {
	return ClusterOptions{
		Tolerance: DefaultLineTolerance,
		TopDown:   true,
	}
}

func (o ClusterOptions) tolerance() float64 {
	if !isPositiveFinite(o.Tolerance) {
		return DefaultLineTolerance
	}
	return o.Tolerance
}

// indexedFragment remembers input order so ties sort deterministically
type indexedFragment struct {
	frag  TextFragment
	order int
}

// QuantizeY snaps a baseline to the tolerance grid
func QuantizeY(y, tolerance float64) float64 {
	if !isPositiveFinite(tolerance) {
		tolerance = DefaultLineTolerance
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0
	}
	return math.Round(y/tolerance) * tolerance
}

// Cluster groups the fragments of a single page into lines.
//
// Baselines are quantized to the tolerance grid and bucketed. Buckets are
// then walked in reading order and a bucket joins the current line while its
// key is within one tolerance step of the key that opened the line, so 100.04
// and 100.06 share a line at tolerance 0.1 while fragments 1pt apart do not.
// Inside a line fragments are ordered by ascending x; equal x keeps the input
// order. An empty input yields no lines.
func Cluster(frags []TextFragment, opts ClusterOptions) []Line {
	if len(frags) == 0 {
		return nil
	}
	tol := opts.tolerance()

	buckets := make(map[float64][]indexedFragment)
	for i, f := range frags {
		key := QuantizeY(f.Y, tol)
		buckets[key] = append(buckets[key], indexedFragment{frag: f, order: i})
	}

	keys := make([]float64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	if opts.TopDown {
		sort.Sort(sort.Reverse(sort.Float64Slice(keys)))
	} else {
		sort.Float64s(keys)
	}

	var lines []Line
	var current []indexedFragment
	anchor := 0.0
	flush := func() {
		if len(current) == 0 {
			return
		}
		sort.SliceStable(current, func(i, j int) bool {
			if current[i].frag.X != current[j].frag.X {
				return current[i].frag.X < current[j].frag.X
			}
			return current[i].order < current[j].order
		})
		line := Line{YKey: anchor, Fragments: make([]TextFragment, len(current))}
		for i, f := range current {
			line.Fragments[i] = f.frag
		}
		lines = append(lines, line)
		current = nil
	}

	for _, k := range keys {
		if len(current) > 0 && math.Abs(k-anchor) > tol+keyEpsilon {
			flush()
		}
		if len(current) == 0 {
			anchor = k
		}
		current = append(current, buckets[k]...)
	}
	flush()

	return lines
}

// Text flattens the line. Fragments are usually sub-word runs so they are
// joined without a separator; trailing whitespace is dropped.
func (l Line) Text() string {
	var b strings.Builder
	for _, f := range l.Fragments {
		b.WriteString(f.Text)
	}
	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}

// IsEmpty reports whether there is nothing to cluster. Callers that need to
// tell "no content" apart from a failure check this before clustering.
func IsEmpty(frags []TextFragment) bool {
	return len(frags) == 0
}

// RequireContent returns ErrEmptyInput when frags is empty
func RequireContent(frags []TextFragment) error {
	if IsEmpty(frags) {
		return newError(KindEmptyInput, "cluster", "no text fragments to cluster")
	}
	return nil
}

// LinesText joins the flattened text of every line with newlines
func LinesText(lines []Line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.Text()
	}
	return strings.Join(parts, "\n")
}

// PagesText clusters every page and joins the pages with a blank line
func PagesText(pages [][]TextFragment, opts ClusterOptions) string {
	parts := make([]string, len(pages))
	for i, frags := range pages {
		parts[i] = LinesText(Cluster(frags, opts))
	}
	return strings.Join(parts, "\n\n")
}
