package compare

import (
	"fmt"
	"math"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultThreshold is the similarity under which a line is reported
const DefaultThreshold = 0.9

// Mode selects how lines of the two documents are paired
type Mode string

const (
	// ModeIndexAligned pairs line i of A with line i of B. An inserted or
	// deleted line shifts every following pair; that is the intended
	// behavior, not a bug.
	ModeIndexAligned Mode = "index"

	// ModeAligned pairs lines along a longest-matching-block alignment so
	// inserted and deleted lines are reported on their own. Opt-in only.
	ModeAligned Mode = "aligned"
)

// ParseMode converts a user supplied mode name, defaulting to index-aligned
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeIndexAligned:
		return ModeIndexAligned, nil
	case ModeAligned:
		return ModeAligned, nil
	default:
		return "", fmt.Errorf("unknown compare mode %q (must be %q or %q)", s, ModeIndexAligned, ModeAligned)
	}
}

// Options controls a comparison
type Options struct {
	// Threshold is exclusive: a pair scoring exactly Threshold is not reported.
	Threshold float64 `json:"threshold"`

	// IncludeAll reports every pair, not only those under the threshold.
	IncludeAll bool `json:"include_all"`

	Mode Mode `json:"mode"`
}

// DefaultOptions returns the fine-grained report settings
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, Mode: ModeIndexAligned}
}

// Validate checks the threshold range and mode
func (o Options) Validate() error {
	if math.IsNaN(o.Threshold) || o.Threshold < 0 || o.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %v", o.Threshold)
	}
	if _, err := ParseMode(string(o.Mode)); err != nil {
		return err
	}
	return nil
}

// DiffRecord is one reported pair of lines
type DiffRecord struct {
	LineNumber int     `json:"line"`
	TextA      string  `json:"text1"`
	TextB      string  `json:"text2"`
	Similarity float64 `json:"similarity"`

	// LineA and LineB are the one-based source line numbers, 0 when the
	// pair has no line on that side.
	LineA int `json:"line_a,omitempty"`
	LineB int `json:"line_b,omitempty"`
}

// Report is the outcome of comparing two documents
type Report struct {
	Records []DiffRecord `json:"differences"`

	// Aggregate is the mean similarity of the pairs under the threshold,
	// as a percentage. It is exactly 100 when no pair is under it.
	Aggregate float64 `json:"aggregate"`

	LinesA    int     `json:"lines_a"`
	LinesB    int     `json:"lines_b"`
	Threshold float64 `json:"threshold"`
	Mode      Mode    `json:"mode"`
}

// Identical reports whether no pair fell under the threshold
func (r Report) Identical() bool {
	return r.Aggregate == 100
}

// Compare splits both texts into lines and compares them
func Compare(textA, textB string, opts Options) Report {
	return CompareLines(SplitLines(textA), SplitLines(textB), opts)
}

// CompareLines compares two already split line sequences
func CompareLines(a, b []string, opts Options) Report {
	if math.IsNaN(opts.Threshold) {
		opts.Threshold = DefaultThreshold
	}
	if opts.Mode == "" {
		opts.Mode = ModeIndexAligned
	}

	var pairs []linePair
	if opts.Mode == ModeAligned {
		pairs = alignedPairs(a, b)
	} else {
		pairs = indexPairs(a, b)
	}

	report := Report{
		LinesA:    len(a),
		LinesB:    len(b),
		Threshold: opts.Threshold,
		Mode:      opts.Mode,
	}

	sum, below := 0.0, 0
	for n, p := range pairs {
		score := Similarity(p.textA, p.textB)
		under := score < opts.Threshold
		if under {
			sum += score
			below++
		}
		if under || opts.IncludeAll {
			report.Records = append(report.Records, DiffRecord{
				LineNumber: n + 1,
				TextA:      p.textA,
				TextB:      p.textB,
				Similarity: score,
				LineA:      p.lineA,
				LineB:      p.lineB,
			})
		}
	}

	report.Aggregate = 100
	if below > 0 {
		report.Aggregate = sum / float64(below) * 100
	}
	return report
}

type linePair struct {
	textA, textB string
	lineA, lineB int
}

func indexPairs(a, b []string) []linePair {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	pairs := make([]linePair, n)
	for i := 0; i < n; i++ {
		if i < len(a) {
			pairs[i].textA = a[i]
			pairs[i].lineA = i + 1
		}
		if i < len(b) {
			pairs[i].textB = b[i]
			pairs[i].lineB = i + 1
		}
	}
	return pairs
}

// alignedPairs walks the matcher's opcodes. Equal blocks pair one to one,
// replace blocks pair index-wise inside the block, and inserts or deletes
// pair with an empty line. Autojunk is off so frequent lines such as table
// rules keep matching in documents over 200 lines.
func alignedPairs(a, b []string) []linePair {
	matcher := difflib.NewMatcherWithJunk(a, b, false, nil)
	var pairs []linePair
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'e', 'r':
			span := op.I2 - op.I1
			if op.J2-op.J1 > span {
				span = op.J2 - op.J1
			}
			for k := 0; k < span; k++ {
				var p linePair
				if i := op.I1 + k; i < op.I2 {
					p.textA, p.lineA = a[i], i+1
				}
				if j := op.J1 + k; j < op.J2 {
					p.textB, p.lineB = b[j], j+1
				}
				pairs = append(pairs, p)
			}
		case 'd':
			for i := op.I1; i < op.I2; i++ {
				pairs = append(pairs, linePair{textA: a[i], lineA: i + 1})
			}
		case 'i':
			for j := op.J1; j < op.J2; j++ {
				pairs = append(pairs, linePair{textB: b[j], lineB: j + 1})
			}
		}
	}
	return pairs
}
