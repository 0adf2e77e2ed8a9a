package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/a3tai/mcp-pdf-layout/internal/layout"
	"github.com/a3tai/mcp-pdf-layout/internal/ocr"
	"github.com/a3tai/mcp-pdf-layout/internal/pdf/extract"
	"github.com/spf13/pflag"
)

// options holds the parsed command line
type options struct {
	diagnostic bool
	format     string
	tolerance  float64
	bottomUp   bool
	hocrPath   string
	timeout    time.Duration
	help       bool
}

func main() {
	opts, args, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage(os.Stderr)
		os.Exit(2)
	}

	if opts.help {
		printHelp(os.Stdout)
		return
	}

	if len(args) == 0 {
		fmt.Fprintf(os.Stderr, "Error: PDF file path required\n\n")
		printUsage(os.Stderr)
		os.Exit(1)
	}

	pdfPath := args[0]
	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found: %s\n", pdfPath)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	result, err := analyze(ctx, pdfPath, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing lines: %v\n", err)
		os.Exit(1)
	}

	if err := outputResults(os.Stdout, result, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, []string, error) {
	var opts options
	fs := pflag.NewFlagSet("pdf_layout_lines", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&opts.diagnostic, "diagnostic", false, "Show every fragment with its position and style")
	fs.StringVar(&opts.format, "format", "text", "Output format: text, json")
	fs.Float64Var(&opts.tolerance, "tolerance", layout.DefaultLineTolerance, "Baseline distance in points that still counts as one line")
	fs.BoolVar(&opts.bottomUp, "bottom-up", false, "Order lines bottom to top")
	fs.StringVar(&opts.hocrPath, "hocr", "", "hOCR file to use instead of the PDF text layer")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "Extraction timeout")
	fs.BoolVar(&opts.help, "help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return opts, nil, err
	}
	if opts.format != "text" && opts.format != "json" {
		return opts, nil, fmt.Errorf("unsupported output format: %s", opts.format)
	}
	return opts, fs.Args(), nil
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "PDF Layout Lines - Show how text fragments of a PDF cluster into lines")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use this to tune the line tolerance before converting a document to a table,")
	fmt.Fprintln(w, "or to see why two runs of text did or did not end up on the same row.")
	fmt.Fprintln(w)
	printUsage(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprintln(w, "  --diagnostic   Show every fragment with its position and style")
	fmt.Fprintln(w, "  --format       Output format: text (default), json")
	fmt.Fprintln(w, "  --tolerance    Baseline tolerance in points (default 0.1)")
	fmt.Fprintln(w, "  --bottom-up    Order lines bottom to top")
	fmt.Fprintln(w, "  --hocr         Read fragments from an hOCR file (for scanned PDFs)")
	fmt.Fprintln(w, "  --timeout      Extraction timeout (default 30s)")
	fmt.Fprintln(w, "  --help         Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  pdf_layout_lines report.pdf")
	fmt.Fprintln(w, "  pdf_layout_lines --tolerance 2 --diagnostic scan.pdf")
	fmt.Fprintln(w, "  pdf_layout_lines --hocr scan.hocr --format json scan.pdf")
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  pdf_layout_lines [OPTIONS] <pdf_file>")
}

// LineAnalysisResult is the clustering outcome for a whole document
type LineAnalysisResult struct {
	FilePath     string         `json:"file_path"`
	Source       string         `json:"source"`
	Tolerance    float64        `json:"tolerance"`
	TopDown      bool           `json:"top_down"`
	Pages        []PageAnalysis `json:"pages"`
	AnalysisTime string         `json:"analysis_time"`
}

// PageAnalysis lists the lines of one page
type PageAnalysis struct {
	Number    int                 `json:"number"`
	Geometry  layout.PageGeometry `json:"geometry"`
	Fragments int                 `json:"fragments"`
	Lines     []LineInfo          `json:"lines"`
}

// LineInfo is one clustered line
type LineInfo struct {
	YKey      float64               `json:"y_key"`
	Text      string                `json:"text"`
	Fragments []layout.TextFragment `json:"fragments,omitempty"`
}

func analyze(ctx context.Context, pdfPath string, opts options) (*LineAnalysisResult, error) {
	start := time.Now()

	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	geometry := extract.NewPDFCPUGeometry()
	geoms, err := geometry.PageGeometries(ctx, absPath)
	if err != nil {
		return nil, err
	}

	var pages [][]layout.TextFragment
	source := string(extract.LibraryLedongthuc)
	if opts.hocrPath != "" {
		data, err := os.ReadFile(opts.hocrPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read hOCR file: %w", err)
		}
		doc, err := ocr.Parse(data)
		if err != nil {
			return nil, err
		}
		if pages, err = doc.Fragments(geoms); err != nil {
			return nil, err
		}
		source = string(extract.LibraryHOCR)
	} else {
		doc, err := extract.NewLedongthucExtractor(geometry).Extract(ctx, absPath)
		if err != nil {
			return nil, err
		}
		pages = doc.FragmentsByPage()
	}

	clusterOpts := layout.ClusterOptions{Tolerance: opts.tolerance, TopDown: !opts.bottomUp}
	result := &LineAnalysisResult{
		FilePath:  absPath,
		Source:    source,
		Tolerance: opts.tolerance,
		TopDown:   clusterOpts.TopDown,
	}
	for i, frags := range pages {
		page := PageAnalysis{Number: i + 1, Fragments: len(frags)}
		if i < len(geoms) {
			page.Geometry = geoms[i]
		}
		for _, line := range layout.Cluster(frags, clusterOpts) {
			info := LineInfo{YKey: line.YKey, Text: line.Text()}
			if opts.diagnostic {
				info.Fragments = line.Fragments
			}
			page.Lines = append(page.Lines, info)
		}
		result.Pages = append(result.Pages, page)
	}
	result.AnalysisTime = time.Since(start).String()

	return result, nil
}

func outputResults(w io.Writer, result *LineAnalysisResult, opts options) error {
	switch opts.format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	default:
		return outputText(w, result)
	}
}

func outputText(w io.Writer, result *LineAnalysisResult) error {
	fmt.Fprintf(w, "📄 %s (source: %s)\n", result.FilePath, result.Source)
	fmt.Fprintf(w, "Tolerance: %g pt, top-down: %t\n", result.Tolerance, result.TopDown)

	total := 0
	for _, page := range result.Pages {
		fmt.Fprintf(w, "\nPage %d (%.2f x %.2f pt, rotation %d°): %d fragments, %d lines\n",
			page.Number, page.Geometry.WidthPt, page.Geometry.HeightPt, page.Geometry.RotationDeg,
			page.Fragments, len(page.Lines))
		for _, line := range page.Lines {
			fmt.Fprintf(w, "  y=%-9.2f %s\n", line.YKey, line.Text)
			for _, f := range line.Fragments {
				style := ""
				if f.Bold {
					style = " bold"
				}
				fmt.Fprintf(w, "      x=%-8.2f y=%-8.2f %gpt%s %q\n", f.X, f.Y, f.FontSizePt, style, f.Text)
			}
		}
		total += len(page.Lines)
	}

	if total == 0 {
		fmt.Fprintln(w, "\n⚠️  No text lines found")
		fmt.Fprintln(w, "• The PDF may be scanned; run OCR with hOCR output and pass it with --hocr")
	}
	return nil
}
