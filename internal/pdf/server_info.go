package pdf

import (
	"context"
	"fmt"
	"time"
)

// directoryScanLimit caps how many files server info lists
const directoryScanLimit = 100

// ServerInfo returns server capabilities, defaults and the PDFs available in
// the configured directory. A slow directory scan is abandoned after five
// seconds and reported as empty.
func (s *Service) ServerInfo(ctx context.Context, _ PDFServerInfoRequest, serverName, version string) (*PDFServerInfoResult, error) {
	scanCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	directoryContents, err := s.ListPDFs(scanCtx, s.sandbox.InputDir(), directoryScanLimit)
	if err != nil {
		directoryContents = []FileInfo{}
	}

	table := s.opts.Table
	return &PDFServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		DefaultDirectory:  s.sandbox.InputDir(),
		OutputDirectory:   s.sandbox.OutputDir(),
		MaxFileSize:       s.opts.MaxFileSize,
		AvailableTools:    availableTools(),
		DirectoryContents: directoryContents,
		UsageGuidance:     s.usageGuidance(),
		Defaults: Defaults{
			LineTolerance:   table.Cluster.Tolerance,
			TopDown:         table.Cluster.TopDown,
			DefaultFontSize: table.DefaultFontSizePt,
			DefaultBold:     table.DefaultBold,
			DiffThreshold:   s.opts.DiffThreshold,
			CropMargin:      s.opts.CropMargin,
		},
		Cache: s.CacheStats(),
	}, nil
}

func availableTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        "layout_project",
			Description: "Project preview (screen) coordinates into PDF page coordinates",
			Usage: "Use this tool to see where a point or selection made on a rendered page lands in " +
				"PDF space, or (kind=inverse) where a PDF point appears on the preview.",
			Parameters: "preview_width, preview_height (required); page_width/page_height/rotation or " +
				"path+page; x, y; width/height for rectangles; anchor, content_width, content_height, margin",
		},
		{
			Name:        "pdf_page_geometry",
			Description: "Report the size in points and rotation of every page",
			Usage:       "Use this tool before projecting so previews match the visible page box.",
			Parameters:  "path (required)",
		},
		{
			Name:        "pdf_crop",
			Description: "Crop one page to a region selected on a preview",
			Usage:       "The selection is projected into page space and grown by the crop margin.",
			Parameters: "path, page, preview_width, preview_height, x, y, width, height (required); " +
				"margin, output_path (optional)",
		},
		{
			Name:        "pdf_stamp",
			Description: "Place text at a point selected on a preview",
			Usage:       "Use anchor=center when the point marks the middle of the text.",
			Parameters: "path, text, preview_width, preview_height, x, y (required); pages, anchor, " +
				"font_size, opacity, content_width, output_path (optional)",
		},
		{
			Name:        "pdf_redact",
			Description: "Black out areas selected on a preview of one page",
			Usage:       "All areas share one projection; the boxes are drawn over the page content.",
			Parameters:  "path, page, preview_width, preview_height, rects (required); output_path (optional)",
		},
		{
			Name:        "pdf_stamp_image",
			Description: "Place a PNG or JPEG image at a point selected on a preview",
			Usage:       "The point marks the image centre unless anchor=top_left; width scales the image.",
			Parameters: "path, image_path, preview_width, preview_height, x, y (required); width, pages, " +
				"anchor, opacity, output_path (optional)",
		},
		{
			Name:        "pdf_rotate",
			Description: "Rotate pages by a multiple of 90 degrees",
			Usage:       "Changes the page /Rotate entry; page content is not rewritten.",
			Parameters:  "path, degrees (required); pages, output_path (optional)",
		},
		{
			Name:        "pdf_to_table",
			Description: "Convert each visual text line into one spreadsheet row",
			Usage: "Rows keep the font size and weight of the line's first run. Scanned PDFs need " +
				"hOCR output, either via hocr_path or a .hocr file next to the PDF.",
			Parameters: "path (required); hocr_path, output_path, line_tolerance, bottom_up (optional)",
		},
		{
			Name:        "pdf_compare",
			Description: "Compare the text of two PDFs line by line",
			Usage:       "Reports line pairs whose similarity is under the threshold.",
			Parameters:  "path_a, path_b (required); threshold, include_all, mode (index|aligned)",
		},
		{
			Name:        "text_compare",
			Description: "Compare two texts line by line",
			Usage:       "Same report as pdf_compare for text you already have.",
			Parameters:  "text_a, text_b (required); threshold, include_all, mode (index|aligned)",
		},
		{
			Name:        "pdf_server_info",
			Description: "Get server information, defaults and available PDFs",
			Usage:       "Call this first to discover files and the layout defaults in effect.",
			Parameters:  "none",
		},
	}
}

func (s *Service) usageGuidance() string {
	return `PDF Layout MCP Server Usage Guide:

1. DISCOVER:
   - Use 'pdf_server_info' to list PDFs and the defaults in effect
   - Use 'pdf_page_geometry' to learn each page's size and rotation

2. COORDINATES:
   - Previews use pixels with the origin at the top-left
   - PDF pages use points with the origin at the bottom-left
   - Pass the preview size you rendered; projection handles scale and rotation

3. EDIT:
   - 'pdf_crop' crops one page to a preview selection
   - 'pdf_stamp' places text at a preview point
   - 'pdf_stamp_image' places a signature or logo image at a preview point
   - 'pdf_redact' blacks out preview selections on a page
   - 'pdf_rotate' rotates pages

4. EXTRACT AND COMPARE:
   - 'pdf_to_table' writes one .xlsx row per visual line
   - 'pdf_compare' and 'text_compare' report lines that changed

IMPORTANT NOTES:
- Inputs must be inside ` + s.sandbox.InputDir() + `
- Outputs are written inside ` + s.sandbox.OutputDir() + `
- The server can handle files up to ` + fmt.Sprintf("%d", s.opts.MaxFileSize/(1024*1024)) + `MB
- Comparison pairs lines by index: an inserted line shifts every later pair unless mode=aligned`
}
