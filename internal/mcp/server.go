package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/a3tai/mcp-pdf-layout/internal/compare"
	"github.com/a3tai/mcp-pdf-layout/internal/config"
	"github.com/a3tai/mcp-pdf-layout/internal/descriptions"
	"github.com/a3tai/mcp-pdf-layout/internal/layout"
	"github.com/a3tai/mcp-pdf-layout/internal/pdf"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// shutdownTimeout bounds how long server mode waits for open sessions
const shutdownTimeout = 5 * time.Second

// maxListedRows caps how many rows pdf_to_table prints inline
const maxListedRows = 50

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
		server.WithRecovery(),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	layoutProjectTool := mcp.NewTool(
		"layout_project",
		mcp.WithDescription(descriptions.LayoutProjectDescription),
		mcp.WithString("kind",
			mcp.Description("point, rect or inverse (default: rect when width/height are given, else point)"),
			mcp.Enum("point", "rect", "inverse"),
		),
		mcp.WithNumber("preview_width", mcp.Required(), mcp.Description("Width of the rendered preview in pixels")),
		mcp.WithNumber("preview_height", mcp.Required(), mcp.Description("Height of the rendered preview in pixels")),
		mcp.WithNumber("page_width", mcp.Description("Page width in points (ignored when path is set)")),
		mcp.WithNumber("page_height", mcp.Description("Page height in points (ignored when path is set)")),
		mcp.WithNumber("rotation", mcp.Description("Page rotation in degrees, a multiple of 90")),
		mcp.WithString("path", mcp.Description("PDF whose page geometry should be used")),
		mcp.WithNumber("page", mcp.Description("1-based page number when path is set (default 1)")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("X coordinate")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Y coordinate")),
		mcp.WithNumber("width", mcp.Description("Selection width in preview pixels")),
		mcp.WithNumber("height", mcp.Description("Selection height in preview pixels")),
		mcp.WithNumber("content_width", mcp.Description("Width of placed content in points")),
		mcp.WithNumber("content_height", mcp.Description("Height of placed content in points")),
		mcp.WithString("anchor", mcp.Description("top_left or center"), mcp.Enum("top_left", "center")),
		mcp.WithNumber("margin", mcp.Description("Pixels added on every side of a selection (default from server config)")),
	)
	s.mcpServer.AddTool(layoutProjectTool, s.handleLayoutProject)

	pageGeometryTool := mcp.NewTool(
		"pdf_page_geometry",
		mcp.WithDescription(descriptions.PDFPageGeometryDescription),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the PDF file")),
	)
	s.mcpServer.AddTool(pageGeometryTool, s.handlePDFPageGeometry)

	cropTool := mcp.NewTool(
		"pdf_crop",
		mcp.WithDescription(descriptions.PDFCropDescription),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the PDF file")),
		mcp.WithNumber("page", mcp.Required(), mcp.Description("1-based page number")),
		mcp.WithNumber("preview_width", mcp.Required(), mcp.Description("Width of the rendered preview in pixels")),
		mcp.WithNumber("preview_height", mcp.Required(), mcp.Description("Height of the rendered preview in pixels")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Selection left edge in pixels")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Selection top edge in pixels")),
		mcp.WithNumber("width", mcp.Required(), mcp.Description("Selection width in pixels")),
		mcp.WithNumber("height", mcp.Required(), mcp.Description("Selection height in pixels")),
		mcp.WithNumber("margin", mcp.Description("Pixels added on every side (default from server config)")),
		mcp.WithString("output_path", mcp.Description("Where to write the cropped PDF")),
	)
	s.mcpServer.AddTool(cropTool, s.handlePDFCrop)

	stampTool := mcp.NewTool(
		"pdf_stamp",
		mcp.WithDescription(descriptions.PDFStampDescription),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the PDF file")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to place")),
		mcp.WithNumber("preview_width", mcp.Required(), mcp.Description("Width of the rendered preview in pixels")),
		mcp.WithNumber("preview_height", mcp.Required(), mcp.Description("Height of the rendered preview in pixels")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("X coordinate on the preview")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Y coordinate on the preview")),
		mcp.WithString("pages", mcp.Description("Pages to stamp, e.g. \"1,3-5\" or \"all\" (default all)")),
		mcp.WithString("anchor", mcp.Description("top_left or center"), mcp.Enum("top_left", "center")),
		mcp.WithNumber("font_size", mcp.Description("Font size in points")),
		mcp.WithNumber("opacity", mcp.Description("Opacity between 0 and 1")),
		mcp.WithNumber("content_width", mcp.Description("Text width in points, used with anchor=center")),
		mcp.WithString("output_path", mcp.Description("Where to write the stamped PDF")),
	)
	s.mcpServer.AddTool(stampTool, s.handlePDFStamp)

	redactTool := mcp.NewTool(
		"pdf_redact",
		mcp.WithDescription(descriptions.PDFRedactDescription),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the PDF file")),
		mcp.WithNumber("page", mcp.Required(), mcp.Description("1-based page number")),
		mcp.WithNumber("preview_width", mcp.Required(), mcp.Description("Width of the rendered preview in pixels")),
		mcp.WithNumber("preview_height", mcp.Required(), mcp.Description("Height of the rendered preview in pixels")),
		mcp.WithArray("rects", mcp.Required(),
			mcp.Description("Areas to black out, each {x, y, width, height} in preview pixels"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"x":      map[string]any{"type": "number"},
					"y":      map[string]any{"type": "number"},
					"width":  map[string]any{"type": "number"},
					"height": map[string]any{"type": "number"},
				},
				"required": []string{"x", "y", "width", "height"},
			}),
		),
		mcp.WithString("output_path", mcp.Description("Where to write the redacted PDF")),
	)
	s.mcpServer.AddTool(redactTool, s.handlePDFRedact)

	stampImageTool := mcp.NewTool(
		"pdf_stamp_image",
		mcp.WithDescription(descriptions.PDFStampImageDescription),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the PDF file")),
		mcp.WithString("image_path", mcp.Required(), mcp.Description("PNG or JPEG image to place")),
		mcp.WithNumber("preview_width", mcp.Required(), mcp.Description("Width of the rendered preview in pixels")),
		mcp.WithNumber("preview_height", mcp.Required(), mcp.Description("Height of the rendered preview in pixels")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("X coordinate on the preview")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Y coordinate on the preview")),
		mcp.WithNumber("width", mcp.Description("Image width in points (default one point per pixel)")),
		mcp.WithString("pages", mcp.Description("Pages to stamp, e.g. \"1,3-5\" or \"all\" (default all)")),
		mcp.WithString("anchor", mcp.Description("center (default) or top_left"), mcp.Enum("center", "top_left")),
		mcp.WithNumber("opacity", mcp.Description("Opacity between 0 and 1")),
		mcp.WithString("output_path", mcp.Description("Where to write the stamped PDF")),
	)
	s.mcpServer.AddTool(stampImageTool, s.handlePDFStampImage)

	rotateTool := mcp.NewTool(
		"pdf_rotate",
		mcp.WithDescription(descriptions.PDFRotateDescription),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the PDF file")),
		mcp.WithNumber("degrees", mcp.Required(), mcp.Description("Clockwise rotation, a multiple of 90")),
		mcp.WithString("pages", mcp.Description("Pages to rotate, e.g. \"2-4\" (default all)")),
		mcp.WithString("output_path", mcp.Description("Where to write the rotated PDF")),
	)
	s.mcpServer.AddTool(rotateTool, s.handlePDFRotate)

	toTableTool := mcp.NewTool(
		"pdf_to_table",
		mcp.WithDescription(descriptions.PDFToTableDescription),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the PDF file")),
		mcp.WithString("hocr_path", mcp.Description("hOCR file to use when the PDF has no text layer")),
		mcp.WithString("output_path", mcp.Description("Where to write the .xlsx file")),
		mcp.WithNumber("line_tolerance", mcp.Description("Baseline distance in points that still counts as one line")),
		mcp.WithBoolean("bottom_up", mcp.Description("Order lines bottom to top")),
	)
	s.mcpServer.AddTool(toTableTool, s.handlePDFToTable)

	compareTool := mcp.NewTool(
		"pdf_compare",
		mcp.WithDescription(descriptions.PDFCompareDescription),
		mcp.WithString("path_a", mcp.Required(), mcp.Description("Path to the first PDF")),
		mcp.WithString("path_b", mcp.Required(), mcp.Description("Path to the second PDF")),
		mcp.WithNumber("threshold", mcp.Description("Similarity under which a pair is reported, 0-1 (default from server config)")),
		mcp.WithBoolean("include_all", mcp.Description("Report every pair")),
		mcp.WithString("mode", mcp.Description("index or aligned"), mcp.Enum("index", "aligned")),
	)
	s.mcpServer.AddTool(compareTool, s.handlePDFCompare)

	textCompareTool := mcp.NewTool(
		"text_compare",
		mcp.WithDescription(descriptions.TextCompareDescription),
		mcp.WithString("text_a", mcp.Required(), mcp.Description("First text")),
		mcp.WithString("text_b", mcp.Required(), mcp.Description("Second text")),
		mcp.WithNumber("threshold", mcp.Description("Similarity under which a pair is reported, 0-1 (default from server config)")),
		mcp.WithBoolean("include_all", mcp.Description("Report every pair")),
		mcp.WithString("mode", mcp.Description("index or aligned"), mcp.Enum("index", "aligned")),
	)
	s.mcpServer.AddTool(textCompareTool, s.handleTextCompare)

	pdfServerInfoTool := mcp.NewTool(
		"pdf_server_info",
		mcp.WithDescription(descriptions.PDFServerInfoDescription),
	)
	s.mcpServer.AddTool(pdfServerInfoTool, s.handlePDFServerInfo)
}

// Handler functions
func (s *Server) handleLayoutProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	previewWidth, err := request.RequireFloat("preview_width")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	previewHeight, err := request.RequireFloat("preview_height")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.LayoutProjectRequest{
		Kind:          request.GetString("kind", ""),
		PreviewWidth:  previewWidth,
		PreviewHeight: previewHeight,
		PageWidth:     request.GetFloat("page_width", 0),
		PageHeight:    request.GetFloat("page_height", 0),
		Rotation:      request.GetInt("rotation", 0),
		Path:          request.GetString("path", ""),
		Page:          request.GetInt("page", 0),
		X:             request.GetFloat("x", 0),
		Y:             request.GetFloat("y", 0),
		Width:         request.GetFloat("width", 0),
		Height:        request.GetFloat("height", 0),
		ContentWidth:  request.GetFloat("content_width", 0),
		ContentHeight: request.GetFloat("content_height", 0),
		Anchor:        request.GetString("anchor", ""),
		Margin:        optionalFloat(request, "margin"),
	}

	result, err := s.pdfService.ProjectRegion(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatLayoutProjectResult(result)), nil
}

func (s *Server) handlePDFPageGeometry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.PageGeometry(ctx, pdf.PDFPageGeometryRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Page geometry for: %s\n", result.Path)
	text += fmt.Sprintf("Pages: %d\n\n", len(result.Pages))
	for _, p := range result.Pages {
		text += fmt.Sprintf("%d. %.2f x %.2f pt, rotation %d°\n", p.Number, p.WidthPt, p.HeightPt, p.RotationDeg)
	}

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handlePDFCrop(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := request.RequireInt("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.PDFCropRequest{
		Path:          path,
		OutputPath:    request.GetString("output_path", ""),
		Page:          page,
		PreviewWidth:  request.GetFloat("preview_width", 0),
		PreviewHeight: request.GetFloat("preview_height", 0),
		X:             request.GetFloat("x", 0),
		Y:             request.GetFloat("y", 0),
		Width:         request.GetFloat("width", 0),
		Height:        request.GetFloat("height", 0),
		Margin:        optionalFloat(request, "margin"),
	}

	result, err := s.pdfService.CropPage(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("✂️  Cropped page %d of %s\n", result.Page, result.Path)
	text += fmt.Sprintf("Output: %s\n", result.OutputPath)
	text += fmt.Sprintf("Crop box (pt): x=%.2f y=%.2f width=%.2f height=%.2f\n",
		result.Box.X, result.Box.Y, result.Box.Width, result.Box.Height)
	text += fmt.Sprintf("Margin: %g px\n", result.Margin)

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handlePDFStamp(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stampText, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.PDFStampRequest{
		Path:          path,
		OutputPath:    request.GetString("output_path", ""),
		Pages:         request.GetString("pages", ""),
		Text:          stampText,
		PreviewWidth:  request.GetFloat("preview_width", 0),
		PreviewHeight: request.GetFloat("preview_height", 0),
		X:             request.GetFloat("x", 0),
		Y:             request.GetFloat("y", 0),
		Anchor:        request.GetString("anchor", ""),
		FontSize:      request.GetFloat("font_size", 0),
		Opacity:       request.GetFloat("opacity", 0),
		ContentWidth:  request.GetFloat("content_width", 0),
	}

	result, err := s.pdfService.StampPage(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("🖋️  Stamped %q onto %s\n", stampText, result.Path)
	text += fmt.Sprintf("Output: %s\n", result.OutputPath)
	text += fmt.Sprintf("Pages: %s\n", formatPages(result.Pages))
	text += fmt.Sprintf("Origin (pt): x=%.2f y=%.2f\n", result.Origin.X, result.Origin.Y)

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handlePDFRedact(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := request.RequireInt("page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rects, err := parseRects(request.GetArguments()["rects"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.RedactPage(ctx, pdf.PDFRedactRequest{
		Path:          path,
		OutputPath:    request.GetString("output_path", ""),
		Page:          page,
		PreviewWidth:  request.GetFloat("preview_width", 0),
		PreviewHeight: request.GetFloat("preview_height", 0),
		Rects:         rects,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("⬛ Redacted %d area(s) on page %d of %s\n", len(result.Boxes), result.Page, result.Path)
	text += fmt.Sprintf("Output: %s\n", result.OutputPath)
	for i, b := range result.Boxes {
		text += fmt.Sprintf("  %d. x=%.2f y=%.2f width=%.2f height=%.2f\n", i+1, b.X, b.Y, b.Width, b.Height)
	}

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handlePDFStampImage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	imagePath, err := request.RequireString("image_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.StampImagePage(ctx, pdf.PDFStampImageRequest{
		Path:          path,
		ImagePath:     imagePath,
		OutputPath:    request.GetString("output_path", ""),
		Pages:         request.GetString("pages", ""),
		PreviewWidth:  request.GetFloat("preview_width", 0),
		PreviewHeight: request.GetFloat("preview_height", 0),
		X:             request.GetFloat("x", 0),
		Y:             request.GetFloat("y", 0),
		Width:         request.GetFloat("width", 0),
		Anchor:        request.GetString("anchor", ""),
		Opacity:       request.GetFloat("opacity", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("🖼️  Placed %s onto %s\n", imagePath, result.Path)
	text += fmt.Sprintf("Output: %s\n", result.OutputPath)
	text += fmt.Sprintf("Pages: %s\n", formatPages(result.Pages))
	text += fmt.Sprintf("Origin (pt): x=%.2f y=%.2f\n", result.Origin.X, result.Origin.Y)
	text += fmt.Sprintf("Size (pt): %.2f x %.2f\n", result.Size.Width, result.Size.Height)

	return mcp.NewToolResultText(text), nil
}

// parseRects accepts the rects argument either as a JSON array or as a
// string holding one
func parseRects(arg any) ([]layout.Rect, error) {
	if arg == nil {
		return nil, errors.New("required argument \"rects\" not found")
	}
	data, ok := arg.(string)
	if !ok {
		raw, err := json.Marshal(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid rects: %w", err)
		}
		data = string(raw)
	}

	var rects []layout.Rect
	if err := json.Unmarshal([]byte(data), &rects); err != nil {
		return nil, fmt.Errorf("rects must be an array of {x, y, width, height}: %w", err)
	}
	if len(rects) == 0 {
		return nil, errors.New("rects must contain at least one area")
	}
	return rects, nil
}

func (s *Server) handlePDFRotate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	degrees, err := request.RequireInt("degrees")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.RotatePages(ctx, pdf.PDFRotateRequest{
		Path:       path,
		OutputPath: request.GetString("output_path", ""),
		Pages:      request.GetString("pages", ""),
		Degrees:    degrees,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("🔄 Rotated %s by %d°\n", result.Path, result.Degrees)
	text += fmt.Sprintf("Output: %s\n", result.OutputPath)
	text += fmt.Sprintf("Pages: %s\n", formatPages(result.Pages))

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handlePDFToTable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pdf.PDFToTableRequest{
		Path:          path,
		HOCRPath:      request.GetString("hocr_path", ""),
		OutputPath:    request.GetString("output_path", ""),
		LineTolerance: request.GetFloat("line_tolerance", 0),
		BottomUp:      request.GetBool("bottom_up", false),
	}

	result, err := s.pdfService.ExportTable(ctx, req)
	if err != nil {
		if pdf.IsNoTextLayer(err) {
			return mcp.NewToolResultError(err.Error() +
				"\n🔍 RECOMMENDATION: run OCR with hOCR output and pass it as hocr_path," +
				" or place a .hocr file with the same name next to the PDF."), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatPDFToTableResult(result)), nil
}

func (s *Server) handlePDFCompare(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pathA, err := request.RequireString("path_a")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pathB, err := request.RequireString("path_b")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.ComparePDFs(ctx, pdf.PDFCompareRequest{
		PathA:      pathA,
		PathB:      pathB,
		Threshold:  optionalFloat(request, "threshold"),
		IncludeAll: request.GetBool("include_all", false),
		Mode:       request.GetString("mode", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("A: %s (%s)\nB: %s (%s)\n", result.PathA, result.SourceA, result.PathB, result.SourceB)
	text += s.formatReport(&result.Report)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleTextCompare(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	textA, err := request.RequireString("text_a")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	textB, err := request.RequireString("text_b")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := s.pdfService.CompareText(pdf.TextCompareRequest{
		TextA:      textA,
		TextB:      textB,
		Threshold:  optionalFloat(request, "threshold"),
		IncludeAll: request.GetBool("include_all", false),
		Mode:       request.GetString("mode", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatReport(report)), nil
}

func (s *Server) handlePDFServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := pdf.PDFServerInfoRequest{}
	result, err := s.pdfService.ServerInfo(ctx, req, s.config.ServerName, s.config.Version)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := s.formatPDFServerInfoResult(result)
	return mcp.NewToolResultText(responseText), nil
}

// optionalFloat returns nil when the argument was not supplied, so an
// explicit zero stays distinguishable from the server default
func optionalFloat(request mcp.CallToolRequest, key string) *float64 {
	if _, ok := request.GetArguments()[key]; !ok {
		return nil
	}
	v := request.GetFloat(key, 0)
	return &v
}

// Formatting methods
func (s *Server) formatLayoutProjectResult(result *pdf.LayoutProjectResult) string {
	text := fmt.Sprintf("📐 Projection (%s)\n", result.Kind)
	text += fmt.Sprintf("Page: %.2f x %.2f pt, rotation %d°\n",
		result.Page.WidthPt, result.Page.HeightPt, result.Page.RotationDeg)
	text += fmt.Sprintf("Scale: %.4f pt/px horizontal, %.4f pt/px vertical\n", result.ScaleX, result.ScaleY)
	if result.Origin != (layout.Point{}) {
		text += fmt.Sprintf("Page box origin (pt): x=%.2f y=%.2f\n", result.Origin.X, result.Origin.Y)
	}

	switch {
	case result.Rect != nil:
		text += fmt.Sprintf("Rectangle (pt): x=%.2f y=%.2f width=%.2f height=%.2f\n",
			result.Rect.X, result.Rect.Y, result.Rect.Width, result.Rect.Height)
	case result.Point != nil && result.Kind == "inverse":
		text += fmt.Sprintf("Preview point (px): x=%.2f y=%.2f\n", result.Point.X, result.Point.Y)
	case result.Point != nil:
		text += fmt.Sprintf("Page point (pt): x=%.2f y=%.2f\n", result.Point.X, result.Point.Y)
	}

	return text
}

func (s *Server) formatPDFToTableResult(result *pdf.PDFToTableResult) string {
	text := fmt.Sprintf("📊 Table export for: %s\n", result.Path)
	text += fmt.Sprintf("Output: %s\n", result.OutputPath)
	text += fmt.Sprintf("Source: %s\n", result.Source)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	text += fmt.Sprintf("Rows: %d\n", result.RowCount)

	if len(result.Warnings) > 0 {
		text += fmt.Sprintf("\n⚠️  %d style warning(s):\n", len(result.Warnings))
		for _, w := range result.Warnings {
			text += fmt.Sprintf("   page %d row %d: %s\n", w.Page, w.Row, w.Message)
		}
	}

	if len(result.Rows) > 0 {
		text += "\nRows:\n"
		for i, row := range result.Rows {
			if i >= maxListedRows {
				text += fmt.Sprintf("   ... and %d more rows\n", len(result.Rows)-maxListedRows)
				break
			}
			style := ""
			if row.Bold {
				style = ", bold"
			}
			text += fmt.Sprintf("%d. [%gpt%s] %s\n", i+1, row.FontSizePt, style, row.Text)
		}
	}

	return text
}

func (s *Server) formatReport(report *compare.Report) string {
	text := fmt.Sprintf("Lines: %d vs %d (mode %s, threshold %.2f)\n",
		report.LinesA, report.LinesB, report.Mode, report.Threshold)

	if report.Identical() && len(report.Records) == 0 {
		text += "✅ No differences found\n"
		return text
	}

	text += fmt.Sprintf("Aggregate similarity: %.2f%%\n", report.Aggregate)
	text += fmt.Sprintf("\nDifferences (%d):\n", len(report.Records))
	for _, r := range report.Records {
		text += fmt.Sprintf("\n• Line %d (similarity %.3f)\n", r.LineNumber, r.Similarity)
		text += fmt.Sprintf("  A: %s\n", r.TextA)
		text += fmt.Sprintf("  B: %s\n", r.TextB)
	}

	return text
}

func (s *Server) formatPDFServerInfoResult(result *pdf.PDFServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Default Directory: %s\n", result.DefaultDirectory)
	text += fmt.Sprintf("📤 Output Directory: %s\n", result.OutputDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n\n", result.MaxFileSize/(1024*1024))

	if len(result.DirectoryContents) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d PDF files found):\n", len(result.DirectoryContents))
		for i, file := range result.DirectoryContents {
			if i >= 10 { // Limit to first 10 files for readability
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryContents)-10)
				break
			}
			ocr := ""
			if file.HasHOCR {
				ocr = ", hOCR available"
			}
			text += fmt.Sprintf("   %d. %s (%d bytes%s)\n", i+1, file.Name, file.Size, ocr)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No PDF files found in default directory\n\n"
	}

	d := result.Defaults
	text += "⚙️  Defaults:\n"
	text += fmt.Sprintf("  Line tolerance: %g pt (top-down: %t)\n", d.LineTolerance, d.TopDown)
	text += fmt.Sprintf("  Fallback style: %g pt, bold %t\n", d.DefaultFontSize, d.DefaultBold)
	text += fmt.Sprintf("  Diff threshold: %g\n", d.DiffThreshold)
	text += fmt.Sprintf("  Crop margin: %g px\n", d.CropMargin)
	text += fmt.Sprintf("  Extraction cache: %d/%d documents, %.1f%% hit rate\n\n",
		result.Cache.Size, result.Cache.Capacity, result.Cache.HitRate)

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n" + result.UsageGuidance

	return text
}

func formatPages(pages []string) string {
	if len(pages) == 0 {
		return "all"
	}
	return strings.Join(pages, ",")
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting PDF layout MCP server in stdio mode")
		log.Printf("PDF directory: %s", s.config.PDFDirectory)
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over SSE until ctx is cancelled
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting PDF layout MCP server on %s (SSE)", addr)
		errCh <- sseServer.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}
