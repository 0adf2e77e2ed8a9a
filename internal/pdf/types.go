package pdf

import (
	"github.com/a3tai/mcp-pdf-layout/internal/compare"
	"github.com/a3tai/mcp-pdf-layout/internal/layout"
)

// FileInfo represents information about a PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
	HasHOCR      bool   `json:"has_hocr,omitempty"`
}

// Request Types

// LayoutProjectRequest projects a preview point or rectangle into document
// space. Page geometry comes from PageWidth/PageHeight/Rotation, or from
// page Page of Path when Path is set.
type LayoutProjectRequest struct {
	Kind          string  `json:"kind,omitempty"` // point, rect or inverse
	PreviewWidth  float64 `json:"preview_width"`
	PreviewHeight float64 `json:"preview_height"`
	PageWidth     float64 `json:"page_width,omitempty"`
	PageHeight    float64 `json:"page_height,omitempty"`
	Rotation      int     `json:"rotation,omitempty"`
	Path          string  `json:"path,omitempty"`
	Page          int     `json:"page,omitempty"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Width         float64 `json:"width,omitempty"`
	Height        float64 `json:"height,omitempty"`
	ContentWidth  float64 `json:"content_width,omitempty"`
	ContentHeight float64 `json:"content_height,omitempty"`
	Anchor        string  `json:"anchor,omitempty"`
	// Margin grows rect selections; nil uses the configured crop margin
	Margin *float64 `json:"margin,omitempty"`
}

// PDFPageGeometryRequest asks for the geometry of every page of a PDF
type PDFPageGeometryRequest struct {
	Path string `json:"path"`
}

// PDFCropRequest crops one page to a region selected on a preview
type PDFCropRequest struct {
	Path          string   `json:"path"`
	OutputPath    string   `json:"output_path,omitempty"`
	Page          int      `json:"page"`
	PreviewWidth  float64  `json:"preview_width"`
	PreviewHeight float64  `json:"preview_height"`
	X             float64  `json:"x"`
	Y             float64  `json:"y"`
	Width         float64  `json:"width"`
	Height        float64  `json:"height"`
	Margin        *float64 `json:"margin,omitempty"`
}

// PDFStampRequest places text at a point selected on a preview of the
// first selected page
type PDFStampRequest struct {
	Path          string  `json:"path"`
	OutputPath    string  `json:"output_path,omitempty"`
	Pages         string  `json:"pages,omitempty"`
	Text          string  `json:"text"`
	PreviewWidth  float64 `json:"preview_width"`
	PreviewHeight float64 `json:"preview_height"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Anchor        string  `json:"anchor,omitempty"`
	FontSize      float64 `json:"font_size,omitempty"`
	Opacity       float64 `json:"opacity,omitempty"`
	ContentWidth  float64 `json:"content_width,omitempty"`
}

// PDFRedactRequest blacks out regions selected on a preview of one page
type PDFRedactRequest struct {
	Path          string        `json:"path"`
	OutputPath    string        `json:"output_path,omitempty"`
	Page          int           `json:"page"`
	PreviewWidth  float64       `json:"preview_width"`
	PreviewHeight float64       `json:"preview_height"`
	Rects         []layout.Rect `json:"rects"`
}

// PDFStampImageRequest places an image at a point selected on a preview of
// the first selected page
type PDFStampImageRequest struct {
	Path          string  `json:"path"`
	ImagePath     string  `json:"image_path"`
	OutputPath    string  `json:"output_path,omitempty"`
	Pages         string  `json:"pages,omitempty"`
	PreviewWidth  float64 `json:"preview_width"`
	PreviewHeight float64 `json:"preview_height"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Width         float64 `json:"width,omitempty"`  // points, default the image's pixel width
	Anchor        string  `json:"anchor,omitempty"` // default center
	Opacity       float64 `json:"opacity,omitempty"`
}

// PDFRotateRequest rotates pages by a quarter-turn multiple
type PDFRotateRequest struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path,omitempty"`
	Pages      string `json:"pages,omitempty"`
	Degrees    int    `json:"degrees"`
}

// PDFToTableRequest converts a PDF into one spreadsheet row per text line
type PDFToTableRequest struct {
	Path          string  `json:"path"`
	HOCRPath      string  `json:"hocr_path,omitempty"`
	OutputPath    string  `json:"output_path,omitempty"`
	LineTolerance float64 `json:"line_tolerance,omitempty"`
	BottomUp      bool    `json:"bottom_up,omitempty"`
}

// PDFCompareRequest compares the text of two PDFs line by line
type PDFCompareRequest struct {
	PathA      string  `json:"path_a"`
	PathB      string   `json:"path_b"`
	Threshold  *float64 `json:"threshold,omitempty"` // nil uses the configured threshold
	IncludeAll bool     `json:"include_all,omitempty"`
	Mode       string   `json:"mode,omitempty"`
}

// TextCompareRequest compares two texts line by line
type TextCompareRequest struct {
	TextA      string  `json:"text_a"`
	TextB      string   `json:"text_b"`
	Threshold  *float64 `json:"threshold,omitempty"`
	IncludeAll bool     `json:"include_all,omitempty"`
	Mode       string   `json:"mode,omitempty"`
}

// PDFServerInfoRequest represents a request to get server information and capabilities
type PDFServerInfoRequest struct {
	// No parameters needed for server info
}

// Response Types

// LayoutProjectResult carries the projected geometry
type LayoutProjectResult struct {
	Kind   string              `json:"kind"`
	Page   layout.PageGeometry `json:"page"`
	Origin layout.Point        `json:"origin"`
	ScaleX float64             `json:"scale_x"`
	ScaleY float64             `json:"scale_y"`
	Point  *layout.Point       `json:"point,omitempty"`
	Rect   *layout.Rect        `json:"rect,omitempty"`
}

// PageGeometryInfo is the geometry of one page, Number is 1-based
type PageGeometryInfo struct {
	Number int `json:"number"`
	layout.PageGeometry
}

// PDFPageGeometryResult lists page geometries
type PDFPageGeometryResult struct {
	Path  string             `json:"path"`
	Pages []PageGeometryInfo `json:"pages"`
}

// PDFCropResult describes a written crop
type PDFCropResult struct {
	Path       string      `json:"path"`
	OutputPath string      `json:"output_path"`
	Page       int         `json:"page"`
	Box        layout.Rect `json:"box"`
	Margin     float64     `json:"margin"`
}

// PDFStampResult describes a written stamp
type PDFStampResult struct {
	Path       string       `json:"path"`
	OutputPath string       `json:"output_path"`
	Pages      []string     `json:"pages,omitempty"`
	Origin     layout.Point `json:"origin"`
}

// PDFRedactResult describes a written redaction
type PDFRedactResult struct {
	Path       string        `json:"path"`
	OutputPath string        `json:"output_path"`
	Page       int           `json:"page"`
	Boxes      []layout.Rect `json:"boxes"`
}

// PDFStampImageResult describes a written image stamp
type PDFStampImageResult struct {
	Path       string       `json:"path"`
	OutputPath string       `json:"output_path"`
	Pages      []string     `json:"pages,omitempty"`
	Origin     layout.Point `json:"origin"`
	Size       layout.Size  `json:"size"`
}

// PDFRotateResult describes a written rotation
type PDFRotateResult struct {
	Path       string   `json:"path"`
	OutputPath string   `json:"output_path"`
	Pages      []string `json:"pages,omitempty"`
	Degrees    int      `json:"degrees"`
}

// StyleWarningInfo reports a row whose font size could not be used
type StyleWarningInfo struct {
	Page    int     `json:"page"`
	Row     int     `json:"row"`
	Value   float64 `json:"value"`
	Message string  `json:"message"`
}

// PDFToTableResult describes a written spreadsheet
type PDFToTableResult struct {
	Path       string             `json:"path"`
	OutputPath string             `json:"output_path"`
	Source     string             `json:"source"`
	Pages      int                `json:"pages"`
	RowCount   int                `json:"row_count"`
	Rows       []layout.Row       `json:"rows"`
	Warnings   []StyleWarningInfo `json:"warnings,omitempty"`
}

// PDFCompareResult is a diff report for two files
type PDFCompareResult struct {
	PathA   string `json:"path_a"`
	PathB   string `json:"path_b"`
	SourceA string `json:"source_a"`
	SourceB string `json:"source_b"`
	compare.Report
}

// PDFServerInfoResult represents server information and usage guidance
type PDFServerInfoResult struct {
	ServerName        string     `json:"server_name"`
	Version           string     `json:"version"`
	DefaultDirectory  string     `json:"default_directory"`
	OutputDirectory   string     `json:"output_directory"`
	MaxFileSize       int64      `json:"max_file_size"`
	AvailableTools    []ToolInfo `json:"available_tools"`
	DirectoryContents []FileInfo `json:"directory_contents"`
	UsageGuidance     string     `json:"usage_guidance"`
	Defaults          Defaults   `json:"defaults"`
	Cache             CacheInfo  `json:"cache"`
}

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

// Defaults reports the layout defaults in effect
type Defaults struct {
	LineTolerance   float64 `json:"line_tolerance"`
	TopDown         bool    `json:"top_down"`
	DefaultFontSize float64 `json:"default_font_size"`
	DefaultBold     bool    `json:"default_bold"`
	DiffThreshold   float64 `json:"diff_threshold"`
	CropMargin      float64 `json:"crop_margin"`
}

// CacheInfo reports extraction cache usage
type CacheInfo struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate_percent"`
	Size     int     `json:"current_size"`
	Capacity int     `json:"max_capacity"`
}
