package mcp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-layout/internal/pdf/pdftest"
)

func newInProcessClient(t *testing.T, s *Server) *client.Client {
	t.Helper()

	c, err := client.NewInProcessClient(s.mcpServer)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))

	init := mcp.InitializeRequest{}
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: "integration-test", Version: "1.0.0"}
	_, err = c.Initialize(ctx, init)
	require.NoError(t, err)
	return c
}

func TestServerToolsRegistration(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	c := newInProcessClient(t, s)

	tools, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	require.NoError(t, err)

	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"layout_project",
		"pdf_page_geometry",
		"pdf_crop",
		"pdf_stamp",
		"pdf_stamp_image",
		"pdf_redact",
		"pdf_rotate",
		"pdf_to_table",
		"pdf_compare",
		"text_compare",
		"pdf_server_info",
	}, names)
}

func TestServerIntegration(t *testing.T) {
	dir := t.TempDir()
	pdftest.WriteFile(t, dir, "invoice.pdf", pdftest.Letter(
		pdftest.Text{X: 72, Y: 720, Size: 16, Bold: true, S: "Invoice"},
		pdftest.Text{X: 72, Y: 700, S: "Total"},
		pdftest.Text{X: 400, Y: 700, S: "99.00"},
	))
	s := newTestServer(t, dir)
	c := newInProcessClient(t, s)
	ctx := context.Background()

	// Geometry, then a crop of the header band selected on a half-size preview.
	geometry, err := c.CallTool(ctx, callRequest("pdf_page_geometry", map[string]any{"path": "invoice.pdf"}))
	require.NoError(t, err)
	require.False(t, geometry.IsError, extractTextFromResult(geometry))
	assert.Contains(t, extractTextFromResult(geometry), "612.00 x 792.00 pt")

	crop, err := c.CallTool(ctx, callRequest("pdf_crop", map[string]any{
		"path": "invoice.pdf", "page": 1,
		"preview_width": 306, "preview_height": 396,
		"x": 0, "y": 0, "width": 306, "height": 50,
		"margin":      0,
		"output_path": "header.pdf",
	}))
	require.NoError(t, err)
	require.False(t, crop.IsError, extractTextFromResult(crop))
	assert.Contains(t, extractTextFromResult(crop), "x=0.00 y=692.00 width=612.00 height=100.00")
	assert.FileExists(t, filepath.Join(dir, "header.pdf"))

	// Two areas drawn on a 600px wide preview, as an editor front end sends them.
	redact, err := c.CallTool(ctx, callRequest("pdf_redact", map[string]any{
		"path": "invoice.pdf", "page": 1,
		"preview_width": 600, "preview_height": 800,
		"rects": []any{
			map[string]any{"x": 0, "y": 0, "width": 600, "height": 100},
			map[string]any{"x": 300, "y": 400, "width": 100, "height": 50},
		},
		"output_path": "invoice_redacted.pdf",
	}))
	require.NoError(t, err)
	require.False(t, redact.IsError, extractTextFromResult(redact))
	assert.Contains(t, extractTextFromResult(redact), "Redacted 2 area(s) on page 1")
	assert.Contains(t, extractTextFromResult(redact), "1. x=0.00 y=693.00 width=612.00 height=99.00")
	assert.FileExists(t, filepath.Join(dir, "invoice_redacted.pdf"))

	table, err := c.CallTool(ctx, callRequest("pdf_to_table", map[string]any{"path": "invoice.pdf"}))
	require.NoError(t, err)
	require.False(t, table.IsError, extractTextFromResult(table))
	assert.Contains(t, extractTextFromResult(table), "Total99.00")

	unknown, err := c.CallTool(ctx, callRequest("pdf_read_file", map[string]any{"path": "invoice.pdf"}))
	if err == nil {
		assert.True(t, unknown.IsError)
	}
}

func TestServerErrorHandling(t *testing.T) {
	dir := t.TempDir()
	pdftest.WriteFile(t, dir, "doc.pdf", pdftest.Letter())
	s := newTestServer(t, dir)
	c := newInProcessClient(t, s)
	ctx := context.Background()

	tests := []struct {
		name string
		tool string
		args map[string]any
	}{
		{name: "missing path", tool: "pdf_page_geometry", args: map[string]any{}},
		{name: "file outside directory", tool: "pdf_page_geometry", args: map[string]any{"path": "/etc/passwd"}},
		{name: "missing file", tool: "pdf_to_table", args: map[string]any{"path": "nope.pdf"}},
		{name: "threshold out of range", tool: "text_compare", args: map[string]any{"text_a": "a", "text_b": "b", "threshold": 2}},
		{name: "redact without areas", tool: "pdf_redact", args: map[string]any{
			"path": "doc.pdf", "page": 1, "preview_width": 600, "preview_height": 800, "rects": []any{},
		}},
		{name: "redact with malformed areas", tool: "pdf_redact", args: map[string]any{
			"path": "doc.pdf", "page": 1, "preview_width": 600, "preview_height": 800, "rects": "not json",
		}},
		{name: "stamp missing image", tool: "pdf_stamp_image", args: map[string]any{
			"path": "doc.pdf", "image_path": "nope.png", "preview_width": 600, "preview_height": 800, "x": 1, "y": 1,
		}},
		{name: "unknown anchor", tool: "layout_project", args: map[string]any{
			"preview_width": 100, "preview_height": 100, "page_width": 100, "page_height": 100,
			"x": 1, "y": 1, "anchor": "bottom",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := c.CallTool(ctx, callRequest(tt.tool, tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError, extractTextFromResult(result))
		})
	}
}
