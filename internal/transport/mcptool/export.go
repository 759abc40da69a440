package mcptool

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sandevgo/convkeep/internal/export"
)

// ExportTool handles the conv_export MCP tool.
type ExportTool struct {
	exporter *export.Manager
}

func NewExportTool(exporter *export.Manager) *ExportTool {
	return &ExportTool{exporter: exporter}
}

func (t *ExportTool) Definition() mcp.Tool {
	return mcp.NewTool("conv_export",
		mcp.WithDescription(
			"Export captured conversations as a document. Returns the rendered "+
				"export so the client can save or process it.",
		),
		mcp.WithString("format",
			mcp.Description("Output format: json (default), markdown, html, or csv"),
		),
		mcp.WithString("platform",
			mcp.Description("Only export records from this platform"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags; a record matching any of them is exported"),
		),
		mcp.WithBoolean("favorites_only",
			mcp.Description("Only export records marked favorite"),
		),
	)
}

func (t *ExportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := export.Options{
		Format:       export.Format(req.GetString("format", string(export.FormatJSON))),
		Platform:     req.GetString("platform", ""),
		FavoriteOnly: req.GetBool("favorites_only", false),
	}
	if tags := req.GetString("tags", ""); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				opts.Tags = append(opts.Tags, tag)
			}
		}
	}

	var b strings.Builder
	if err := t.exporter.Export(ctx, &b, opts); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}
