package mcptool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sandevgo/convkeep/internal/core"
	"github.com/sandevgo/convkeep/internal/service/records"
)

// GetTool handles the conv_get MCP tool.
type GetTool struct {
	svc *records.Service
}

func NewGetTool(svc *records.Service) *GetTool {
	return &GetTool{svc: svc}
}

func (t *GetTool) Definition() mcp.Tool {
	return mcp.NewTool("conv_get",
		mcp.WithDescription("Fetch one captured conversation in full by its id."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Record id, as returned by conv_search"),
		),
	)
}

func (t *GetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	rec, err := t.svc.Get(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no conversation with id %q", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}

	var b strings.Builder
	if rec.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", rec.Title)
	}
	fmt.Fprintf(&b, "Platform: %s\nCaptured: %s\n", rec.Platform, rec.Timestamp.Format("2006-01-02 15:04"))
	if rec.PageURL != "" {
		fmt.Fprintf(&b, "Source: %s\n", rec.PageURL)
	}
	if len(rec.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(rec.Tags, ", "))
	}
	fmt.Fprintf(&b, "\nQ: %s\n\nA: %s\n", rec.Question, rec.Answer)
	if rec.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", rec.Notes)
	}
	return mcp.NewToolResultText(b.String()), nil
}
