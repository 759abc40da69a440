package mcptool

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sandevgo/convkeep/internal/core"
	"github.com/sandevgo/convkeep/internal/service/records"
)

// SearchTool handles the conv_search MCP tool.
type SearchTool struct {
	svc *records.Service
}

func NewSearchTool(svc *records.Service) *SearchTool {
	return &SearchTool{svc: svc}
}

func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("conv_search",
		mcp.WithDescription(
			"Search captured AI chat conversations by keyword. Returns ranked matches "+
				"with their ids; use conv_get for the full text of one match.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query — matched as a substring, ranked by field"),
		),
		mcp.WithString("platform",
			mcp.Description("Filter by platform name, e.g. Gemini, ChatGPT, DeepSeek"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags; a record matching any of them passes"),
		),
		mcp.WithBoolean("favorites_only",
			mcp.Description("Only return records marked favorite"),
		),
		mcp.WithString("sort",
			mcp.Description("Sort order: relevance (default) or time"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default 50)"),
		),
	)
}

func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	opts := core.SearchOptions{
		Platform:     req.GetString("platform", ""),
		FavoriteOnly: req.GetBool("favorites_only", false),
		Limit:        req.GetInt("limit", 0),
	}
	if tags := req.GetString("tags", ""); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				opts.Tags = append(opts.Tags, tag)
			}
		}
	}
	if req.GetString("sort", "") == "time" {
		opts.SortBy = core.SortByTime
	}

	results, err := t.svc.Search(ctx, query, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No conversations matched the query."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d conversations:\n\n", len(results))
	for i, r := range results {
		rec := r.Record
		fmt.Fprintf(&b, "[%d] %s (%s, %s, score %d)\n    Q: %s\n    A: %s\n\n",
			i+1, rec.ID, rec.Platform, rec.Timestamp.Format("2006-01-02"), r.Score,
			truncate(rec.Question, 120), truncate(rec.Answer, 200),
		)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
