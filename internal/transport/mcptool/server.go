// Package mcptool exposes the stored conversations to MCP clients over
// stdio: search, fetch, and export as model-readable tools.
package mcptool

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/sandevgo/convkeep/internal/core"
	"github.com/sandevgo/convkeep/internal/export"
	"github.com/sandevgo/convkeep/internal/service/records"
)

func NewServer(svc *records.Service, exporter *export.Manager) *server.MCPServer {
	s := server.NewMCPServer(
		core.AppName,
		core.AppVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	searchTool := NewSearchTool(svc)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	getTool := NewGetTool(svc)
	s.AddTool(getTool.Definition(), getTool.Handle)

	exportTool := NewExportTool(exporter)
	s.AddTool(exportTool.Definition(), exportTool.Handle)

	return s
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
