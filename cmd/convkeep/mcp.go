package main

import (
	"os"

	"github.com/sandevgo/convkeep/internal/transport/mcptool"
	"github.com/sandevgo/convkeep/pkg/log"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve conversations to MCP clients over stdio",
	Long:  `Exposes conv_search, conv_get and conv_export as MCP tools on stdin/stdout. Logs go to stderr so the protocol stream stays clean.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, flushLog := log.NewContextWithWriterLogger(cmd.Context(), debug, os.Stderr)
		defer flushLog()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		log.FromCtx(ctx).Info().Msg("serving MCP on stdio")
		return mcptool.ServeStdio(mcptool.NewServer(rt.records, rt.exporter))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
