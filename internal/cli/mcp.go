package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	warrenmcp "github.com/warren-dev/warren/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the warren MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the warren MCP server on stdio",
	Long: `Start the warren MCP server on stdio transport.

The server exposes warren functionality as MCP tools that AI coding assistants
can call: workspace lifecycle, task graph operations, events, subscriptions,
and comments.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if WorkspaceMgr == nil {
			return fmt.Errorf("workspace manager not initialized")
		}

		srv := warrenmcp.NewServer(WorkspaceMgr, TaskGraph, CommentMgr,
			ServerMgr, EventLog, SubReg, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
