package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage per-workspace agent-server processes",
}

var serverStartCmd = &cobra.Command{
	Use:   "start <workspace-id>",
	Short: "Ensure a backend agent server is running for the workspace",
	Long: `Start (or re-attach to) the workspace's backend process. An already
running backend is reused: in-memory state is checked first, then persisted
connection info with a process liveness probe, and only then is a new
process launched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		if ServerMgr == nil {
			return fmt.Errorf("server manager not initialized")
		}
		info, err := ServerMgr.GetOrStart(ws.Path)
		if err != nil {
			return fmt.Errorf("starting server: %w", err)
		}
		fmt.Printf("Agent server for %s\n", ws.ID)
		fmt.Printf("  PID:  %d\n", info.PID)
		fmt.Printf("  Port: %d\n", info.Port)
		fmt.Printf("  URL:  %s\n", info.BaseURL)
		return nil
	},
}

var serverStopCmd = &cobra.Command{
	Use:   "stop <workspace-id>",
	Short: "Stop the workspace's backend agent server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		if ServerMgr == nil {
			return fmt.Errorf("server manager not initialized")
		}
		if err := ServerMgr.Stop(ws.Path); err != nil {
			return fmt.Errorf("stopping server: %w", err)
		}
		fmt.Printf("Stopped agent server for %s\n", ws.ID)
		return nil
	},
}

var serverStatusCmd = &cobra.Command{
	Use:   "status <workspace-id>",
	Short: "Report the backend's state, reconciling stale records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		if ServerMgr == nil {
			return fmt.Errorf("server manager not initialized")
		}
		state, err := ServerMgr.CheckStatus(ws.Path)
		if err != nil {
			return fmt.Errorf("checking server status: %w", err)
		}
		fmt.Printf("%s: %s\n", ws.ID, state)
		return nil
	},
}

func init() {
	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverStopCmd)
	serverCmd.AddCommand(serverStatusCmd)
	rootCmd.AddCommand(serverCmd)
}
