package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warren-dev/warren/internal/core"
	"github.com/warren-dev/warren/pkg/models"
)

var (
	createTitle string
	createBase  string
	createSetup string
)

var createCmd = &cobra.Command{
	Use:   "create <repo-path>",
	Short: "Create a new workspace from a repository",
	Long: `Create a new workspace: an isolated git worktree on a fresh branch,
seeded with an initial spec note. The workspace id is a generated two-word
slug (e.g. agile-falcon).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if WorkspaceMgr == nil {
			return fmt.Errorf("workspace manager not initialized")
		}

		baseRef := createBase
		if baseRef == "" {
			baseRef = DefaultBaseRef
		}
		setup := createSetup
		if setup == "" {
			setup = DefaultSetupCommand
		}

		ws, err := WorkspaceMgr.Create(core.CreateWorkspaceOptions{
			RepoPath:     args[0],
			Title:        createTitle,
			BaseRef:      baseRef,
			SetupCommand: setup,
		})
		if err != nil {
			return fmt.Errorf("creating workspace: %w", err)
		}

		fmt.Printf("Created workspace %s\n", ws.ID)
		fmt.Printf("  Path:   %s\n", ws.Path)
		fmt.Printf("  Branch: %s\n", ws.Branch)
		fmt.Printf("  Base:   %s (%s)\n", ws.BaseRef, shortSHA(ws.BaseCommit))
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		if WorkspaceMgr == nil {
			return fmt.Errorf("workspace manager not initialized")
		}
		workspaces, err := WorkspaceMgr.List()
		if err != nil {
			return fmt.Errorf("listing workspaces: %w", err)
		}
		if len(workspaces) == 0 {
			fmt.Println("No workspaces found.")
			return nil
		}
		for _, ws := range workspaces {
			fmt.Printf("%-20s %-9s %s\n", ws.ID, ws.Status, ws.Path)
		}
		return nil
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive <workspace-id>",
	Short: "Archive a workspace",
	Long:  `Archive a workspace. The worktree and all notes stay on disk; only the lifecycle status flips. Archiving an already-archived workspace is a no-op.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		if _, err := WorkspaceMgr.Archive(ws.Path); err != nil {
			return fmt.Errorf("archiving workspace: %w", err)
		}
		fmt.Printf("Archived workspace %s\n", ws.ID)
		return nil
	},
}

var unarchiveCmd = &cobra.Command{
	Use:   "unarchive <workspace-id>",
	Short: "Restore an archived workspace to active status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		if _, err := WorkspaceMgr.Unarchive(ws.Path); err != nil {
			return fmt.Errorf("unarchiving workspace: %w", err)
		}
		fmt.Printf("Workspace %s is active again\n", ws.ID)
		return nil
	},
}

var destroyCmd = &cobra.Command{
	Use:   "destroy <workspace-id>",
	Short: "Destroy a workspace, its worktree, and all its notes",
	Long: `Destroy a workspace: remove the git worktree (best-effort), drop the
registry entry, and delete the directory tree. A workspace whose worktree
was already manually deleted is still removable.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := requireWorkspace(args[0])
		if err != nil {
			return err
		}
		if ServerMgr != nil {
			// Best-effort: stop any running backend before removal.
			_ = ServerMgr.Stop(ws.Path)
		}
		if err := WorkspaceMgr.Destroy(ws); err != nil {
			return fmt.Errorf("destroying workspace: %w", err)
		}
		fmt.Printf("Destroyed workspace %s\n", ws.ID)
		return nil
	},
}

// requireWorkspace resolves a workspace id through the manager.
func requireWorkspace(id string) (*models.Workspace, error) {
	if WorkspaceMgr == nil {
		return nil, fmt.Errorf("workspace manager not initialized")
	}
	ws, err := WorkspaceMgr.Get(id)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

func shortSHA(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}

func init() {
	createCmd.Flags().StringVar(&createTitle, "title", "", "Workspace title (defaults to the generated id)")
	createCmd.Flags().StringVar(&createBase, "base", "", "Base ref to branch from (defaults to config)")
	createCmd.Flags().StringVar(&createSetup, "setup", "", "Setup command to run in the new worktree (best-effort)")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(unarchiveCmd)
	rootCmd.AddCommand(destroyCmd)
}
