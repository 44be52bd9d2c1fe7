package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	initRoot string
	initBin  string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .warrenconfig in the current directory",
	Long: `Create a .warrenconfig file with default settings and the workspaces
directory. Existing configuration is not overwritten.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(".warrenconfig"); err == nil {
			return fmt.Errorf(".warrenconfig already exists")
		}

		cfg, err := ConfigMgr.LoadGlobalConfig()
		if err != nil {
			return fmt.Errorf("loading defaults: %w", err)
		}
		if initRoot != "" {
			cfg.WorkspacesRoot = initRoot
		}
		if initBin != "" {
			cfg.AgentServerBin = initBin
		}

		if err := ConfigMgr.SaveGlobalConfig(cfg); err != nil {
			return err
		}

		root := cfg.WorkspacesRoot
		if root == "" {
			root = "workspaces"
		}
		if err := os.MkdirAll(root, 0o755); err != nil {
			return fmt.Errorf("creating workspaces root: %w", err)
		}

		fmt.Printf("Initialized warren in %s\n", filepath.Dir(root))
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initRoot, "root", "", "Workspaces root directory")
	initCmd.Flags().StringVar(&initBin, "bin", "", "Agent server binary path")
	rootCmd.AddCommand(initCmd)
}
