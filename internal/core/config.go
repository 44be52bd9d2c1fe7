// Package core contains the business logic for Warren: workspace lifecycle,
// the task/note dependency graph, comment threading, and configuration.
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/warren-dev/warren/pkg/models"
	"gopkg.in/yaml.v3"
)

// ConfigurationManager defines the interface for loading, merging, and
// validating configuration from global (.warrenconfig) and per-repo
// (.warrenrc) files.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
	SaveGlobalConfig(cfg *models.GlobalConfig) error
	LoadRepoConfig(repoPath string) (*models.RepoConfig, error)
	GetMergedConfig(repoPath string) (*models.MergedConfig, error)
	ResolveSpecialist(id string) (*models.SpecialistConfig, error)
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	// basePath is the root directory where .warrenconfig resides.
	basePath string
}

// NewConfigurationManager creates a new ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// defaultGlobalConfig returns a GlobalConfig populated with sensible defaults.
func defaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		StartingPort:     4810,
		ReadyTimeoutSecs: 10,
		DefaultBaseRef:   "main",
	}
}

// LoadGlobalConfig reads the .warrenconfig file from the base path using
// Viper. If the file does not exist, sensible defaults are returned.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := defaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(".warrenconfig")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("workspaces_root", cfg.WorkspacesRoot)
	v.SetDefault("agent_server_bin", cfg.AgentServerBin)
	v.SetDefault("starting_port", cfg.StartingPort)
	v.SetDefault("ready_timeout_secs", cfg.ReadyTimeoutSecs)
	v.SetDefault("default_base_ref", cfg.DefaultBaseRef)
	v.SetDefault("setup_command", cfg.SetupCommand)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// No config file found, return defaults.
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .warrenconfig: %w", err)
	}

	cfg.WorkspacesRoot = v.GetString("workspaces_root")
	cfg.AgentServerBin = v.GetString("agent_server_bin")
	cfg.StartingPort = v.GetInt("starting_port")
	cfg.ReadyTimeoutSecs = v.GetInt("ready_timeout_secs")
	cfg.DefaultBaseRef = v.GetString("default_base_ref")
	cfg.SetupCommand = v.GetString("setup_command")

	var specialists []models.SpecialistConfig
	if err := v.UnmarshalKey("specialists", &specialists); err != nil {
		return nil, fmt.Errorf("parsing specialists section: %w", err)
	}
	cfg.Specialists = specialists

	return cfg, nil
}

// SaveGlobalConfig writes the configuration to .warrenconfig in the base
// path, overwriting any existing file.
func (cm *viperConfigManager) SaveGlobalConfig(cfg *models.GlobalConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling .warrenconfig: %w", err)
	}
	path := filepath.Join(cm.basePath, ".warrenconfig")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing .warrenconfig: %w", err)
	}
	return nil
}

// LoadRepoConfig reads a .warrenrc file from the given repository path.
// If the file does not exist, nil is returned (no repo-specific config).
func (cm *viperConfigManager) LoadRepoConfig(repoPath string) (*models.RepoConfig, error) {
	v := viper.New()
	v.SetConfigName(".warrenrc")
	v.SetConfigType("yaml")
	v.AddConfigPath(repoPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, nil
		}
		return nil, fmt.Errorf("reading .warrenrc in %s: %w", repoPath, err)
	}

	return &models.RepoConfig{
		SetupCommand:   v.GetString("setup_command"),
		DefaultBaseRef: v.GetString("default_base_ref"),
	}, nil
}

// GetMergedConfig loads the global config and overlays any repo-specific
// settings from .warrenrc. Precedence: .warrenrc > .warrenconfig > defaults.
func (cm *viperConfigManager) GetMergedConfig(repoPath string) (*models.MergedConfig, error) {
	globalCfg, err := cm.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("loading global config for merge: %w", err)
	}

	merged := &models.MergedConfig{GlobalConfig: *globalCfg}

	if repoPath == "" {
		return merged, nil
	}

	repoCfg, err := cm.LoadRepoConfig(repoPath)
	if err != nil {
		return nil, fmt.Errorf("loading repo config for merge: %w", err)
	}
	if repoCfg != nil {
		merged.Repo = repoCfg
		if repoCfg.SetupCommand != "" {
			merged.SetupCommand = repoCfg.SetupCommand
		}
		if repoCfg.DefaultBaseRef != "" {
			merged.DefaultBaseRef = repoCfg.DefaultBaseRef
		}
	}

	return merged, nil
}

// ResolveSpecialist looks up a specialist profile by id. Matching is
// case-insensitive on the id field.
func (cm *viperConfigManager) ResolveSpecialist(id string) (*models.SpecialistConfig, error) {
	cfg, err := cm.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("resolving specialist %s: %w", id, err)
	}
	for i := range cfg.Specialists {
		if strings.EqualFold(cfg.Specialists[i].ID, id) {
			return &cfg.Specialists[i], nil
		}
	}
	return nil, fmt.Errorf("resolving specialist %s: %w", id, ErrSpecialistNotFound)
}
