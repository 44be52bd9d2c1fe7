package models

// SpecialistConfig defines a named agent profile that delegation can target.
type SpecialistConfig struct {
	ID           string `yaml:"id" mapstructure:"id"`
	Name         string `yaml:"name" mapstructure:"name"`
	Model        string `yaml:"model,omitempty" mapstructure:"model"`
	SystemPrompt string `yaml:"system_prompt,omitempty" mapstructure:"system_prompt"`
}

// GlobalConfig holds system-wide settings read from .warrenconfig via Viper.
type GlobalConfig struct {
	WorkspacesRoot   string             `yaml:"workspaces_root" mapstructure:"workspaces_root"`
	AgentServerBin   string             `yaml:"agent_server_bin" mapstructure:"agent_server_bin"`
	StartingPort     int                `yaml:"starting_port" mapstructure:"starting_port"`
	ReadyTimeoutSecs int                `yaml:"ready_timeout_secs" mapstructure:"ready_timeout_secs"`
	DefaultBaseRef   string             `yaml:"default_base_ref" mapstructure:"default_base_ref"`
	SetupCommand     string             `yaml:"setup_command,omitempty" mapstructure:"setup_command"`
	Specialists      []SpecialistConfig `yaml:"specialists,omitempty" mapstructure:"specialists"`
}

// RepoConfig holds per-repository settings read from .warrenrc files.
type RepoConfig struct {
	SetupCommand   string `yaml:"setup_command,omitempty" mapstructure:"setup_command"`
	DefaultBaseRef string `yaml:"default_base_ref,omitempty" mapstructure:"default_base_ref"`
}

// MergedConfig combines global and repository-specific configuration,
// with repository settings taking precedence over global defaults.
type MergedConfig struct {
	GlobalConfig `yaml:",inline" mapstructure:",squash"`
	Repo         *RepoConfig `yaml:"repo,omitempty" mapstructure:"repo"`
}
