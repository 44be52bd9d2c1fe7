package models

import "time"

// WorkspaceStatus represents the lifecycle state of a workspace.
type WorkspaceStatus string

const (
	WorkspaceActive   WorkspaceStatus = "active"
	WorkspaceArchived WorkspaceStatus = "archived"
)

// Workspace represents an isolated git worktree plus its private state
// directory. Exactly one workspace maps to one worktree and one branch.
type Workspace struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Path       string          `json:"path"`
	RepoPath   string          `json:"repoPath"`
	Branch     string          `json:"branch"`
	BaseRef    string          `json:"baseRef"`
	BaseCommit string          `json:"baseCommit"`
	Status     WorkspaceStatus `json:"status"`
	RepoOwner  string          `json:"repoOwner,omitempty"`
	RepoName   string          `json:"repoName,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// RegistryEntry is one row in the top-level workspace registry file.
type RegistryEntry struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	RepoPath string `json:"repoPath"`
}
