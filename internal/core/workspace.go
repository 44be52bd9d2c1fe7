package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/warren-dev/warren/internal/integration"
	"github.com/warren-dev/warren/internal/storage"
	"github.com/warren-dev/warren/pkg/models"
)

// initialSpecNote seeds every new workspace with a planning document.
const initialSpecNote = `# Workspace spec

Describe the goal of this workspace. Inline task declarations fenced with
` + "```task" + ` blocks can be converted into delegatable task notes.
`

// CreateWorkspaceOptions parameterize workspace creation.
type CreateWorkspaceOptions struct {
	RepoPath string
	// Title defaults to the generated workspace id when empty.
	Title   string
	BaseRef string
	// SetupCommand runs best-effort inside the new worktree; its failure
	// never fails creation.
	SetupCommand string
}

// WorkspaceManager owns creation, archival, and destruction of
// git-worktree-backed workspaces.
type WorkspaceManager interface {
	Create(opts CreateWorkspaceOptions) (*models.Workspace, error)
	Archive(workspacePath string) (*models.Workspace, error)
	Unarchive(workspacePath string) (*models.Workspace, error)
	Destroy(ws *models.Workspace) error
	List() ([]*models.Workspace, error)
	Get(id string) (*models.Workspace, error)
}

type workspaceManager struct {
	root     string
	git      integration.GitAdapter
	runner   integration.ProcessRunner
	registry storage.Registry
	notes    storage.NoteStore
	idGen    WorkspaceIDGenerator
	events   EventLogger // may be nil
}

// NewWorkspaceManager creates a WorkspaceManager storing worktrees under
// root. events may be nil to disable activity logging.
func NewWorkspaceManager(
	root string,
	git integration.GitAdapter,
	runner integration.ProcessRunner,
	registry storage.Registry,
	notes storage.NoteStore,
	idGen WorkspaceIDGenerator,
	events EventLogger,
) WorkspaceManager {
	return &workspaceManager{
		root:     root,
		git:      git,
		runner:   runner,
		registry: registry,
		notes:    notes,
		idGen:    idGen,
		events:   events,
	}
}

// Create materializes a new worktree on a fresh branch and seeds the
// workspace's state directory. The generated identifier is not reserved
// anywhere until worktree creation succeeds, so a failed creation leaves no
// partially-registered workspace behind.
func (m *workspaceManager) Create(opts CreateWorkspaceOptions) (*models.Workspace, error) {
	if opts.RepoPath == "" {
		return nil, fmt.Errorf("creating workspace: repository path must not be empty")
	}
	if opts.BaseRef == "" {
		return nil, fmt.Errorf("creating workspace: base ref must not be empty")
	}

	existing, err := m.knownIDs()
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	id := m.idGen.Generate(existing)

	sha, err := m.resolveRef(opts.RepoPath, opts.BaseRef)
	if err != nil {
		return nil, err
	}

	wsPath := filepath.Join(m.root, id)
	branch := BranchForWorkspace(id)

	result, err := m.git.Run([]string{"worktree", "add", "-b", branch, wsPath, sha}, opts.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("creating workspace: %s: %w",
			strings.TrimSpace(result.Stdout), ErrWorktreeCreationFailed)
	}

	title := opts.Title
	if title == "" {
		title = id
	}

	now := time.Now().UTC()
	ws := &models.Workspace{
		ID:         id,
		Title:      title,
		Path:       wsPath,
		RepoPath:   opts.RepoPath,
		Branch:     branch,
		BaseRef:    opts.BaseRef,
		BaseCommit: sha,
		Status:     models.WorkspaceActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	ws.RepoOwner, ws.RepoName = m.remoteOwnerRepo(opts.RepoPath)

	if err := storage.SaveMetadata(ws); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	if err := m.registry.Add(models.RegistryEntry{ID: id, Path: wsPath, RepoPath: opts.RepoPath}); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	if _, err := m.notes.Create(wsPath, "Spec", initialSpecNote, []string{"spec"}); err != nil {
		return nil, fmt.Errorf("creating workspace: seeding spec note: %w", err)
	}

	if opts.SetupCommand != "" {
		// Setup is advisory: the result is intentionally discarded.
		_, _ = m.runner.Run(opts.SetupCommand, wsPath)
	}

	m.log(wsPath, "workspace:created", map[string]any{
		"id":      id,
		"branch":  branch,
		"baseRef": opts.BaseRef,
	})

	return ws, nil
}

// resolveRef resolves a ref to a commit SHA in the given repository.
func (m *workspaceManager) resolveRef(repoPath, ref string) (string, error) {
	result, err := m.git.Run([]string{"rev-parse", "--verify", ref + "^{commit}"}, repoPath)
	if err != nil {
		return "", fmt.Errorf("resolving base ref %s: %w", ref, err)
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("resolving base ref %s: %s: %w",
			ref, strings.TrimSpace(result.Stdout), ErrInvalidBaseRef)
	}
	return strings.TrimSpace(result.Stdout), nil
}

// remoteOwnerRepo parses owner and repository name from the origin remote.
// Missing remotes are fine; both values stay empty.
func (m *workspaceManager) remoteOwnerRepo(repoPath string) (string, string) {
	result, err := m.git.Run([]string{"remote", "get-url", "origin"}, repoPath)
	if err != nil || result.ExitCode != 0 {
		return "", ""
	}
	return integration.ParseRemoteOwnerRepo(result.Stdout)
}

// knownIDs collects every workspace id visible through the registry and the
// fallback scan.
func (m *workspaceManager) knownIDs() (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	workspaces, err := m.registry.Discover()
	if err != nil {
		return nil, err
	}
	for _, ws := range workspaces {
		ids[ws.ID] = struct{}{}
	}
	return ids, nil
}

// Archive flips the workspace to archived. Idempotent; no git side effects.
func (m *workspaceManager) Archive(workspacePath string) (*models.Workspace, error) {
	return m.setStatus(workspacePath, models.WorkspaceArchived, "workspace:archived")
}

// Unarchive flips the workspace back to active. Idempotent.
func (m *workspaceManager) Unarchive(workspacePath string) (*models.Workspace, error) {
	return m.setStatus(workspacePath, models.WorkspaceActive, "workspace:unarchived")
}

func (m *workspaceManager) setStatus(workspacePath string, status models.WorkspaceStatus, eventType string) (*models.Workspace, error) {
	ws, err := storage.LoadMetadata(workspacePath)
	if err != nil {
		return nil, err
	}
	if ws.Status == status {
		return ws, nil
	}
	ws.Status = status
	ws.UpdatedAt = time.Now().UTC()
	if err := storage.SaveMetadata(ws); err != nil {
		return nil, err
	}
	m.log(workspacePath, eventType, map[string]any{"id": ws.ID})
	return ws, nil
}

// Destroy removes the worktree best-effort, then the registry entry, then
// the directory tree. Destruction is intentionally permissive: a workspace
// whose worktree was already manually deleted must still be removable.
func (m *workspaceManager) Destroy(ws *models.Workspace) error {
	if result, err := m.git.Run([]string{"worktree", "remove", "--force", ws.Path}, ws.RepoPath); err == nil && result.ExitCode != 0 {
		// Non-fatal: the worktree may already be gone. git's own prune
		// handles the leftover administrative entry.
		_, _ = m.git.Run([]string{"worktree", "prune"}, ws.RepoPath)
	}

	if err := m.registry.Remove(ws.ID); err != nil {
		return fmt.Errorf("destroying workspace %s: %w", ws.ID, err)
	}
	if err := os.RemoveAll(ws.Path); err != nil {
		return fmt.Errorf("destroying workspace %s: removing directory: %w", ws.ID, err)
	}
	return nil
}

// List returns all known workspaces, silently skipping malformed entries.
func (m *workspaceManager) List() ([]*models.Workspace, error) {
	return m.registry.Discover()
}

// Get finds a workspace by id. Returns ErrWorkspaceNotFound for unknown ids.
func (m *workspaceManager) Get(id string) (*models.Workspace, error) {
	workspaces, err := m.registry.Discover()
	if err != nil {
		return nil, err
	}
	for _, ws := range workspaces {
		if ws.ID == id {
			return ws, nil
		}
	}
	return nil, fmt.Errorf("workspace %s: %w", id, ErrWorkspaceNotFound)
}

// log records an activity event when logging is enabled. A failed append is
// reported on stderr, never silently dropped.
func (m *workspaceManager) log(workspacePath, eventType string, data map[string]any) {
	if m.events == nil {
		return
	}
	if _, err := m.events.Append(workspacePath, eventType, systemActor, data); err != nil {
		fmt.Fprintf(os.Stderr, "warning: recording %s event: %v\n", eventType, err)
	}
}
