// Package internal provides the App struct that wires all components of
// Warren together and initializes the CLI layer.
package internal

import (
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/warren-dev/warren/internal/cli"
	"github.com/warren-dev/warren/internal/core"
	"github.com/warren-dev/warren/internal/integration"
	"github.com/warren-dev/warren/internal/observability"
	"github.com/warren-dev/warren/internal/storage"
)

// App holds all service dependencies for Warren.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager

	// Storage layer
	Notes         storage.NoteStore
	Comments      storage.CommentStore
	Subscriptions storage.SubscriptionStore
	Registry      storage.Registry

	// Core services
	WorkspaceMgr core.WorkspaceManager
	TaskGraph    core.TaskGraph
	CommentMgr   core.CommentManager

	// Integration services
	Git       integration.GitAdapter
	Runner    integration.ProcessRunner
	ServerMgr integration.AgentServerManager
	Convo     integration.AgentConversation

	// Observability
	EventLog observability.EventLog
	SubReg   observability.SubscriptionRegistry
}

// NewApp creates and wires all components. basePath is the root directory
// where all data is stored (typically the directory containing
// .warrenconfig).
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, err
	}
	root := cfg.WorkspacesRoot
	if root == "" {
		root = filepath.Join(basePath, "workspaces")
	}

	// --- Storage layer ---
	app.Notes = storage.NewNoteStore()
	app.Comments = storage.NewCommentStore()
	app.Subscriptions = storage.NewSubscriptionStore()
	app.Registry = storage.NewRegistry(root)

	// --- Observability ---
	app.EventLog = observability.NewEventLog()
	app.SubReg = observability.NewSubscriptionRegistry(app.Subscriptions)

	// --- Integration services ---
	app.Git = integration.NewGitAdapter()
	app.Runner = integration.NewProcessRunner()
	app.ServerMgr = integration.NewAgentServerManager(integration.AgentServerConfig{
		Binary:       cfg.AgentServerBin,
		StartingPort: cfg.StartingPort,
		ReadyTimeout: time.Duration(cfg.ReadyTimeoutSecs) * time.Second,
	})
	app.Convo = integration.NewHTTPConversation(app.ServerMgr)

	// --- Core services ---
	idGen := core.NewWorkspaceIDGenerator(rand.NewSource(time.Now().UnixNano()))
	app.WorkspaceMgr = core.NewWorkspaceManager(root, app.Git, app.Runner,
		app.Registry, app.Notes, idGen, app.EventLog)
	app.TaskGraph = core.NewTaskGraph(app.Notes, app.ConfigMgr, app.Convo, app.EventLog)
	app.CommentMgr = core.NewCommentManager(app.Notes, app.Comments, app.EventLog)

	// Expose services to the CLI layer.
	cli.ConfigMgr = app.ConfigMgr
	cli.WorkspaceMgr = app.WorkspaceMgr
	cli.TaskGraph = app.TaskGraph
	cli.CommentMgr = app.CommentMgr
	cli.ServerMgr = app.ServerMgr
	cli.EventLog = app.EventLog
	cli.SubReg = app.SubReg
	cli.Notes = app.Notes
	cli.DefaultBaseRef = cfg.DefaultBaseRef
	cli.DefaultSetupCommand = cfg.SetupCommand

	return app, nil
}

// ResolveBasePath determines where Warren keeps its configuration and
// workspaces. WARREN_HOME wins; otherwise the directory tree is walked up
// from the cwd looking for .warrenconfig; failing that, the cwd itself.
func ResolveBasePath() string {
	if home := os.Getenv("WARREN_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".warrenconfig")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}
