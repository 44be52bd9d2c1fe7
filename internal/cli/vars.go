package cli

import (
	"github.com/warren-dev/warren/internal/core"
	"github.com/warren-dev/warren/internal/integration"
	"github.com/warren-dev/warren/internal/observability"
	"github.com/warren-dev/warren/internal/storage"
)

// Service instances, set during app initialization in app.go.
var (
	ConfigMgr    core.ConfigurationManager
	WorkspaceMgr core.WorkspaceManager
	TaskGraph    core.TaskGraph
	CommentMgr   core.CommentManager
	ServerMgr    integration.AgentServerManager
	EventLog     observability.EventLog
	SubReg       observability.SubscriptionRegistry
	Notes        storage.NoteStore

	// Config-derived defaults.
	DefaultBaseRef      string
	DefaultSetupCommand string
)
