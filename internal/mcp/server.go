// Package mcp provides an MCP (Model Context Protocol) server that exposes
// warren functionality as MCP tools for AI coding assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/warren-dev/warren/internal/core"
	"github.com/warren-dev/warren/internal/integration"
	"github.com/warren-dev/warren/internal/observability"
	"github.com/warren-dev/warren/pkg/models"
)

// Server wraps warren services and exposes them as MCP tools.
type Server struct {
	server       *gomcp.Server
	workspaceMgr core.WorkspaceManager
	taskGraph    core.TaskGraph
	commentMgr   core.CommentManager
	serverMgr    integration.AgentServerManager
	eventLog     observability.EventLog
	subReg       observability.SubscriptionRegistry
}

// NewServer creates a new MCP server with the given warren service
// dependencies. serverMgr may be nil if no agent backend is configured.
func NewServer(workspaceMgr core.WorkspaceManager, taskGraph core.TaskGraph,
	commentMgr core.CommentManager, serverMgr integration.AgentServerManager,
	eventLog observability.EventLog, subReg observability.SubscriptionRegistry,
	version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		workspaceMgr: workspaceMgr,
		taskGraph:    taskGraph,
		commentMgr:   commentMgr,
		serverMgr:    serverMgr,
		eventLog:     eventLog,
		subReg:       subReg,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "warren", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on the given transport, blocking until the client
// disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type createWorkspaceInput struct {
	RepoPath string `json:"repo_path" jsonschema:"required,absolute path to the git repository to branch from"`
	Title    string `json:"title,omitempty" jsonschema:"human-readable workspace title"`
	BaseRef  string `json:"base_ref,omitempty" jsonschema:"git ref to branch from (defaults to the configured base ref)"`
}

type workspaceOutput struct {
	ID         string `json:"id"`
	Title      string `json:"title,omitempty"`
	Path       string `json:"path"`
	Branch     string `json:"branch"`
	BaseCommit string `json:"base_commit"`
	Status     string `json:"status"`
	Created    string `json:"created"`
}

type listWorkspacesInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter workspaces by status (active, archived)"`
}

type listWorkspacesOutput struct {
	Workspaces []workspaceOutput `json:"workspaces"`
	Count      int               `json:"count"`
}

type workspaceIDInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"required,the workspace identifier (e.g. brave-otter)"`
}

type messageOutput struct {
	Message string `json:"message"`
}

type serverInfoOutput struct {
	PID     int    `json:"pid"`
	Port    int    `json:"port"`
	BaseURL string `json:"base_url"`
}

type convertTasksInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"required,the workspace identifier"`
	NoteID      string `json:"note_id" jsonschema:"required,the note containing inline task declarations"`
}

type convertTasksOutput struct {
	ConvertedCount int      `json:"converted_count"`
	NewNoteIDs     []string `json:"new_note_ids"`
}

type createPrerequisiteInput struct {
	WorkspaceID     string `json:"workspace_id" jsonschema:"required,the workspace identifier"`
	DependentNoteID string `json:"dependent_note_id" jsonschema:"required,the task note that will depend on the new prerequisite"`
	Title           string `json:"title" jsonschema:"required,title of the prerequisite task"`
	Content         string `json:"content,omitempty" jsonschema:"body of the prerequisite note"`
}

type noteOutput struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status,omitempty"`
}

type assignAgentInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"required,the workspace identifier"`
	NoteID      string `json:"note_id" jsonschema:"required,the task note to assign"`
	AgentID     string `json:"agent_id" jsonschema:"required,the agent to record on the note"`
}

type delegateTaskInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"required,the workspace identifier"`
	NoteID      string `json:"note_id" jsonschema:"required,the task note to delegate"`
	Specialist  string `json:"specialist,omitempty" jsonschema:"specialist profile id to run the task with"`
}

type delegateTaskOutput struct {
	AgentID string `json:"agent_id"`
}

type updateTaskLineInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"required,the workspace identifier"`
	NoteID      string `json:"note_id" jsonschema:"required,the note containing the task line"`
	TaskText    string `json:"task_text" jsonschema:"required,text uniquely identifying the checkbox line"`
	Status      string `json:"status" jsonschema:"required,the new status (not_started, in_progress, done)"`
}

type appendEventInput struct {
	WorkspaceID string         `json:"workspace_id" jsonschema:"required,the workspace identifier"`
	Type        string         `json:"type" jsonschema:"required,colon-namespaced event type (e.g. file:changed)"`
	ActorID     string         `json:"actor_id,omitempty" jsonschema:"identifier of the acting agent"`
	Data        map[string]any `json:"data,omitempty" jsonschema:"structured event payload"`
}

type queryEventsInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"required,the workspace identifier"`
	Type        string `json:"type,omitempty" jsonschema:"exact event type to match"`
	ActorID     string `json:"actor_id,omitempty" jsonschema:"actor id to match"`
	MinutesAgo  int    `json:"minutes_ago,omitempty" jsonschema:"only events newer than this many minutes"`
	Limit       int    `json:"limit,omitempty" jsonschema:"maximum number of events to return"`
}

type eventOutput struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp string         `json:"timestamp"`
	ActorType string         `json:"actor_type"`
	ActorID   string         `json:"actor_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

type queryEventsOutput struct {
	Events []eventOutput `json:"events"`
	Count  int           `json:"count"`
}

type createSubscriptionInput struct {
	WorkspaceID   string   `json:"workspace_id" jsonschema:"required,the workspace identifier"`
	AgentID       string   `json:"agent_id" jsonschema:"required,the subscribing agent"`
	EventTypes    []string `json:"event_types" jsonschema:"required,event types to match (exact, category:* wildcard, or *)"`
	ExcludeActors []string `json:"exclude_actors,omitempty" jsonschema:"actor ids whose events are ignored"`
	BatchWindowMS int      `json:"batch_window_ms,omitempty" jsonschema:"batching window in milliseconds"`
	Once          bool     `json:"once,omitempty" jsonschema:"deliver one batch then delete the subscription"`
}

type subscriptionOutput struct {
	ID         string   `json:"id"`
	AgentID    string   `json:"agent_id"`
	EventTypes []string `json:"event_types"`
}

type createCommentInput struct {
	WorkspaceID string `json:"workspace_id" jsonschema:"required,the workspace identifier"`
	NoteID      string `json:"note_id" jsonschema:"required,the note to comment on"`
	Text        string `json:"text" jsonschema:"required,the comment body"`
	AuthorName  string `json:"author_name,omitempty" jsonschema:"display name of the author"`
	ParentID    string `json:"parent_id,omitempty" jsonschema:"parent comment id for threading"`
	Anchor      string `json:"anchor,omitempty" jsonschema:"exact substring of the note content to attach to"`
}

type commentOutput struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_workspace",
		Description: "Create an isolated workspace: a git worktree on a fresh branch plus a private state directory.",
	}, s.handleCreateWorkspace)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_workspaces",
		Description: "List known workspaces with an optional status filter (active, archived).",
	}, s.handleListWorkspaces)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "archive_workspace",
		Description: "Mark a workspace archived. Files are kept; the workspace drops out of active listings.",
	}, s.handleArchiveWorkspace)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_agent_server",
		Description: "Get connection info for the workspace's agent backend, starting one if none is running.",
	}, s.handleGetAgentServer)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "convert_inline_tasks",
		Description: "Convert fenced task declarations inside a note into linked task notes with checkbox references.",
	}, s.handleConvertInlineTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_prerequisite",
		Description: "Create a prerequisite task note and record the dependency on the dependent note.",
	}, s.handleCreatePrerequisite)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "assign_agent",
		Description: "Record an agent as an assignee on a task note. Idempotent.",
	}, s.handleAssignAgent)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "delegate_task",
		Description: "Create a fresh agent on the workspace's backend and hand it the task note's content.",
	}, s.handleDelegateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task_line",
		Description: "Flip a checkbox task line inside a note's content, addressed by unique text match.",
	}, s.handleUpdateTaskLine)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "append_event",
		Description: "Append an event to the workspace's append-only activity log.",
	}, s.handleAppendEvent)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "query_events",
		Description: "Query the workspace event log with optional type, actor, and recency filters.",
	}, s.handleQueryEvents)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_subscription",
		Description: "Subscribe an agent to workspace events. Supports exact types, category:* wildcards, and *.",
	}, s.handleCreateSubscription)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_comment",
		Description: "Add a threaded comment to a note, optionally anchored to an exact substring of its content.",
	}, s.handleCreateComment)
}

// --- Tool handlers ---

func (s *Server) handleCreateWorkspace(_ context.Context, _ *gomcp.CallToolRequest, input createWorkspaceInput) (*gomcp.CallToolResult, workspaceOutput, error) {
	if input.RepoPath == "" {
		return errorResult("repo_path is required"), workspaceOutput{}, nil
	}

	ws, err := s.workspaceMgr.Create(core.CreateWorkspaceOptions{
		RepoPath: input.RepoPath,
		Title:    input.Title,
		BaseRef:  input.BaseRef,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("creating workspace: %s", err)), workspaceOutput{}, nil
	}

	return nil, workspaceToOutput(ws), nil
}

func (s *Server) handleListWorkspaces(_ context.Context, _ *gomcp.CallToolRequest, input listWorkspacesInput) (*gomcp.CallToolResult, listWorkspacesOutput, error) {
	workspaces, err := s.workspaceMgr.List()
	if err != nil {
		return errorResult(fmt.Sprintf("listing workspaces: %s", err)), listWorkspacesOutput{}, nil
	}

	out := listWorkspacesOutput{}
	for _, ws := range workspaces {
		if input.Status != "" && string(ws.Status) != input.Status {
			continue
		}
		out.Workspaces = append(out.Workspaces, workspaceToOutput(ws))
	}
	out.Count = len(out.Workspaces)

	return nil, out, nil
}

func (s *Server) handleArchiveWorkspace(_ context.Context, _ *gomcp.CallToolRequest, input workspaceIDInput) (*gomcp.CallToolResult, messageOutput, error) {
	ws, errResult := s.resolveWorkspace(input.WorkspaceID)
	if errResult != nil {
		return errResult, messageOutput{}, nil
	}

	if _, err := s.workspaceMgr.Archive(ws.Path); err != nil {
		return errorResult(fmt.Sprintf("archiving workspace %s: %s", input.WorkspaceID, err)), messageOutput{}, nil
	}

	return nil, messageOutput{Message: fmt.Sprintf("workspace %s archived", input.WorkspaceID)}, nil
}

func (s *Server) handleGetAgentServer(_ context.Context, _ *gomcp.CallToolRequest, input workspaceIDInput) (*gomcp.CallToolResult, serverInfoOutput, error) {
	if s.serverMgr == nil {
		return errorResult("agent server manager not available (no backend configured)"), serverInfoOutput{}, nil
	}

	ws, errResult := s.resolveWorkspace(input.WorkspaceID)
	if errResult != nil {
		return errResult, serverInfoOutput{}, nil
	}

	info, err := s.serverMgr.GetOrStart(ws.Path)
	if err != nil {
		return errorResult(fmt.Sprintf("starting agent server: %s", err)), serverInfoOutput{}, nil
	}

	return nil, serverInfoOutput{PID: info.PID, Port: info.Port, BaseURL: info.BaseURL}, nil
}

func (s *Server) handleConvertInlineTasks(_ context.Context, _ *gomcp.CallToolRequest, input convertTasksInput) (*gomcp.CallToolResult, convertTasksOutput, error) {
	ws, errResult := s.resolveWorkspace(input.WorkspaceID)
	if errResult != nil {
		return errResult, convertTasksOutput{}, nil
	}

	result, err := s.taskGraph.ConvertInlineTasks(ws.Path, input.NoteID)
	if err != nil {
		return errorResult(fmt.Sprintf("converting inline tasks: %s", err)), convertTasksOutput{}, nil
	}

	return nil, convertTasksOutput{
		ConvertedCount: result.ConvertedCount,
		NewNoteIDs:     result.NewNoteIDs,
	}, nil
}

func (s *Server) handleCreatePrerequisite(_ context.Context, _ *gomcp.CallToolRequest, input createPrerequisiteInput) (*gomcp.CallToolResult, noteOutput, error) {
	if input.Title == "" {
		return errorResult("title is required"), noteOutput{}, nil
	}

	ws, errResult := s.resolveWorkspace(input.WorkspaceID)
	if errResult != nil {
		return errResult, noteOutput{}, nil
	}

	prereq, err := s.taskGraph.CreatePrerequisite(ws.Path, input.DependentNoteID, input.Title, input.Content, "")
	if err != nil {
		return errorResult(fmt.Sprintf("creating prerequisite: %s", err)), noteOutput{}, nil
	}

	out := noteOutput{ID: prereq.ID, Title: prereq.Title}
	if prereq.Task != nil {
		out.Status = string(prereq.Task.Status)
	}
	return nil, out, nil
}

func (s *Server) handleAssignAgent(_ context.Context, _ *gomcp.CallToolRequest, input assignAgentInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.AgentID == "" {
		return errorResult("agent_id is required"), messageOutput{}, nil
	}

	ws, errResult := s.resolveWorkspace(input.WorkspaceID)
	if errResult != nil {
		return errResult, messageOutput{}, nil
	}

	if err := s.taskGraph.AssignAgent(ws.Path, input.NoteID, input.AgentID); err != nil {
		return errorResult(fmt.Sprintf("assigning agent: %s", err)), messageOutput{}, nil
	}

	return nil, messageOutput{Message: fmt.Sprintf("agent %s assigned to note %s", input.AgentID, input.NoteID)}, nil
}

func (s *Server) handleDelegateTask(_ context.Context, _ *gomcp.CallToolRequest, input delegateTaskInput) (*gomcp.CallToolResult, delegateTaskOutput, error) {
	ws, errResult := s.resolveWorkspace(input.WorkspaceID)
	if errResult != nil {
		return errResult, delegateTaskOutput{}, nil
	}

	agentID, err := s.taskGraph.Delegate(ws, input.NoteID, input.Specialist)
	if err != nil {
		return errorResult(fmt.Sprintf("delegating task: %s", err)), delegateTaskOutput{}, nil
	}

	return nil, delegateTaskOutput{AgentID: agentID}, nil
}

func (s *Server) handleUpdateTaskLine(_ context.Context, _ *gomcp.CallToolRequest, input updateTaskLineInput) (*gomcp.CallToolResult, messageOutput, error) {
	validStatuses := map[string]bool{
		"not_started": true, "in_progress": true, "done": true,
	}
	if !validStatuses[input.Status] {
		return errorResult(fmt.Sprintf("invalid status %q: must be one of not_started, in_progress, done", input.Status)), messageOutput{}, nil
	}

	ws, errResult := s.resolveWorkspace(input.WorkspaceID)
	if errResult != nil {
		return errResult, messageOutput{}, nil
	}

	if err := s.taskGraph.UpdateTaskStatus(ws.Path, input.NoteID, input.TaskText, models.TaskStatus(input.Status)); err != nil {
		return errorResult(fmt.Sprintf("updating task line: %s", err)), messageOutput{}, nil
	}

	return nil, messageOutput{Message: fmt.Sprintf("task line updated to %s", input.Status)}, nil
}

func (s *Server) handleAppendEvent(_ context.Context, _ *gomcp.CallToolRequest, input appendEventInput) (*gomcp.CallToolResult, eventOutput, error) {
	if input.Type == "" {
		return errorResult("type is required"), eventOutput{}, nil
	}

	ws, errResult := s.resolveWorkspace(input.WorkspaceID)
	if errResult != nil {
		return errResult, eventOutput{}, nil
	}

	actor := models.Actor{Type: models.ActorTypeAgent, ID: input.ActorID}
	event, err := s.eventLog.Append(ws.Path, input.Type, actor, input.Data)
	if err != nil {
		return errorResult(fmt.Sprintf("appending event: %s", err)), eventOutput{}, nil
	}

	return nil, eventToOutput(event), nil
}

func (s *Server) handleQueryEvents(_ context.Context, _ *gomcp.CallToolRequest, input queryEventsInput) (*gomcp.CallToolResult, queryEventsOutput, error) {
	ws, errResult := s.resolveWorkspace(input.WorkspaceID)
	if errResult != nil {
		return errResult, queryEventsOutput{}, nil
	}

	events, err := s.eventLog.Query(ws.Path, observability.QueryFilter{
		Type:       input.Type,
		ActorID:    input.ActorID,
		MinutesAgo: input.MinutesAgo,
		Limit:      input.Limit,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("querying events: %s", err)), queryEventsOutput{}, nil
	}

	out := queryEventsOutput{
		Events: make([]eventOutput, len(events)),
		Count:  len(events),
	}
	for i, e := range events {
		out.Events[i] = eventToOutput(e)
	}

	return nil, out, nil
}

func (s *Server) handleCreateSubscription(_ context.Context, _ *gomcp.CallToolRequest, input createSubscriptionInput) (*gomcp.CallToolResult, subscriptionOutput, error) {
	if input.AgentID == "" {
		return errorResult("agent_id is required"), subscriptionOutput{}, nil
	}
	if len(input.EventTypes) == 0 {
		return errorResult("event_types is required"), subscriptionOutput{}, nil
	}

	ws, errResult := s.resolveWorkspace(input.WorkspaceID)
	if errResult != nil {
		return errResult, subscriptionOutput{}, nil
	}

	sub, err := s.subReg.Create(ws.Path, &models.Subscription{
		AgentID:       input.AgentID,
		EventTypes:    input.EventTypes,
		ExcludeActors: input.ExcludeActors,
		BatchWindowMS: input.BatchWindowMS,
		Once:          input.Once,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("creating subscription: %s", err)), subscriptionOutput{}, nil
	}

	return nil, subscriptionOutput{ID: sub.ID, AgentID: sub.AgentID, EventTypes: sub.EventTypes}, nil
}

func (s *Server) handleCreateComment(_ context.Context, _ *gomcp.CallToolRequest, input createCommentInput) (*gomcp.CallToolResult, commentOutput, error) {
	if input.Text == "" {
		return errorResult("text is required"), commentOutput{}, nil
	}

	ws, errResult := s.resolveWorkspace(input.WorkspaceID)
	if errResult != nil {
		return errResult, commentOutput{}, nil
	}

	authorName := input.AuthorName
	if authorName == "" {
		authorName = "agent"
	}
	comment, err := s.commentMgr.Create(ws.Path, core.CreateCommentOptions{
		NoteID:     input.NoteID,
		Text:       input.Text,
		AuthorName: authorName,
		AuthorType: models.AuthorAgent,
		Type:       models.CommentPlain,
		ParentID:   input.ParentID,
		Anchor:     input.Anchor,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("creating comment: %s", err)), commentOutput{}, nil
	}

	return nil, commentOutput{ID: comment.ID, ThreadID: comment.ThreadID}, nil
}

// --- Helpers ---

func (s *Server) resolveWorkspace(id string) (*models.Workspace, *gomcp.CallToolResult) {
	if id == "" {
		return nil, errorResult("workspace_id is required")
	}
	ws, err := s.workspaceMgr.Get(id)
	if err != nil {
		return nil, errorResult(fmt.Sprintf("resolving workspace %s: %s", id, err))
	}
	return ws, nil
}

func workspaceToOutput(ws *models.Workspace) workspaceOutput {
	return workspaceOutput{
		ID:         ws.ID,
		Title:      ws.Title,
		Path:       ws.Path,
		Branch:     ws.Branch,
		BaseCommit: ws.BaseCommit,
		Status:     string(ws.Status),
		Created:    ws.CreatedAt.Format(time.RFC3339),
	}
}

func eventToOutput(e *models.WorkspaceEvent) eventOutput {
	return eventOutput{
		ID:        e.ID,
		Type:      e.Type,
		Timestamp: e.Timestamp.Format(time.RFC3339),
		ActorType: string(e.Actor.Type),
		ActorID:   e.Actor.ID,
		Data:      e.Data,
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
