package core

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/warren-dev/warren/internal/integration"
	"github.com/warren-dev/warren/internal/storage"
	"github.com/warren-dev/warren/pkg/models"
)

// inlineTaskPattern matches a delimiter-fenced task declaration:
//
//	```task
//	# Optional title heading
//	body...
//	```
var inlineTaskPattern = regexp.MustCompile("(?ms)^```task[ \t]*\r?\n(.*?)^```[ \t]*$\r?\n?")

// untitledTask is the fallback title for declarations without a heading.
const untitledTask = "Untitled task"

// ConvertResult reports the outcome of one ConvertInlineTasks pass.
type ConvertResult struct {
	ConvertedCount int      `json:"convertedCount"`
	NewNoteIDs     []string `json:"newNoteIds"`
}

// SpecialistResolver resolves a specialist profile id to its configuration.
// ConfigurationManager satisfies it.
type SpecialistResolver interface {
	ResolveSpecialist(id string) (*models.SpecialistConfig, error)
}

// TaskGraph turns notes into a network of delegable, dependency-ordered
// tasks. The dependency graph is advisory: cycles are neither detected nor
// rejected.
type TaskGraph interface {
	ConvertInlineTasks(workspacePath, noteID string) (*ConvertResult, error)
	CreatePrerequisite(workspacePath, dependentNoteID, title, content string, status models.TaskStatus) (*models.Note, error)
	AssignAgent(workspacePath, noteID, agentID string) error
	Delegate(ws *models.Workspace, taskNoteID, specialistID string) (string, error)
	UpdateTask(workspacePath, noteID string, lineNumber int, status models.TaskStatus, newText string) error
	UpdateTaskStatus(workspacePath, noteID, taskText string, status models.TaskStatus) error
}

type taskGraph struct {
	notes       storage.NoteStore
	specialists SpecialistResolver // may be nil
	convo       integration.AgentConversation
	events      EventLogger // may be nil
}

// NewTaskGraph creates a TaskGraph. specialists and events may be nil;
// convo may be nil when delegation is not needed.
func NewTaskGraph(notes storage.NoteStore, specialists SpecialistResolver, convo integration.AgentConversation, events EventLogger) TaskGraph {
	return &taskGraph{
		notes:       notes,
		specialists: specialists,
		convo:       convo,
		events:      events,
	}
}

// ConvertInlineTasks extracts every fenced task declaration from a note into
// its own task note and replaces each declaration with a checkbox line
// linking to the new note. Replacement proceeds from the last match to the
// first so earlier byte offsets remain valid while later ones are rewritten.
func (g *taskGraph) ConvertInlineTasks(workspacePath, noteID string) (*ConvertResult, error) {
	note, err := g.notes.Get(workspacePath, noteID)
	if err != nil {
		return nil, fmt.Errorf("converting inline tasks: %w", err)
	}

	matches := inlineTaskPattern.FindAllStringSubmatchIndex(note.Content, -1)
	if len(matches) == 0 {
		return &ConvertResult{}, nil
	}

	content := note.Content
	newIDs := make([]string, len(matches))

	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		body := content[m[2]:m[3]]
		title, taskBody := splitTaskDeclaration(body)

		taskNote, err := g.notes.Create(workspacePath, title, taskBody, []string{"task"})
		if err != nil {
			return nil, fmt.Errorf("converting inline tasks: creating task note: %w", err)
		}
		taskNote.Task = &models.TaskMetadata{Status: models.TaskNotStarted}
		if err := g.notes.Save(workspacePath, taskNote); err != nil {
			return nil, fmt.Errorf("converting inline tasks: %w", err)
		}
		newIDs[i] = taskNote.ID

		checkbox := fmt.Sprintf("- [ ] [%s](note:%s)\n", title, taskNote.ID)
		content = content[:m[0]] + checkbox + content[m[1]:]
	}

	note.Content = content
	if err := g.notes.Save(workspacePath, note); err != nil {
		return nil, fmt.Errorf("converting inline tasks: saving parent note: %w", err)
	}

	g.log(workspacePath, "task:converted", map[string]any{
		"noteId": noteID,
		"count":  len(newIDs),
	})

	return &ConvertResult{ConvertedCount: len(newIDs), NewNoteIDs: newIDs}, nil
}

// splitTaskDeclaration derives a title and body from a fenced declaration's
// inner text. A leading heading line supplies the title; otherwise the title
// falls back to a fixed placeholder and the whole text is the body.
func splitTaskDeclaration(body string) (title, rest string) {
	trimmed := strings.TrimLeft(body, "\r\n")
	line, remainder, _ := strings.Cut(trimmed, "\n")
	if heading := strings.TrimLeft(line, "#"); heading != line {
		title = strings.TrimSpace(heading)
		if title == "" {
			title = untitledTask
		}
		return title, strings.TrimSpace(remainder)
	}
	return untitledTask, strings.TrimSpace(trimmed)
}

// CreatePrerequisite creates a new task note and records it as a pending
// dependency of dependentNoteID, initializing TaskMetadata on the dependent
// when absent.
func (g *taskGraph) CreatePrerequisite(workspacePath, dependentNoteID, title, content string, status models.TaskStatus) (*models.Note, error) {
	dependent, err := g.notes.Get(workspacePath, dependentNoteID)
	if err != nil {
		return nil, fmt.Errorf("creating prerequisite: %w", err)
	}

	if status == "" {
		status = models.TaskNotStarted
	}
	prereq, err := g.notes.Create(workspacePath, title, content, []string{"task"})
	if err != nil {
		return nil, fmt.Errorf("creating prerequisite: %w", err)
	}
	prereq.Task = &models.TaskMetadata{Status: status}
	if err := g.notes.Save(workspacePath, prereq); err != nil {
		return nil, fmt.Errorf("creating prerequisite: %w", err)
	}

	if dependent.Task == nil {
		dependent.Task = &models.TaskMetadata{Status: models.TaskNotStarted}
	}
	dependent.Task.Dependencies = append(dependent.Task.Dependencies, models.Dependency{
		NoteID: prereq.ID,
		Status: models.DependencyPending,
	})
	if err := g.notes.Save(workspacePath, dependent); err != nil {
		return nil, fmt.Errorf("creating prerequisite: saving dependent: %w", err)
	}

	g.log(workspacePath, "task:prerequisite_created", map[string]any{
		"dependentNoteId":    dependentNoteID,
		"prerequisiteNoteId": prereq.ID,
	})

	return prereq, nil
}

// AssignAgent appends agentID to the note's assigned-agents list. Duplicate
// assignment is a no-op, not an error.
func (g *taskGraph) AssignAgent(workspacePath, noteID, agentID string) error {
	note, err := g.notes.Get(workspacePath, noteID)
	if err != nil {
		return fmt.Errorf("assigning agent: %w", err)
	}
	if note.Task == nil {
		note.Task = &models.TaskMetadata{Status: models.TaskNotStarted}
	}
	for _, existing := range note.Task.AssignedAgents {
		if existing == agentID {
			return nil
		}
	}
	note.Task.AssignedAgents = append(note.Task.AssignedAgents, agentID)
	if err := g.notes.Save(workspacePath, note); err != nil {
		return fmt.Errorf("assigning agent: %w", err)
	}

	g.log(workspacePath, "task:assigned", map[string]any{
		"noteId":  noteID,
		"agentId": agentID,
	})
	return nil
}

// Delegate spins up a new agent, sends the task note's content as its first
// message, and records the agent on the note. Status is promoted from
// not_started to in_progress on first delegation only.
func (g *taskGraph) Delegate(ws *models.Workspace, taskNoteID, specialistID string) (string, error) {
	note, err := g.notes.Get(ws.Path, taskNoteID)
	if err != nil {
		return "", fmt.Errorf("delegating task: %w", err)
	}

	opts := integration.CreateAgentOptions{Label: note.Title}
	if specialistID != "" {
		if g.specialists == nil {
			return "", fmt.Errorf("delegating task: %w", ErrSpecialistNotFound)
		}
		profile, err := g.specialists.ResolveSpecialist(specialistID)
		if err != nil {
			return "", fmt.Errorf("delegating task: %w", err)
		}
		opts.SpecialistID = profile.ID
		opts.Model = profile.Model
		opts.SystemPrompt = profile.SystemPrompt
	}

	handle, err := g.convo.CreateAgent(ws, opts)
	if err != nil {
		return "", fmt.Errorf("delegating task: %w", err)
	}
	if _, err := g.convo.SendMessage(ws, handle.AgentID, note.Content); err != nil {
		return "", fmt.Errorf("delegating task: sending initial message: %w", err)
	}

	if note.Task == nil {
		note.Task = &models.TaskMetadata{Status: models.TaskNotStarted}
	}
	note.Task.AssignedAgents = append(note.Task.AssignedAgents, handle.AgentID)
	if note.Task.Status == models.TaskNotStarted {
		note.Task.Status = models.TaskInProgress
	}
	if err := g.notes.Save(ws.Path, note); err != nil {
		return "", fmt.Errorf("delegating task: %w", err)
	}

	g.log(ws.Path, "task:delegated", map[string]any{
		"noteId":  taskNoteID,
		"agentId": handle.AgentID,
	})

	return handle.AgentID, nil
}

// log records an activity event when logging is enabled. A failed append is
// reported on stderr, never silently dropped.
func (g *taskGraph) log(workspacePath, eventType string, data map[string]any) {
	if g.events == nil {
		return
	}
	if _, err := g.events.Append(workspacePath, eventType, systemActor, data); err != nil {
		fmt.Fprintf(os.Stderr, "warning: recording %s event: %v\n", eventType, err)
	}
}
