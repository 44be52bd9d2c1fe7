package models

import "time"

// TaskStatus represents the lifecycle state of a task note.
type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not_started"
	TaskInProgress TaskStatus = "in_progress"
	TaskBlocked    TaskStatus = "blocked"
	TaskDone       TaskStatus = "done"
)

// DependencyStatus tracks whether a prerequisite has been satisfied.
type DependencyStatus string

const (
	DependencyPending  DependencyStatus = "pending"
	DependencyResolved DependencyStatus = "resolved"
)

// Dependency is one prerequisite record on a task note. The graph formed by
// these records is advisory: cycles are not detected or rejected.
type Dependency struct {
	NoteID string           `json:"prerequisiteNoteId"`
	Status DependencyStatus `json:"status"`
}

// TaskMetadata turns a plain note into a task note: a discrete, delegatable
// unit of work with status, acceptance criteria, assignees, and prerequisites.
type TaskMetadata struct {
	Status             TaskStatus   `json:"status"`
	AcceptanceCriteria []string     `json:"acceptanceCriteria,omitempty"`
	AssignedAgents     []string     `json:"assignedAgents,omitempty"`
	Dependencies       []Dependency `json:"dependencies,omitempty"`
}

// Note is a persisted collaborative document. Humans and agents read and
// mutate the same note by identifier; concurrent saves are last-writer-wins.
type Note struct {
	Version   int           `json:"version"`
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Content   string        `json:"content"`
	Tags      []string      `json:"tags,omitempty"`
	Task      *TaskMetadata `json:"task,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// NoteSchemaVersion is the current on-disk schema version for note documents.
const NoteSchemaVersion = 1

// IsTask reports whether the note carries task metadata.
func (n *Note) IsTask() bool {
	return n.Task != nil
}
