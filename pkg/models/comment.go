package models

import "time"

// AuthorType identifies who wrote a comment.
type AuthorType string

const (
	AuthorUser  AuthorType = "user"
	AuthorAgent AuthorType = "agent"
)

// CommentType is the semantic category of a comment.
type CommentType string

const (
	CommentPlain         CommentType = "comment"
	CommentSuggestion    CommentType = "suggestion"
	CommentQuestion      CommentType = "question"
	CommentChangeRequest CommentType = "change-request"
)

// CommentStatus tracks the resolution state of a comment.
type CommentStatus string

const (
	CommentOpen     CommentStatus = "open"
	CommentPending  CommentStatus = "pending"
	CommentResolved CommentStatus = "resolved"
)

// Comment is a threaded annotation on a note. Comments sharing a ThreadID
// form one chronologically ordered thread; the root comment's ID is the
// thread ID. Anchor holds the exact substring of the note's content the
// comment was attached to at creation time. Anchors are re-resolved against
// the current content on read, so they silently go stale if the note is
// rewritten.
type Comment struct {
	Version    int           `json:"version"`
	ID         string        `json:"id"`
	NoteID     string        `json:"noteId"`
	Text       string        `json:"text"`
	AuthorName string        `json:"authorName"`
	AuthorType AuthorType    `json:"authorType"`
	Type       CommentType   `json:"type"`
	Status     CommentStatus `json:"status"`
	ThreadID   string        `json:"threadId"`
	ParentID   string        `json:"parentId,omitempty"`
	Anchor     string        `json:"anchor,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// CommentSchemaVersion is the current on-disk schema version for comment files.
const CommentSchemaVersion = 1
