package core

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warren-dev/warren/internal/storage"
	"github.com/warren-dev/warren/pkg/models"
)

// CreateCommentOptions parameterize comment creation.
type CreateCommentOptions struct {
	NoteID     string
	Text       string
	AuthorName string
	AuthorType models.AuthorType
	Type       models.CommentType
	// ParentID threads the comment under an existing comment. Empty starts
	// a new thread rooted at this comment.
	ParentID string
	// Anchor attaches the comment to an exact substring of the note's
	// current content. Empty means unanchored.
	Anchor string
}

// ResolvedAnchor is the outcome of re-locating a comment's anchor text.
type ResolvedAnchor struct {
	Found bool `json:"found"`
	Start int  `json:"start"`
	End   int  `json:"end"`
}

// CommentManager creates, threads, and resolves comments on notes.
type CommentManager interface {
	Create(workspacePath string, opts CreateCommentOptions) (*models.Comment, error)
	ListForNote(workspacePath, noteID string) ([]*models.Comment, error)
	Thread(workspacePath, noteID, threadID string) ([]*models.Comment, error)
	SetStatus(workspacePath, noteID, commentID string, status models.CommentStatus) (*models.Comment, error)
	// ResolveAnchor re-searches the note's current content for the
	// comment's anchor text. Anchors silently fail to resolve when the
	// content was rewritten; that is not an error.
	ResolveAnchor(workspacePath, noteID, commentID string) (*ResolvedAnchor, error)
}

type commentManager struct {
	notes    storage.NoteStore
	comments storage.CommentStore
	events   EventLogger // may be nil
}

// NewCommentManager creates a CommentManager. events may be nil.
func NewCommentManager(notes storage.NoteStore, comments storage.CommentStore, events EventLogger) CommentManager {
	return &commentManager{notes: notes, comments: comments, events: events}
}

// Create validates the anchor against the note's current content, threads
// the comment, and persists it. The anchor must occur exactly once in the
// content: a missing anchor fails with ErrAnchorNotFound, an ambiguous one
// with ErrAmbiguousMatch. No persistent range is stored; anchors are
// re-resolved on read.
func (m *commentManager) Create(workspacePath string, opts CreateCommentOptions) (*models.Comment, error) {
	note, err := m.notes.Get(workspacePath, opts.NoteID)
	if err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	if opts.Anchor != "" {
		switch strings.Count(note.Content, opts.Anchor) {
		case 0:
			return nil, fmt.Errorf("anchor text not present in note %s: %w", opts.NoteID, ErrAnchorNotFound)
		case 1:
			// exactly one occurrence: unambiguous
		default:
			return nil, fmt.Errorf("anchor text occurs more than once in note %s: %w", opts.NoteID, ErrAmbiguousMatch)
		}
	}

	now := time.Now().UTC()
	comment := &models.Comment{
		Version:    models.CommentSchemaVersion,
		ID:         uuid.NewString(),
		NoteID:     opts.NoteID,
		Text:       opts.Text,
		AuthorName: opts.AuthorName,
		AuthorType: opts.AuthorType,
		Type:       opts.Type,
		Status:     models.CommentOpen,
		Anchor:     opts.Anchor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if comment.Type == "" {
		comment.Type = models.CommentPlain
	}

	if opts.ParentID != "" {
		parent, err := m.comments.Get(workspacePath, opts.NoteID, opts.ParentID)
		if err != nil {
			return nil, fmt.Errorf("creating comment: resolving parent: %w", err)
		}
		comment.ParentID = parent.ID
		comment.ThreadID = parent.ThreadID
	} else {
		// The root comment of a thread is its own thread id.
		comment.ThreadID = comment.ID
	}

	if err := m.comments.Add(workspacePath, comment); err != nil {
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	m.log(workspacePath, "note:commented", map[string]any{
		"noteId":    opts.NoteID,
		"commentId": comment.ID,
		"threadId":  comment.ThreadID,
	})
	return comment, nil
}

func (m *commentManager) ListForNote(workspacePath, noteID string) ([]*models.Comment, error) {
	return m.comments.ListForNote(workspacePath, noteID)
}

func (m *commentManager) Thread(workspacePath, noteID, threadID string) ([]*models.Comment, error) {
	return m.comments.Thread(workspacePath, noteID, threadID)
}

// SetStatus updates a comment's resolution state.
func (m *commentManager) SetStatus(workspacePath, noteID, commentID string, status models.CommentStatus) (*models.Comment, error) {
	comment, err := m.comments.Get(workspacePath, noteID, commentID)
	if err != nil {
		return nil, fmt.Errorf("updating comment status: %w", err)
	}
	comment.Status = status
	comment.UpdatedAt = time.Now().UTC()
	if err := m.comments.Update(workspacePath, comment); err != nil {
		return nil, fmt.Errorf("updating comment status: %w", err)
	}
	return comment, nil
}

// ResolveAnchor re-searches the note's current content for the originally
// anchored text. A stale or ambiguous anchor resolves to Found=false.
func (m *commentManager) ResolveAnchor(workspacePath, noteID, commentID string) (*ResolvedAnchor, error) {
	comment, err := m.comments.Get(workspacePath, noteID, commentID)
	if err != nil {
		return nil, fmt.Errorf("resolving anchor: %w", err)
	}
	if comment.Anchor == "" {
		return &ResolvedAnchor{}, nil
	}

	note, err := m.notes.Get(workspacePath, noteID)
	if err != nil {
		return nil, fmt.Errorf("resolving anchor: %w", err)
	}

	if strings.Count(note.Content, comment.Anchor) != 1 {
		return &ResolvedAnchor{}, nil
	}
	start := strings.Index(note.Content, comment.Anchor)
	return &ResolvedAnchor{
		Found: true,
		Start: start,
		End:   start + len(comment.Anchor),
	}, nil
}

func (m *commentManager) log(workspacePath, eventType string, data map[string]any) {
	if m.events == nil {
		return
	}
	if _, err := m.events.Append(workspacePath, eventType, systemActor, data); err != nil {
		fmt.Fprintf(os.Stderr, "warning: recording %s event: %v\n", eventType, err)
	}
}
