package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/warren-dev/warren/pkg/models"
)

// commentFile is the on-disk envelope for one note's comments.
type commentFile struct {
	Version  int               `json:"version"`
	Comments []*models.Comment `json:"comments"`
}

// CommentStore persists comments, one JSON file per note holding that note's
// comment array.
type CommentStore interface {
	Add(workspacePath string, comment *models.Comment) error
	Get(workspacePath, noteID, commentID string) (*models.Comment, error)
	ListForNote(workspacePath, noteID string) ([]*models.Comment, error)
	Thread(workspacePath, noteID, threadID string) ([]*models.Comment, error)
	Update(workspacePath string, comment *models.Comment) error
}

type fileCommentStore struct{}

// NewCommentStore creates a CommentStore backed by per-note JSON files.
func NewCommentStore() CommentStore {
	return &fileCommentStore{}
}

func commentsPath(workspacePath, noteID string) string {
	return filepath.Join(CommentsDir(workspacePath), noteID+".json")
}

func (s *fileCommentStore) load(workspacePath, noteID string) (*commentFile, error) {
	data, err := os.ReadFile(commentsPath(workspacePath, noteID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &commentFile{Version: models.CommentSchemaVersion}, nil
		}
		return nil, fmt.Errorf("reading comments for note %s: %w", noteID, err)
	}
	var cf commentFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing comments for note %s: %w", noteID, err)
	}
	return &cf, nil
}

func (s *fileCommentStore) save(workspacePath, noteID string, cf *commentFile) error {
	if err := os.MkdirAll(CommentsDir(workspacePath), 0o750); err != nil {
		return fmt.Errorf("saving comments for note %s: creating directory: %w", noteID, err)
	}
	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return fmt.Errorf("saving comments for note %s: marshaling: %w", noteID, err)
	}
	if err := os.WriteFile(commentsPath(workspacePath, noteID), data, 0o600); err != nil {
		return fmt.Errorf("saving comments for note %s: writing file: %w", noteID, err)
	}
	return nil
}

// Add appends a comment to its note's comment file.
func (s *fileCommentStore) Add(workspacePath string, comment *models.Comment) error {
	if comment.NoteID == "" {
		return fmt.Errorf("adding comment: note id must not be empty")
	}
	cf, err := s.load(workspacePath, comment.NoteID)
	if err != nil {
		return err
	}
	cf.Comments = append(cf.Comments, comment)
	return s.save(workspacePath, comment.NoteID, cf)
}

// Get returns one comment by id, or ErrCommentNotFound.
func (s *fileCommentStore) Get(workspacePath, noteID, commentID string) (*models.Comment, error) {
	cf, err := s.load(workspacePath, noteID)
	if err != nil {
		return nil, err
	}
	for _, c := range cf.Comments {
		if c.ID == commentID {
			return c, nil
		}
	}
	return nil, fmt.Errorf("comment %s on note %s: %w", commentID, noteID, ErrCommentNotFound)
}

// ListForNote returns a note's comments in chronological order.
func (s *fileCommentStore) ListForNote(workspacePath, noteID string) ([]*models.Comment, error) {
	cf, err := s.load(workspacePath, noteID)
	if err != nil {
		return nil, err
	}
	comments := cf.Comments
	sort.Slice(comments, func(i, j int) bool {
		return comments[i].CreatedAt.Before(comments[j].CreatedAt)
	})
	return comments, nil
}

// Thread returns the chronologically ordered comments sharing a thread id.
// Returns ErrCommentNotFound when the thread has no comments.
func (s *fileCommentStore) Thread(workspacePath, noteID, threadID string) ([]*models.Comment, error) {
	all, err := s.ListForNote(workspacePath, noteID)
	if err != nil {
		return nil, err
	}
	var thread []*models.Comment
	for _, c := range all {
		if c.ThreadID == threadID {
			thread = append(thread, c)
		}
	}
	if len(thread) == 0 {
		return nil, fmt.Errorf("thread %s on note %s: %w", threadID, noteID, ErrCommentNotFound)
	}
	return thread, nil
}

// Update replaces a stored comment in place, matching on id.
func (s *fileCommentStore) Update(workspacePath string, comment *models.Comment) error {
	cf, err := s.load(workspacePath, comment.NoteID)
	if err != nil {
		return err
	}
	for i, c := range cf.Comments {
		if c.ID == comment.ID {
			cf.Comments[i] = comment
			return s.save(workspacePath, comment.NoteID, cf)
		}
	}
	return fmt.Errorf("comment %s on note %s: %w", comment.ID, comment.NoteID, ErrCommentNotFound)
}
