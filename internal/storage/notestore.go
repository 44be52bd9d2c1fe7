package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warren-dev/warren/pkg/models"
)

// NoteStore defines the interface for persisting notes, one JSON file per
// note under the workspace's state directory.
type NoteStore interface {
	Create(workspacePath, title, content string, tags []string) (*models.Note, error)
	Get(workspacePath, noteID string) (*models.Note, error)
	Save(workspacePath string, note *models.Note) error
	List(workspacePath string) ([]*models.Note, error)
	Delete(workspacePath, noteID string) error
}

type fileNoteStore struct{}

// NewNoteStore creates a NoteStore backed by per-note JSON files.
func NewNoteStore() NoteStore {
	return &fileNoteStore{}
}

func notePath(workspacePath, noteID string) string {
	return filepath.Join(NotesDir(workspacePath), noteID+".json")
}

// Create writes a new note with a fresh identifier and timestamps.
func (s *fileNoteStore) Create(workspacePath, title, content string, tags []string) (*models.Note, error) {
	now := time.Now().UTC()
	note := &models.Note{
		Version:   models.NoteSchemaVersion,
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Save(workspacePath, note); err != nil {
		return nil, fmt.Errorf("creating note: %w", err)
	}
	return note, nil
}

// Get loads a note by id. Returns ErrNoteNotFound for unknown ids.
func (s *fileNoteStore) Get(workspacePath, noteID string) (*models.Note, error) {
	data, err := os.ReadFile(notePath(workspacePath, noteID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("note %s: %w", noteID, ErrNoteNotFound)
		}
		return nil, fmt.Errorf("reading note %s: %w", noteID, err)
	}
	var note models.Note
	if err := json.Unmarshal(data, &note); err != nil {
		return nil, fmt.Errorf("parsing note %s: %w", noteID, err)
	}
	return &note, nil
}

// Save writes the whole note document, updating its timestamp. Concurrent
// savers are last-writer-wins; no locking is added on purpose.
func (s *fileNoteStore) Save(workspacePath string, note *models.Note) error {
	if note.ID == "" {
		return fmt.Errorf("saving note: id must not be empty")
	}
	if note.Version == 0 {
		note.Version = models.NoteSchemaVersion
	}
	note.UpdatedAt = time.Now().UTC()

	if err := os.MkdirAll(NotesDir(workspacePath), 0o750); err != nil {
		return fmt.Errorf("saving note %s: creating directory: %w", note.ID, err)
	}
	data, err := json.MarshalIndent(note, "", "  ")
	if err != nil {
		return fmt.Errorf("saving note %s: marshaling: %w", note.ID, err)
	}
	if err := os.WriteFile(notePath(workspacePath, note.ID), data, 0o600); err != nil {
		return fmt.Errorf("saving note %s: writing file: %w", note.ID, err)
	}
	return nil
}

// List returns every note in the workspace, sorted by creation time.
// Malformed or unrecognized files are skipped with a warning rather than
// failing the whole listing.
func (s *fileNoteStore) List(workspacePath string) ([]*models.Note, error) {
	entries, err := os.ReadDir(NotesDir(workspacePath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing notes: %w", err)
	}

	var notes []*models.Note
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		note, err := s.Get(workspacePath, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping unreadable note %s: %v\n", id, err)
			continue
		}
		if note.Version > models.NoteSchemaVersion {
			fmt.Fprintf(os.Stderr, "warning: skipping note %s with unknown schema version %d\n", id, note.Version)
			continue
		}
		notes = append(notes, note)
	}

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].CreatedAt.Before(notes[j].CreatedAt)
	})
	return notes, nil
}

// Delete removes a note's file. Unknown ids return ErrNoteNotFound.
func (s *fileNoteStore) Delete(workspacePath, noteID string) error {
	if err := os.Remove(notePath(workspacePath, noteID)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("note %s: %w", noteID, ErrNoteNotFound)
		}
		return fmt.Errorf("deleting note %s: %w", noteID, err)
	}
	return nil
}
