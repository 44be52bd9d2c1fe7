package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/warren-dev/warren/pkg/models"
)

// registryFile is the on-disk envelope for the workspace registry.
type registryFile struct {
	Version    int                    `json:"version"`
	Workspaces []models.RegistryEntry `json:"workspaces"`
}

// Registry tracks known workspaces in a single top-level JSON file under the
// workspaces root. Discovery consults the registry first and falls back to a
// directory scan for the workspace marker file.
type Registry interface {
	Add(entry models.RegistryEntry) error
	Remove(id string) error
	Entries() ([]models.RegistryEntry, error)
	// Discover returns all known workspaces: registry entries first, then a
	// scan of the root and one level of subdirectories for the marker file.
	Discover() ([]*models.Workspace, error)
}

type fileRegistry struct {
	root string
}

// NewRegistry creates a Registry rooted at the given workspaces directory.
func NewRegistry(root string) Registry {
	return &fileRegistry{root: root}
}

func (r *fileRegistry) path() string {
	return filepath.Join(r.root, "registry.json")
}

func (r *fileRegistry) load() (*registryFile, error) {
	data, err := os.ReadFile(r.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &registryFile{Version: 1}, nil
		}
		return nil, fmt.Errorf("reading workspace registry: %w", err)
	}
	var rf registryFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing workspace registry: %w", err)
	}
	return &rf, nil
}

func (r *fileRegistry) save(rf *registryFile) error {
	if err := os.MkdirAll(r.root, 0o750); err != nil {
		return fmt.Errorf("saving workspace registry: creating root: %w", err)
	}
	data, err := json.MarshalIndent(rf, "", "  ")
	if err != nil {
		return fmt.Errorf("saving workspace registry: marshaling: %w", err)
	}
	if err := os.WriteFile(r.path(), data, 0o600); err != nil {
		return fmt.Errorf("saving workspace registry: writing file: %w", err)
	}
	return nil
}

// Add records a workspace in the registry, replacing any entry with the
// same id.
func (r *fileRegistry) Add(entry models.RegistryEntry) error {
	rf, err := r.load()
	if err != nil {
		return err
	}
	for i, e := range rf.Workspaces {
		if e.ID == entry.ID {
			rf.Workspaces[i] = entry
			return r.save(rf)
		}
	}
	rf.Workspaces = append(rf.Workspaces, entry)
	return r.save(rf)
}

// Remove drops a workspace from the registry. Removing an absent entry is
// not an error.
func (r *fileRegistry) Remove(id string) error {
	rf, err := r.load()
	if err != nil {
		return err
	}
	kept := rf.Workspaces[:0]
	for _, e := range rf.Workspaces {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	rf.Workspaces = kept
	return r.save(rf)
}

// Entries returns the raw registry entries.
func (r *fileRegistry) Entries() ([]models.RegistryEntry, error) {
	rf, err := r.load()
	if err != nil {
		return nil, err
	}
	return rf.Workspaces, nil
}

// Discover resolves registry entries into workspace records, falling back to
// a marker-file scan when the registry is empty or missing. Orphaned
// registry entries (path deleted out of band) and malformed metadata are
// skipped rather than failing the listing.
func (r *fileRegistry) Discover() ([]*models.Workspace, error) {
	entries, err := r.Entries()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var workspaces []*models.Workspace
	for _, e := range entries {
		ws, err := LoadMetadata(e.Path)
		if err != nil {
			continue
		}
		workspaces = append(workspaces, ws)
		seen[ws.Path] = struct{}{}
	}

	// Fallback scan: the root itself plus one level of subdirectories.
	for _, dir := range r.scanCandidates() {
		if _, dup := seen[dir]; dup {
			continue
		}
		ws, err := LoadMetadata(dir)
		if err != nil {
			continue
		}
		workspaces = append(workspaces, ws)
		seen[ws.Path] = struct{}{}
	}

	return workspaces, nil
}

func (r *fileRegistry) scanCandidates() []string {
	candidates := []string{r.root}
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return candidates
	}
	for _, e := range entries {
		if e.IsDir() {
			candidates = append(candidates, filepath.Join(r.root, e.Name()))
		}
	}
	return candidates
}
