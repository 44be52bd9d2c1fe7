package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/warren-dev/warren/pkg/models"
)

func writeTestWorkspace(t *testing.T, root, id string) *models.Workspace {
	t.Helper()
	ws := &models.Workspace{
		ID:        id,
		Title:     id,
		Path:      filepath.Join(root, id),
		Branch:    "warren/" + id,
		Status:    models.WorkspaceActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := SaveMetadata(ws); err != nil {
		t.Fatalf("saving metadata for %s: %v", id, err)
	}
	return ws
}

func TestRegistryAddRemove(t *testing.T) {
	root := t.TempDir()
	reg := NewRegistry(root)

	if err := reg.Add(models.RegistryEntry{ID: "brave-otter", Path: filepath.Join(root, "brave-otter")}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	t.Run("add replaces same id", func(t *testing.T) {
		updated := models.RegistryEntry{ID: "brave-otter", Path: filepath.Join(root, "elsewhere")}
		if err := reg.Add(updated); err != nil {
			t.Fatalf("Add: %v", err)
		}
		entries, err := reg.Entries()
		if err != nil {
			t.Fatalf("Entries: %v", err)
		}
		if len(entries) != 1 || entries[0].Path != updated.Path {
			t.Errorf("entries = %+v", entries)
		}
	})

	t.Run("remove is tolerant of absent ids", func(t *testing.T) {
		if err := reg.Remove("never-existed"); err != nil {
			t.Errorf("Remove: %v", err)
		}
	})

	t.Run("remove drops the entry", func(t *testing.T) {
		if err := reg.Remove("brave-otter"); err != nil {
			t.Fatalf("Remove: %v", err)
		}
		entries, _ := reg.Entries()
		if len(entries) != 0 {
			t.Errorf("entries = %+v", entries)
		}
	})
}

func TestRegistryDiscover(t *testing.T) {
	t.Run("resolves registry entries", func(t *testing.T) {
		root := t.TempDir()
		reg := NewRegistry(root)
		ws := writeTestWorkspace(t, root, "calm-heron")
		if err := reg.Add(models.RegistryEntry{ID: ws.ID, Path: ws.Path}); err != nil {
			t.Fatalf("Add: %v", err)
		}

		found, err := reg.Discover()
		if err != nil {
			t.Fatalf("Discover: %v", err)
		}
		if len(found) != 1 || found[0].ID != "calm-heron" {
			t.Errorf("found = %+v", found)
		}
	})

	t.Run("falls back to marker scan for unregistered workspaces", func(t *testing.T) {
		root := t.TempDir()
		reg := NewRegistry(root)
		writeTestWorkspace(t, root, "quiet-finch")

		found, err := reg.Discover()
		if err != nil {
			t.Fatalf("Discover: %v", err)
		}
		if len(found) != 1 || found[0].ID != "quiet-finch" {
			t.Errorf("found = %+v", found)
		}
	})

	t.Run("skips orphaned registry entries", func(t *testing.T) {
		root := t.TempDir()
		reg := NewRegistry(root)
		if err := reg.Add(models.RegistryEntry{ID: "ghost", Path: filepath.Join(root, "ghost")}); err != nil {
			t.Fatalf("Add: %v", err)
		}

		found, err := reg.Discover()
		if err != nil {
			t.Fatalf("Discover: %v", err)
		}
		if len(found) != 0 {
			t.Errorf("found = %+v, want orphan skipped", found)
		}
	})

	t.Run("does not double-count registered workspaces", func(t *testing.T) {
		root := t.TempDir()
		reg := NewRegistry(root)
		ws := writeTestWorkspace(t, root, "swift-gecko")
		if err := reg.Add(models.RegistryEntry{ID: ws.ID, Path: ws.Path}); err != nil {
			t.Fatalf("Add: %v", err)
		}

		found, err := reg.Discover()
		if err != nil {
			t.Fatalf("Discover: %v", err)
		}
		if len(found) != 1 {
			t.Errorf("found %d workspaces, want 1", len(found))
		}
	})
}
