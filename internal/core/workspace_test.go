package core

import (
	"errors"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/warren-dev/warren/internal/integration"
	"github.com/warren-dev/warren/internal/storage"
	"github.com/warren-dev/warren/pkg/models"
)

// setupTestGitRepo creates a repository with one commit on branch main.
func setupTestGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	run("init", "-b", "main")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("writing README: %v", err)
	}
	run("add", ".")
	run("commit", "-m", "initial commit")

	return dir
}

func newTestWorkspaceManager(t *testing.T) (WorkspaceManager, string, string) {
	t.Helper()
	repo := setupTestGitRepo(t)
	root := t.TempDir()

	mgr := NewWorkspaceManager(
		root,
		integration.NewGitAdapter(),
		integration.NewProcessRunner(),
		storage.NewRegistry(root),
		storage.NewNoteStore(),
		NewWorkspaceIDGenerator(rand.NewSource(42)),
		nil,
	)
	return mgr, repo, root
}

func TestWorkspaceCreate(t *testing.T) {
	mgr, repo, root := newTestWorkspaceManager(t)

	ws, err := mgr.Create(CreateWorkspaceOptions{
		RepoPath: repo,
		Title:    "Feature work",
		BaseRef:  "main",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if ws.Title != "Feature work" {
		t.Errorf("title = %q", ws.Title)
	}
	if ws.Branch != "warren/"+ws.ID {
		t.Errorf("branch = %q, want derived from id %q", ws.Branch, ws.ID)
	}
	if ws.Status != models.WorkspaceActive {
		t.Errorf("status = %q, want active", ws.Status)
	}
	if ws.BaseCommit == "" {
		t.Error("base commit not resolved")
	}
	if filepath.Dir(ws.Path) != root {
		t.Errorf("workspace path %q not under root %q", ws.Path, root)
	}

	// The worktree is a real checkout.
	if _, err := os.Stat(filepath.Join(ws.Path, "README.md")); err != nil {
		t.Errorf("worktree missing checkout: %v", err)
	}
	// Metadata marker exists inside the state dir.
	if _, err := os.Stat(storage.MetadataPath(ws.Path)); err != nil {
		t.Errorf("metadata not written: %v", err)
	}

	// The workspace is seeded with a spec note.
	notes, err := storage.NewNoteStore().List(ws.Path)
	if err != nil {
		t.Fatalf("listing notes: %v", err)
	}
	if len(notes) != 1 || notes[0].Title != "Spec" {
		t.Errorf("seed notes = %+v", notes)
	}

	// Discoverable through the manager.
	got, err := mgr.Get(ws.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != ws.ID {
		t.Errorf("Get returned %q", got.ID)
	}
}

func TestWorkspaceCreateDefaultTitle(t *testing.T) {
	mgr, repo, _ := newTestWorkspaceManager(t)

	ws, err := mgr.Create(CreateWorkspaceOptions{RepoPath: repo, BaseRef: "main"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ws.Title != ws.ID {
		t.Errorf("title = %q, want the generated id %q", ws.Title, ws.ID)
	}

	// The default survives persistence.
	got, err := mgr.Get(ws.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != ws.ID {
		t.Errorf("persisted title = %q, want %q", got.Title, ws.ID)
	}
}

func TestWorkspaceCreateErrors(t *testing.T) {
	mgr, repo, _ := newTestWorkspaceManager(t)

	t.Run("empty repo path", func(t *testing.T) {
		if _, err := mgr.Create(CreateWorkspaceOptions{BaseRef: "main"}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("empty base ref", func(t *testing.T) {
		if _, err := mgr.Create(CreateWorkspaceOptions{RepoPath: repo}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("invalid base ref", func(t *testing.T) {
		_, err := mgr.Create(CreateWorkspaceOptions{RepoPath: repo, BaseRef: "no-such-branch"})
		if !errors.Is(err, ErrInvalidBaseRef) {
			t.Errorf("err = %v, want ErrInvalidBaseRef", err)
		}
	})
}

func TestWorkspaceArchiveUnarchive(t *testing.T) {
	mgr, repo, _ := newTestWorkspaceManager(t)
	ws, err := mgr.Create(CreateWorkspaceOptions{RepoPath: repo, BaseRef: "main"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	archived, err := mgr.Archive(ws.Path)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if archived.Status != models.WorkspaceArchived {
		t.Errorf("status = %q, want archived", archived.Status)
	}

	// Idempotent.
	again, err := mgr.Archive(ws.Path)
	if err != nil {
		t.Fatalf("Archive twice: %v", err)
	}
	if again.Status != models.WorkspaceArchived {
		t.Errorf("status = %q", again.Status)
	}

	// Files survive archival.
	if _, err := os.Stat(filepath.Join(ws.Path, "README.md")); err != nil {
		t.Errorf("archive deleted files: %v", err)
	}

	restored, err := mgr.Unarchive(ws.Path)
	if err != nil {
		t.Fatalf("Unarchive: %v", err)
	}
	if restored.Status != models.WorkspaceActive {
		t.Errorf("status = %q, want active", restored.Status)
	}
}

func TestWorkspaceDestroy(t *testing.T) {
	t.Run("destroys a healthy workspace", func(t *testing.T) {
		mgr, repo, _ := newTestWorkspaceManager(t)
		ws, err := mgr.Create(CreateWorkspaceOptions{RepoPath: repo, BaseRef: "main"})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}

		if err := mgr.Destroy(ws); err != nil {
			t.Fatalf("Destroy: %v", err)
		}
		if _, err := os.Stat(ws.Path); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("workspace directory still present: %v", err)
		}
		if _, err := mgr.Get(ws.ID); !errors.Is(err, ErrWorkspaceNotFound) {
			t.Errorf("workspace still discoverable: %v", err)
		}
	})

	t.Run("destroys a workspace whose worktree was manually deleted", func(t *testing.T) {
		mgr, repo, _ := newTestWorkspaceManager(t)
		ws, err := mgr.Create(CreateWorkspaceOptions{RepoPath: repo, BaseRef: "main"})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}

		if err := os.RemoveAll(ws.Path); err != nil {
			t.Fatalf("simulating manual deletion: %v", err)
		}
		if err := mgr.Destroy(ws); err != nil {
			t.Fatalf("Destroy after manual deletion: %v", err)
		}
		if _, err := mgr.Get(ws.ID); !errors.Is(err, ErrWorkspaceNotFound) {
			t.Errorf("workspace still discoverable: %v", err)
		}
	})
}

func TestWorkspaceList(t *testing.T) {
	mgr, repo, _ := newTestWorkspaceManager(t)

	first, err := mgr.Create(CreateWorkspaceOptions{RepoPath: repo, BaseRef: "main"})
	if err != nil {
		t.Fatalf("Create first: %v", err)
	}
	second, err := mgr.Create(CreateWorkspaceOptions{RepoPath: repo, BaseRef: "main"})
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("duplicate workspace ids: %q", first.ID)
	}

	workspaces, err := mgr.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(workspaces) != 2 {
		t.Errorf("List returned %d workspaces, want 2", len(workspaces))
	}
}
