package observability

import (
	"os"
	"testing"
	"time"

	"github.com/warren-dev/warren/internal/storage"
	"github.com/warren-dev/warren/pkg/models"
)

func userActor(id string) models.Actor {
	return models.Actor{Type: models.ActorTypeUser, ID: id}
}

func agentActor(id string) models.Actor {
	return models.Actor{Type: models.ActorTypeAgent, ID: id}
}

func TestEventLogAppendRead(t *testing.T) {
	dir := t.TempDir()
	log := NewEventLog()

	first, err := log.Append(dir, "task:created", userActor("alice"), map[string]any{"title": "Fix parser"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if first.ID == "" {
		t.Error("event id not assigned")
	}
	if first.Timestamp.IsZero() {
		t.Error("timestamp not assigned")
	}

	second, err := log.Append(dir, "task:completed", agentActor("agent-1"), nil)
	if err != nil {
		t.Fatalf("Append second: %v", err)
	}
	if second.ID == first.ID {
		t.Error("event ids collide")
	}

	events, err := log.Read(dir, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].ID != first.ID || events[1].ID != second.ID {
		t.Error("events not in append order")
	}
	if events[0].Data["title"] != "Fix parser" {
		t.Errorf("data = %v", events[0].Data)
	}
}

func TestEventLogReadLimit(t *testing.T) {
	dir := t.TempDir()
	log := NewEventLog()

	for _, typ := range []string{"git:commit", "git:push", "git:pull"} {
		if _, err := log.Append(dir, typ, userActor("u"), nil); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	// A positive limit keeps the most recent records, not the oldest.
	events, err := log.Read(dir, 2)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != "git:push" || events[1].Type != "git:pull" {
		t.Errorf("got %s, %s", events[0].Type, events[1].Type)
	}
}

func TestEventLogMissingLog(t *testing.T) {
	dir := t.TempDir()
	log := NewEventLog()

	events, err := log.Read(dir, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events from empty workspace", len(events))
	}

	events, err = log.Query(dir, QueryFilter{Type: "anything"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events from empty workspace", len(events))
	}
}

func TestEventLogSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	log := NewEventLog()

	if _, err := log.Append(dir, "build:started", userActor("u"), nil); err != nil {
		t.Fatalf("Append: %v", err)
	}

	f, err := os.OpenFile(storage.EventLogPath(dir), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("opening log: %v", err)
	}
	if _, err := f.WriteString("not json at all\n\n"); err != nil {
		t.Fatalf("writing garbage: %v", err)
	}
	_ = f.Close()

	if _, err := log.Append(dir, "build:finished", userActor("u"), nil); err != nil {
		t.Fatalf("Append after garbage: %v", err)
	}

	events, err := log.Read(dir, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (garbage skipped)", len(events))
	}
	if events[0].Type != "build:started" || events[1].Type != "build:finished" {
		t.Errorf("got %s, %s", events[0].Type, events[1].Type)
	}
}

func TestEventLogQuery(t *testing.T) {
	dir := t.TempDir()
	log := NewEventLog()

	appends := []struct {
		typ   string
		actor models.Actor
		data  map[string]any
	}{
		{"file:changed", agentActor("agent-1"), map[string]any{"path": "src/main.go"}},
		{"file:changed", agentActor("agent-2"), map[string]any{"path": "docs/readme.md"}},
		{"task:completed", userActor("alice"), map[string]any{"path": "src/util.go"}},
		{"file:deleted", agentActor("agent-1"), nil},
	}
	for _, a := range appends {
		if _, err := log.Append(dir, a.typ, a.actor, a.data); err != nil {
			t.Fatalf("Append %s: %v", a.typ, err)
		}
	}

	t.Run("by type", func(t *testing.T) {
		events, err := log.Query(dir, QueryFilter{Type: "file:changed"})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(events) != 2 {
			t.Errorf("got %d events, want 2", len(events))
		}
	})

	t.Run("by actor type", func(t *testing.T) {
		events, err := log.Query(dir, QueryFilter{ActorType: models.ActorTypeUser})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(events) != 1 || events[0].Type != "task:completed" {
			t.Errorf("got %v", events)
		}
	})

	t.Run("by actor id", func(t *testing.T) {
		events, err := log.Query(dir, QueryFilter{ActorID: "agent-1"})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(events) != 2 {
			t.Errorf("got %d events, want 2", len(events))
		}
	})

	t.Run("by data prefix", func(t *testing.T) {
		events, err := log.Query(dir, QueryFilter{DataPrefix: "path:src/"})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
		for _, e := range events {
			if e.Type == "file:deleted" {
				t.Error("event without the data key matched a prefix filter")
			}
		}
	})

	t.Run("filters compose", func(t *testing.T) {
		events, err := log.Query(dir, QueryFilter{Type: "file:changed", ActorID: "agent-2"})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(events) != 1 {
			t.Errorf("got %d events, want 1", len(events))
		}
	})

	t.Run("zero minutes means no cutoff", func(t *testing.T) {
		events, err := log.Query(dir, QueryFilter{MinutesAgo: 0})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(events) != 4 {
			t.Errorf("got %d events, want 4", len(events))
		}
	})

	t.Run("recent cutoff keeps fresh events", func(t *testing.T) {
		events, err := log.Query(dir, QueryFilter{MinutesAgo: 60})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(events) != 4 {
			t.Errorf("got %d events, want 4", len(events))
		}
	})

	t.Run("limit keeps most recent", func(t *testing.T) {
		events, err := log.Query(dir, QueryFilter{ActorID: "agent-1", Limit: 1})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(events) != 1 || events[0].Type != "file:deleted" {
			t.Errorf("got %v", events)
		}
	})
}

func TestEventLogTimeCutoff(t *testing.T) {
	old := filterEvents([]*models.WorkspaceEvent{
		{Type: "git:commit", Timestamp: time.Now().UTC().Add(-2 * time.Hour)},
		{Type: "git:push", Timestamp: time.Now().UTC()},
	}, QueryFilter{MinutesAgo: 30})
	if len(old) != 1 || old[0].Type != "git:push" {
		t.Errorf("got %v, want only the fresh event", old)
	}
}
