package observability

import (
	"reflect"
	"testing"

	"github.com/warren-dev/warren/internal/storage"
	"github.com/warren-dev/warren/pkg/models"
)

func newTestRegistry(t *testing.T) (SubscriptionRegistry, string) {
	t.Helper()
	dir := t.TempDir()
	return NewSubscriptionRegistry(storage.NewSubscriptionStore()), dir
}

func TestSubscriptionCreate(t *testing.T) {
	reg, dir := newTestRegistry(t)

	sub, err := reg.Create(dir, &models.Subscription{
		AgentID:    "agent-1",
		EventTypes: []string{"file:changed", "task:completed"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sub.ID == "" {
		t.Error("subscription id not assigned")
	}
	if sub.CreatedAt.IsZero() {
		t.Error("creation time not assigned")
	}
	if sub.Version != models.SubscriptionSchemaVersion {
		t.Errorf("version = %d", sub.Version)
	}

	subs, err := reg.List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != sub.ID {
		t.Errorf("List = %v", subs)
	}
}

func TestSubscriptionCreateValidation(t *testing.T) {
	reg, dir := newTestRegistry(t)

	if _, err := reg.Create(dir, &models.Subscription{EventTypes: []string{"file:*"}}); err == nil {
		t.Error("empty agent id accepted")
	}
	if _, err := reg.Create(dir, &models.Subscription{AgentID: "agent-1"}); err == nil {
		t.Error("empty event types accepted")
	}
}

func TestSubscriptionWildcardExpansion(t *testing.T) {
	reg, dir := newTestRegistry(t)

	sub, err := reg.Create(dir, &models.Subscription{
		AgentID:    "agent-1",
		EventTypes: []string{"*"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !reflect.DeepEqual(sub.EventTypes, CategoryWildcards) {
		t.Errorf("expanded to %v, want the fixed category set", sub.EventTypes)
	}
}

func TestExpandEventTypes(t *testing.T) {
	t.Run("passthrough unchanged", func(t *testing.T) {
		got := expandEventTypes([]string{"file:changed", "custom:thing"})
		want := []string{"file:changed", "custom:thing"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("star mixed with literals deduplicates", func(t *testing.T) {
		got := expandEventTypes([]string{"task:*", "*", "task:*"})
		if len(got) != len(CategoryWildcards) {
			t.Errorf("got %d entries, want %d: %v", len(got), len(CategoryWildcards), got)
		}
		if got[0] != "task:*" {
			t.Errorf("first entry = %q, first seen should keep its position", got[0])
		}
	})
}

func TestMatches(t *testing.T) {
	sub := &models.Subscription{
		AgentID:       "agent-1",
		EventTypes:    []string{"task:completed", "file:*"},
		ExcludeActors: []string{"agent-1"},
	}

	tests := []struct {
		name  string
		event *models.WorkspaceEvent
		want  bool
	}{
		{
			"literal match",
			&models.WorkspaceEvent{Type: "task:completed", Actor: models.Actor{Type: models.ActorTypeUser, ID: "alice"}},
			true,
		},
		{
			"category wildcard match",
			&models.WorkspaceEvent{Type: "file:changed", Actor: models.Actor{Type: models.ActorTypeAgent, ID: "agent-2"}},
			true,
		},
		{
			"unlisted type",
			&models.WorkspaceEvent{Type: "git:commit", Actor: models.Actor{Type: models.ActorTypeUser, ID: "alice"}},
			false,
		},
		{
			"excluded actor loses even on a matching type",
			&models.WorkspaceEvent{Type: "file:changed", Actor: models.Actor{Type: models.ActorTypeAgent, ID: "agent-1"}},
			false,
		},
		{
			"category prefix must be exact",
			&models.WorkspaceEvent{Type: "filesystem:changed", Actor: models.Actor{Type: models.ActorTypeUser, ID: "alice"}},
			false,
		},
		{
			"empty actor id is never excluded",
			&models.WorkspaceEvent{Type: "file:changed", Actor: models.Actor{Type: models.ActorTypeSystem}},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(sub, tt.event); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSubscriptionDelete(t *testing.T) {
	reg, dir := newTestRegistry(t)

	sub, err := reg.Create(dir, &models.Subscription{AgentID: "agent-1", EventTypes: []string{"git:*"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := reg.Delete(dir, sub.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	subs, err := reg.List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("subscription survived deletion: %v", subs)
	}
}
