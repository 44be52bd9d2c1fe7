package observability

import (
	"testing"
	"time"

	"github.com/warren-dev/warren/pkg/models"
)

type deliveredBatch struct {
	sub    *models.Subscription
	events []*models.WorkspaceEvent
}

// startDispatcher runs a dispatcher in the background and returns the
// delivery channel. The brief pause gives the file watcher time to arm
// before the test appends records.
func startDispatcher(t *testing.T, dir string, reg SubscriptionRegistry) chan deliveredBatch {
	t.Helper()
	deliveries := make(chan deliveredBatch, 16)
	d := NewDispatcher(dir, reg, func(sub *models.Subscription, events []*models.WorkspaceEvent) {
		deliveries <- deliveredBatch{sub: sub, events: events}
	})
	go func() {
		if err := d.Run(); err != nil {
			t.Errorf("dispatcher run: %v", err)
		}
	}()
	t.Cleanup(d.Close)
	time.Sleep(200 * time.Millisecond)
	return deliveries
}

func waitDelivery(t *testing.T, deliveries chan deliveredBatch) deliveredBatch {
	t.Helper()
	select {
	case batch := <-deliveries:
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("no delivery within timeout")
		return deliveredBatch{}
	}
}

func TestDispatcherDeliversNewEvents(t *testing.T) {
	reg, dir := newTestRegistry(t)
	log := NewEventLog()

	// Present before the dispatcher starts, so it must never be delivered.
	if _, err := log.Append(dir, "file:changed", userActor("alice"), map[string]any{"path": "old.go"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if _, err := reg.Create(dir, &models.Subscription{
		AgentID:    "agent-1",
		EventTypes: []string{"file:*"},
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	deliveries := startDispatcher(t, dir, reg)

	appended, err := log.Append(dir, "file:changed", userActor("alice"), map[string]any{"path": "new.go"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	batch := waitDelivery(t, deliveries)
	if len(batch.events) != 1 {
		t.Fatalf("got %d events, want 1", len(batch.events))
	}
	if batch.events[0].ID != appended.ID {
		t.Errorf("delivered %s, want %s (history must be skipped)", batch.events[0].ID, appended.ID)
	}
	if batch.sub.AgentID != "agent-1" {
		t.Errorf("delivered to %s", batch.sub.AgentID)
	}
}

func TestDispatcherFiltersByType(t *testing.T) {
	reg, dir := newTestRegistry(t)
	log := NewEventLog()

	if _, err := reg.Create(dir, &models.Subscription{
		AgentID:    "agent-1",
		EventTypes: []string{"task:completed"},
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	deliveries := startDispatcher(t, dir, reg)

	if _, err := log.Append(dir, "git:commit", userActor("alice"), nil); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := log.Append(dir, "task:completed", userActor("alice"), nil); err != nil {
		t.Fatalf("Append: %v", err)
	}

	batch := waitDelivery(t, deliveries)
	if len(batch.events) != 1 || batch.events[0].Type != "task:completed" {
		t.Errorf("got %v, want only the matching event", batch.events)
	}

	select {
	case extra := <-deliveries:
		t.Errorf("unexpected extra delivery: %v", extra.events)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestDispatcherBatching(t *testing.T) {
	reg, dir := newTestRegistry(t)
	log := NewEventLog()

	if _, err := reg.Create(dir, &models.Subscription{
		AgentID:       "agent-1",
		EventTypes:    []string{"file:*"},
		BatchWindowMS: 500,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	deliveries := startDispatcher(t, dir, reg)

	for _, path := range []string{"a.go", "b.go", "c.go"} {
		if _, err := log.Append(dir, "file:changed", agentActor("agent-2"), map[string]any{"path": path}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	batch := waitDelivery(t, deliveries)
	if len(batch.events) != 3 {
		t.Errorf("got %d events in batch, want 3 coalesced", len(batch.events))
	}
}

func TestDispatcherOnceSubscription(t *testing.T) {
	reg, dir := newTestRegistry(t)
	log := NewEventLog()

	if _, err := reg.Create(dir, &models.Subscription{
		AgentID:    "agent-1",
		EventTypes: []string{"build:*"},
		Once:       true,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	deliveries := startDispatcher(t, dir, reg)

	if _, err := log.Append(dir, "build:finished", userActor("alice"), nil); err != nil {
		t.Fatalf("Append: %v", err)
	}

	waitDelivery(t, deliveries)

	subs, err := reg.List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("one-shot subscription survived delivery: %v", subs)
	}

	if _, err := log.Append(dir, "build:started", userActor("alice"), nil); err != nil {
		t.Fatalf("Append: %v", err)
	}
	select {
	case extra := <-deliveries:
		t.Errorf("retired subscription received %v", extra.events)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestDispatcherClose(t *testing.T) {
	reg, dir := newTestRegistry(t)

	d := NewDispatcher(dir, reg, nil)
	done := make(chan error, 1)
	go func() { done <- d.Run() }()
	time.Sleep(100 * time.Millisecond)

	d.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v after Close", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}

	// A second Close is a no-op.
	d.Close()
}
