package observability

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/warren-dev/warren/internal/storage"
	"github.com/warren-dev/warren/pkg/models"
)

// DeliverFunc receives a batch of matched events for one subscription. The
// transport (MCP notification, CLI print, agent message) is the caller's
// concern; the dispatcher only decides what and when.
type DeliverFunc func(sub *models.Subscription, events []*models.WorkspaceEvent)

// Dispatcher tails a workspace's event log and delivers filtered, batched
// notifications to subscribers, so agents can react to each other without
// polling shared state.
type Dispatcher struct {
	workspacePath string
	registry      SubscriptionRegistry
	deliver       DeliverFunc

	mu      sync.Mutex
	offset  int64
	pending map[string][]*models.WorkspaceEvent // keyed by subscription id
	timers  map[string]*time.Timer
	done    chan struct{}
	closed  bool
}

// NewDispatcher creates a Dispatcher for one workspace. Call Run to start
// tailing and Close to stop.
func NewDispatcher(workspacePath string, registry SubscriptionRegistry, deliver DeliverFunc) *Dispatcher {
	return &Dispatcher{
		workspacePath: workspacePath,
		registry:      registry,
		deliver:       deliver,
		pending:       make(map[string][]*models.WorkspaceEvent),
		timers:        make(map[string]*time.Timer),
		done:          make(chan struct{}),
	}
}

// Run watches the event log file and dispatches newly appended records as
// they arrive. It blocks until Close is called or the watcher fails.
// Records already present when Run starts are skipped: subscribers react to
// new activity, not history.
func (d *Dispatcher) Run() error {
	logPath := storage.EventLogPath(d.workspacePath)

	if info, err := os.Stat(logPath); err == nil {
		d.mu.Lock()
		d.offset = info.Size()
		d.mu.Unlock()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting dispatcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the state directory rather than the file so creation of a not
	// yet existing log is observed too.
	if err := os.MkdirAll(storage.StateDir(d.workspacePath), 0o750); err != nil {
		return fmt.Errorf("starting dispatcher: %w", err)
	}
	if err := watcher.Add(storage.StateDir(d.workspacePath)); err != nil {
		return fmt.Errorf("starting dispatcher: watching state dir: %w", err)
	}

	for {
		select {
		case <-d.done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != logPath || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := d.consumeNew(logPath); err != nil {
				fmt.Fprintf(os.Stderr, "warning: dispatcher read failed: %v\n", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("dispatcher watcher: %w", err)
		}
	}
}

// consumeNew reads records appended since the last offset and routes them.
func (d *Dispatcher) consumeNew(logPath string) error {
	f, err := os.Open(logPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	d.mu.Lock()
	offset := d.offset
	d.mu.Unlock()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(f)
	var consumed int64
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			// Partial line: leave it for the next write notification.
			break
		}
		consumed += int64(len(line))

		var event models.WorkspaceEvent
		if unmarshalErr := json.Unmarshal(line, &event); unmarshalErr != nil {
			continue
		}
		d.route(&event)
	}

	d.mu.Lock()
	d.offset = offset + consumed
	d.mu.Unlock()
	return nil
}

// route matches one event against all current subscriptions, batching or
// delivering immediately per subscription policy.
func (d *Dispatcher) route(event *models.WorkspaceEvent) {
	subs, err := d.registry.List(d.workspacePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: dispatcher could not list subscriptions: %v\n", err)
		return
	}

	for _, sub := range subs {
		if !Matches(sub, event) {
			continue
		}
		if sub.BatchWindowMS <= 0 {
			d.flush(sub, []*models.WorkspaceEvent{event})
			continue
		}
		d.enqueue(sub, event)
	}
}

// enqueue adds the event to the subscription's pending batch, arming a
// flush timer on the first event of a batch.
func (d *Dispatcher) enqueue(sub *models.Subscription, event *models.WorkspaceEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.pending[sub.ID] = append(d.pending[sub.ID], event)
	if _, armed := d.timers[sub.ID]; armed {
		return
	}

	window := time.Duration(sub.BatchWindowMS) * time.Millisecond
	d.timers[sub.ID] = time.AfterFunc(window, func() {
		d.mu.Lock()
		batch := d.pending[sub.ID]
		delete(d.pending, sub.ID)
		delete(d.timers, sub.ID)
		d.mu.Unlock()

		if len(batch) > 0 {
			d.flush(sub, batch)
		}
	})
}

// flush delivers a batch and retires one-shot subscriptions.
func (d *Dispatcher) flush(sub *models.Subscription, events []*models.WorkspaceEvent) {
	if d.deliver != nil {
		d.deliver(sub, events)
	}
	if sub.Once {
		if err := d.registry.Delete(d.workspacePath, sub.ID); err != nil {
			fmt.Fprintf(os.Stderr, "warning: removing one-shot subscription %s: %v\n", sub.ID, err)
		}
	}
}

// Close stops the dispatcher and cancels pending batch timers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
	}
	d.mu.Unlock()
	close(d.done)
}
