package observability

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/warren-dev/warren/internal/storage"
	"github.com/warren-dev/warren/pkg/models"
)

// QueryFilter specifies composable, independently optional predicates for
// reading events. Filters are applied as a sequential narrowing pipeline.
type QueryFilter struct {
	// Type matches the event type exactly.
	Type string
	// ActorType matches the actor's class (user, agent, system).
	ActorType models.ActorType
	// ActorID matches the actor's identifier.
	ActorID string
	// DataPrefix matches events whose payload contains a string value with
	// this prefix under the given key, expressed as "key:prefix".
	DataPrefix string
	// MinutesAgo keeps only events newer than the cutoff. Zero means no
	// cutoff.
	MinutesAgo int
	// Limit caps the result count, keeping the most recent events.
	Limit int
}

// EventLog is the append-only per-workspace activity journal. Records are
// newline-delimited JSON, monotonically growing, never rewritten in place.
type EventLog interface {
	// Append assigns a time-ordered unique id and the current timestamp,
	// then writes one record. Write failures are surfaced to the caller,
	// never silently dropped.
	Append(workspacePath, eventType string, actor models.Actor, data map[string]any) (*models.WorkspaceEvent, error)
	// Read returns records in append order. With a positive limit it
	// returns the most recent N, not the first N.
	Read(workspacePath string, limit int) ([]*models.WorkspaceEvent, error)
	// Query applies the filter pipeline. A missing log yields an empty
	// result, not an error.
	Query(workspacePath string, filter QueryFilter) ([]*models.WorkspaceEvent, error)
}

type jsonlEventLog struct {
	mu sync.Mutex
}

// NewEventLog creates the JSONL-backed event log.
func NewEventLog() EventLog {
	return &jsonlEventLog{}
}

// newEventID returns a time-ordered unique identifier: nanosecond timestamp
// plus a short random suffix so two appends in the same nanosecond stay
// distinct.
func newEventID(now time.Time) string {
	var suffix [4]byte
	_, _ = rand.Read(suffix[:])
	return fmt.Sprintf("%d-%s", now.UnixNano(), hex.EncodeToString(suffix[:]))
}

func (l *jsonlEventLog) Append(workspacePath, eventType string, actor models.Actor, data map[string]any) (*models.WorkspaceEvent, error) {
	now := time.Now().UTC()
	event := &models.WorkspaceEvent{
		ID:        newEventID(now),
		Type:      eventType,
		Timestamp: now,
		Actor:     actor,
		Data:      data,
	}

	line, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("appending event: marshaling: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(storage.StateDir(workspacePath), 0o750); err != nil {
		return nil, fmt.Errorf("appending event: creating state directory: %w", err)
	}
	f, err := os.OpenFile(storage.EventLogPath(workspacePath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("appending event: opening log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(line); err != nil {
		return nil, fmt.Errorf("appending event: writing: %w", err)
	}
	return event, nil
}

// readAll scans the whole log, skipping blank and malformed lines.
func (l *jsonlEventLog) readAll(workspacePath string) ([]*models.WorkspaceEvent, error) {
	f, err := os.Open(storage.EventLogPath(workspacePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []*models.WorkspaceEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event models.WorkspaceEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue // skip malformed lines
		}
		events = append(events, &event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}
	return events, nil
}

func (l *jsonlEventLog) Read(workspacePath string, limit int) ([]*models.WorkspaceEvent, error) {
	events, err := l.readAll(workspacePath)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

func (l *jsonlEventLog) Query(workspacePath string, filter QueryFilter) ([]*models.WorkspaceEvent, error) {
	events, err := l.readAll(workspacePath)
	if err != nil {
		return nil, err
	}

	events = filterEvents(events, filter)

	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[len(events)-filter.Limit:]
	}
	return events, nil
}

// filterEvents applies each predicate in turn, every filter only narrowing
// what survived the previous one.
func filterEvents(events []*models.WorkspaceEvent, filter QueryFilter) []*models.WorkspaceEvent {
	if filter.Type != "" {
		events = keep(events, func(e *models.WorkspaceEvent) bool {
			return e.Type == filter.Type
		})
	}
	if filter.ActorType != "" {
		events = keep(events, func(e *models.WorkspaceEvent) bool {
			return e.Actor.Type == filter.ActorType
		})
	}
	if filter.ActorID != "" {
		events = keep(events, func(e *models.WorkspaceEvent) bool {
			return e.Actor.ID == filter.ActorID
		})
	}
	if filter.DataPrefix != "" {
		key, prefix, _ := strings.Cut(filter.DataPrefix, ":")
		events = keep(events, func(e *models.WorkspaceEvent) bool {
			value, ok := e.Data[key].(string)
			return ok && strings.HasPrefix(value, prefix)
		})
	}
	if filter.MinutesAgo > 0 {
		cutoff := time.Now().UTC().Add(-time.Duration(filter.MinutesAgo) * time.Minute)
		events = keep(events, func(e *models.WorkspaceEvent) bool {
			return e.Timestamp.After(cutoff)
		})
	}
	return events
}

func keep(events []*models.WorkspaceEvent, pred func(*models.WorkspaceEvent) bool) []*models.WorkspaceEvent {
	var out []*models.WorkspaceEvent
	for _, e := range events {
		if pred(e) {
			out = append(out, e)
		}
	}
	return out
}
