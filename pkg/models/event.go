package models

import "time"

// ActorType identifies the class of actor that produced an event.
type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeAgent  ActorType = "agent"
	ActorTypeSystem ActorType = "system"
)

// Actor identifies who caused a workspace event.
type Actor struct {
	Type ActorType `json:"type"`
	ID   string    `json:"id,omitempty"`
}

// WorkspaceEvent is one immutable record in a workspace's append-only
// activity log. Type is colon-namespaced, e.g. "file:changed" or
// "task:completed".
type WorkspaceEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     Actor          `json:"actor"`
	Data      map[string]any `json:"data,omitempty"`
}
