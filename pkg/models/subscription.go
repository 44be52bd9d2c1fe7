package models

import "time"

// Subscription is a persisted filter describing which workspace events an
// agent cares about. It is pure data: delivery and batching are handled by
// the dispatcher tailing the event log.
type Subscription struct {
	Version       int       `json:"version"`
	ID            string    `json:"id"`
	AgentID       string    `json:"agentId"`
	AgentName     string    `json:"agentName,omitempty"`
	EventTypes    []string  `json:"eventTypes"`
	ExcludeActors []string  `json:"excludeActors,omitempty"`
	BatchWindowMS int       `json:"batchWindowMs,omitempty"`
	Once          bool      `json:"once,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// SubscriptionSchemaVersion is the current on-disk schema version for
// subscription documents.
const SubscriptionSchemaVersion = 1
