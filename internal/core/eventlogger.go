package core

import (
	"github.com/warren-dev/warren/pkg/models"
)

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability
// package.
type EventLogger interface {
	Append(workspacePath, eventType string, actor models.Actor, data map[string]any) (*models.WorkspaceEvent, error)
}

// systemActor is the actor recorded for events Warren itself causes.
var systemActor = models.Actor{Type: models.ActorTypeSystem}
