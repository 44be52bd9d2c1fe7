package models

import "time"

// AgentServerInfo describes a running per-workspace backend process. It is
// persisted inside the workspace's state directory so a second coordinator
// process can re-attach to a still-running backend instead of starting a
// duplicate.
type AgentServerInfo struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	BaseURL   string    `json:"baseUrl"`
	StartedAt time.Time `json:"startedAt"`
}

// ServerState is the in-memory lifecycle state of a workspace's backend.
type ServerState string

const (
	ServerUnknown  ServerState = "unknown"
	ServerStarting ServerState = "starting"
	ServerRunning  ServerState = "running"
	ServerStopped  ServerState = "stopped"
	ServerError    ServerState = "error"
)
