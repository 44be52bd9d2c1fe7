// Package storage persists Warren's documents: notes, comments,
// subscriptions, server connection info, workspace metadata, and the
// top-level workspace registry. Every document is a UTF-8 JSON file; reads
// and writes are whole-file operations with last-writer-wins semantics.
package storage

import "path/filepath"

// StateDirName is the name of the private state directory inside each
// workspace root.
const StateDirName = ".warren"

// StateDir returns the private state directory for a workspace.
func StateDir(workspacePath string) string {
	return filepath.Join(workspacePath, StateDirName)
}

// NotesDir returns the notes directory for a workspace.
func NotesDir(workspacePath string) string {
	return filepath.Join(StateDir(workspacePath), "notes")
}

// CommentsDir returns the comments directory for a workspace.
func CommentsDir(workspacePath string) string {
	return filepath.Join(StateDir(workspacePath), "comments")
}

// SubscriptionsDir returns the subscriptions directory for a workspace.
func SubscriptionsDir(workspacePath string) string {
	return filepath.Join(StateDir(workspacePath), "subscriptions")
}

// EventLogPath returns the JSONL event log path for a workspace.
func EventLogPath(workspacePath string) string {
	return filepath.Join(StateDir(workspacePath), "events.jsonl")
}

// ServerInfoPath returns the agent-server connection info path for a workspace.
func ServerInfoPath(workspacePath string) string {
	return filepath.Join(StateDir(workspacePath), "server.json")
}

// MetadataPath returns the workspace metadata marker file path. Its presence
// is what identifies a directory as a workspace during discovery scans.
func MetadataPath(workspacePath string) string {
	return filepath.Join(StateDir(workspacePath), "metadata.json")
}
