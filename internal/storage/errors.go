package storage

import "errors"

// Sentinel errors for document lookups. Higher layers re-export these as
// part of the shared error taxonomy; callers discriminate with errors.Is.
var (
	ErrNoteNotFound         = errors.New("note not found")
	ErrCommentNotFound      = errors.New("comment not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrWorkspaceNotFound    = errors.New("workspace not found")
)
