package core

import (
	"errors"

	"github.com/warren-dev/warren/internal/storage"
)

// Sentinel errors forming the error taxonomy shared across components.
// Document-lookup sentinels originate in the storage package and are
// re-exported here so callers only ever import one taxonomy. Callers
// discriminate with errors.Is; wrapping sites attach context via
// fmt.Errorf("...: %w", err).
var (
	// ErrWorkspaceNotFound indicates an unknown workspace id or path.
	ErrWorkspaceNotFound = storage.ErrWorkspaceNotFound

	// ErrNoteNotFound indicates an unknown note id.
	ErrNoteNotFound = storage.ErrNoteNotFound

	// ErrCommentNotFound indicates an unknown comment or thread id.
	ErrCommentNotFound = storage.ErrCommentNotFound

	// ErrSubscriptionNotFound indicates an unknown subscription id.
	ErrSubscriptionNotFound = storage.ErrSubscriptionNotFound

	// ErrTaskLineNotFound indicates that no checkbox line matched the
	// requested text or line number.
	ErrTaskLineNotFound = errors.New("task line not found")

	// ErrAmbiguousMatch indicates that a text-based lookup matched more
	// than one candidate; callers must disambiguate.
	ErrAmbiguousMatch = errors.New("ambiguous match")

	// ErrAnchorNotFound indicates that a comment's anchor text does not
	// occur in the note's current content.
	ErrAnchorNotFound = errors.New("anchor text not found")

	// ErrInvalidBaseRef indicates that the requested base ref could not be
	// resolved to a commit.
	ErrInvalidBaseRef = errors.New("invalid base ref")

	// ErrWorktreeCreationFailed indicates that git refused to materialize
	// the worktree. The wrapping error carries git's diagnostic output.
	ErrWorktreeCreationFailed = errors.New("worktree creation failed")

	// ErrSpecialistNotFound indicates an unknown specialist profile id.
	ErrSpecialistNotFound = errors.New("specialist not found")
)
