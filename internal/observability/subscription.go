package observability

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warren-dev/warren/internal/storage"
	"github.com/warren-dev/warren/pkg/models"
)

// CategoryWildcards is the fixed, closed set of valid category patterns. A
// bare "*" subscription expands to exactly this set at creation time, so
// adding a new category means updating this list, not the matching logic.
var CategoryWildcards = []string{
	"agent:*",
	"file:*",
	"task:*",
	"git:*",
	"note:*",
	"terminal:*",
	"test:*",
	"build:*",
}

// SubscriptionRegistry creates and enumerates persisted event subscriptions.
type SubscriptionRegistry interface {
	Create(workspacePath string, sub *models.Subscription) (*models.Subscription, error)
	List(workspacePath string) ([]*models.Subscription, error)
	Delete(workspacePath, subID string) error
}

type subscriptionRegistry struct {
	store storage.SubscriptionStore
}

// NewSubscriptionRegistry creates a SubscriptionRegistry over the given store.
func NewSubscriptionRegistry(store storage.SubscriptionStore) SubscriptionRegistry {
	return &subscriptionRegistry{store: store}
}

// Create assigns an id and creation timestamp, expands a bare "*" into the
// fixed wildcard set, and persists the subscription.
func (r *subscriptionRegistry) Create(workspacePath string, sub *models.Subscription) (*models.Subscription, error) {
	if sub.AgentID == "" {
		return nil, fmt.Errorf("creating subscription: agent id must not be empty")
	}
	if len(sub.EventTypes) == 0 {
		return nil, fmt.Errorf("creating subscription: at least one event type required")
	}

	sub.ID = uuid.NewString()
	sub.Version = models.SubscriptionSchemaVersion
	sub.CreatedAt = time.Now().UTC()
	sub.EventTypes = expandEventTypes(sub.EventTypes)

	if err := r.store.Save(workspacePath, sub); err != nil {
		return nil, fmt.Errorf("creating subscription: %w", err)
	}
	return sub, nil
}

func (r *subscriptionRegistry) List(workspacePath string) ([]*models.Subscription, error) {
	return r.store.List(workspacePath)
}

func (r *subscriptionRegistry) Delete(workspacePath, subID string) error {
	return r.store.Delete(workspacePath, subID)
}

// expandEventTypes substitutes the full fixed category set for a bare "*".
// Other entries pass through unchanged and deduplicated.
func expandEventTypes(types []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	for _, t := range types {
		if t == "*" {
			for _, w := range CategoryWildcards {
				add(w)
			}
			continue
		}
		add(t)
	}
	return out
}

// Matches reports whether an event satisfies a subscription: the event type
// matches literally or matches a listed category wildcard, and the event's
// actor id is not excluded.
func Matches(sub *models.Subscription, event *models.WorkspaceEvent) bool {
	for _, excluded := range sub.ExcludeActors {
		if event.Actor.ID != "" && event.Actor.ID == excluded {
			return false
		}
	}

	for _, pattern := range sub.EventTypes {
		if pattern == event.Type {
			return true
		}
		if category, ok := strings.CutSuffix(pattern, ":*"); ok {
			if strings.HasPrefix(event.Type, category+":") {
				return true
			}
		}
	}
	return false
}
