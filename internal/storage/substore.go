package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/warren-dev/warren/pkg/models"
)

// SubscriptionStore persists event subscriptions, one JSON file per
// subscription under the workspace's state directory.
type SubscriptionStore interface {
	Save(workspacePath string, sub *models.Subscription) error
	Get(workspacePath, subID string) (*models.Subscription, error)
	List(workspacePath string) ([]*models.Subscription, error)
	Delete(workspacePath, subID string) error
}

type fileSubscriptionStore struct{}

// NewSubscriptionStore creates a SubscriptionStore backed by per-entity
// JSON files.
func NewSubscriptionStore() SubscriptionStore {
	return &fileSubscriptionStore{}
}

func subscriptionPath(workspacePath, subID string) string {
	return filepath.Join(SubscriptionsDir(workspacePath), subID+".json")
}

// Save writes the whole subscription document.
func (s *fileSubscriptionStore) Save(workspacePath string, sub *models.Subscription) error {
	if sub.ID == "" {
		return fmt.Errorf("saving subscription: id must not be empty")
	}
	if sub.Version == 0 {
		sub.Version = models.SubscriptionSchemaVersion
	}
	if err := os.MkdirAll(SubscriptionsDir(workspacePath), 0o750); err != nil {
		return fmt.Errorf("saving subscription %s: creating directory: %w", sub.ID, err)
	}
	data, err := json.MarshalIndent(sub, "", "  ")
	if err != nil {
		return fmt.Errorf("saving subscription %s: marshaling: %w", sub.ID, err)
	}
	if err := os.WriteFile(subscriptionPath(workspacePath, sub.ID), data, 0o600); err != nil {
		return fmt.Errorf("saving subscription %s: writing file: %w", sub.ID, err)
	}
	return nil
}

// Get loads a subscription by id, or ErrSubscriptionNotFound.
func (s *fileSubscriptionStore) Get(workspacePath, subID string) (*models.Subscription, error) {
	data, err := os.ReadFile(subscriptionPath(workspacePath, subID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("subscription %s: %w", subID, ErrSubscriptionNotFound)
		}
		return nil, fmt.Errorf("reading subscription %s: %w", subID, err)
	}
	var sub models.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, fmt.Errorf("parsing subscription %s: %w", subID, err)
	}
	return &sub, nil
}

// List returns every subscription in the workspace, sorted by creation time.
// Malformed files are skipped with a warning.
func (s *fileSubscriptionStore) List(workspacePath string) ([]*models.Subscription, error) {
	entries, err := os.ReadDir(SubscriptionsDir(workspacePath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}

	var subs []*models.Subscription
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		sub, err := s.Get(workspacePath, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping unreadable subscription %s: %v\n", id, err)
			continue
		}
		subs = append(subs, sub)
	}

	sort.Slice(subs, func(i, j int) bool {
		return subs[i].CreatedAt.Before(subs[j].CreatedAt)
	})
	return subs, nil
}

// Delete removes a subscription's file, or ErrSubscriptionNotFound.
func (s *fileSubscriptionStore) Delete(workspacePath, subID string) error {
	if err := os.Remove(subscriptionPath(workspacePath, subID)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("subscription %s: %w", subID, ErrSubscriptionNotFound)
		}
		return fmt.Errorf("deleting subscription %s: %w", subID, err)
	}
	return nil
}
