package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/warren-dev/warren/pkg/models"
)

// SaveServerInfo persists agent-server connection info into the workspace's
// state directory so a later coordinator process can re-attach to a
// still-running backend.
func SaveServerInfo(workspacePath string, info *models.AgentServerInfo) error {
	if err := os.MkdirAll(StateDir(workspacePath), 0o750); err != nil {
		return fmt.Errorf("saving server info: creating state directory: %w", err)
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("saving server info: marshaling: %w", err)
	}
	if err := os.WriteFile(ServerInfoPath(workspacePath), data, 0o600); err != nil {
		return fmt.Errorf("saving server info: writing file: %w", err)
	}
	return nil
}

// LoadServerInfo reads persisted connection info. Returns (nil, nil) when no
// info has been persisted.
func LoadServerInfo(workspacePath string) (*models.AgentServerInfo, error) {
	data, err := os.ReadFile(ServerInfoPath(workspacePath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading server info: %w", err)
	}
	var info models.AgentServerInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing server info: %w", err)
	}
	return &info, nil
}

// DeleteServerInfo removes persisted connection info. Removing info that was
// never persisted is not an error; stale state must be self-healing.
func DeleteServerInfo(workspacePath string) error {
	if err := os.Remove(ServerInfoPath(workspacePath)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting server info: %w", err)
	}
	return nil
}
