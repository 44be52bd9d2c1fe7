package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/warren-dev/warren/pkg/models"
)

// SaveMetadata writes the workspace record into its state directory. The
// metadata file doubles as the marker identifying a directory as a
// workspace during discovery scans.
func SaveMetadata(ws *models.Workspace) error {
	if err := os.MkdirAll(StateDir(ws.Path), 0o750); err != nil {
		return fmt.Errorf("saving workspace metadata: creating state directory: %w", err)
	}
	data, err := json.MarshalIndent(ws, "", "  ")
	if err != nil {
		return fmt.Errorf("saving workspace metadata: marshaling: %w", err)
	}
	if err := os.WriteFile(MetadataPath(ws.Path), data, 0o600); err != nil {
		return fmt.Errorf("saving workspace metadata: writing file: %w", err)
	}
	return nil
}

// LoadMetadata reads a workspace record from a workspace directory. Returns
// ErrWorkspaceNotFound when the marker file is absent.
func LoadMetadata(workspacePath string) (*models.Workspace, error) {
	data, err := os.ReadFile(MetadataPath(workspacePath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("workspace at %s: %w", workspacePath, ErrWorkspaceNotFound)
		}
		return nil, fmt.Errorf("reading workspace metadata: %w", err)
	}
	var ws models.Workspace
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("parsing workspace metadata at %s: %w", workspacePath, err)
	}
	return &ws, nil
}
