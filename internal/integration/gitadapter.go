package integration

import (
	"fmt"
	"os/exec"
	"strings"
)

// GitResult captures the output of one git invocation.
type GitResult struct {
	Stdout   string
	ExitCode int
}

// GitAdapter issues version-control commands against a given directory and
// returns raw text plus exit code. Like ProcessRunner, a non-zero exit is
// data, not an error.
type GitAdapter interface {
	Run(args []string, cwd string) (*GitResult, error)
}

type gitCLI struct{}

// NewGitAdapter creates a GitAdapter shelling out to the git CLI.
func NewGitAdapter() GitAdapter {
	return &gitCLI{}
}

func (g *gitCLI) Run(args []string, cwd string) (*GitResult, error) {
	cmd := exec.Command("git", args...)
	if cwd != "" {
		cmd.Dir = cwd
	}
	output, err := cmd.CombinedOutput()
	result := &GitResult{Stdout: string(output)}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return result, fmt.Errorf("running git %s: %w", strings.Join(args, " "), err)
		}
	}
	return result, nil
}

// ParseRemoteOwnerRepo extracts the owner and repository name from a git
// remote URL. It handles HTTPS URLs, SSH URLs (git@host:org/repo.git), and
// bare host/org/repo paths. Both return values are empty when the URL does
// not look like host/org/repo.
func ParseRemoteOwnerRepo(remoteURL string) (owner, repo string) {
	cleaned := strings.TrimSpace(remoteURL)
	cleaned = strings.TrimPrefix(cleaned, "https://")
	cleaned = strings.TrimPrefix(cleaned, "http://")
	cleaned = strings.TrimPrefix(cleaned, "git@")

	// Convert SSH-style colon separator: github.com:org/repo -> github.com/org/repo
	if idx := strings.Index(cleaned, ":"); idx > 0 && !strings.Contains(cleaned[:idx], "/") {
		cleaned = cleaned[:idx] + "/" + cleaned[idx+1:]
	}

	cleaned = strings.TrimSuffix(cleaned, ".git")
	cleaned = strings.TrimRight(strings.ReplaceAll(cleaned, `\`, "/"), "/")

	parts := strings.Split(cleaned, "/")
	if len(parts) < 3 {
		return "", ""
	}
	n := len(parts)
	return parts[n-2], parts[n-1]
}
