// Package integration wraps Warren's external collaborators: the git CLI,
// arbitrary shell commands, the per-workspace agent-server process, and the
// HTTP conversation surface the backend exposes.
package integration

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// RunResult captures the outcome of an external command invocation.
type RunResult struct {
	Output   string
	ExitCode int
}

// ProcessRunner executes external commands synchronously, capturing combined
// output and exit status. A non-zero exit is reported in the result, not as
// an error: the calling component decides whether it is fatal.
type ProcessRunner interface {
	// Run executes command through the system shell, optionally bounded to
	// a working directory. cwd may be empty.
	Run(command string, cwd string) (*RunResult, error)
	// RunTee behaves like Run but additionally streams combined output to w.
	RunTee(command string, cwd string, w io.Writer) (*RunResult, error)
}

type shellRunner struct{}

// NewProcessRunner creates a ProcessRunner that delegates to the system
// shell (sh -c on Unix, cmd /c on Windows).
func NewProcessRunner() ProcessRunner {
	return &shellRunner{}
}

func (r *shellRunner) Run(command string, cwd string) (*RunResult, error) {
	return r.RunTee(command, cwd, nil)
}

func (r *shellRunner) RunTee(command string, cwd string, w io.Writer) (*RunResult, error) {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command("cmd", "/c", command)
	} else {
		cmd = exec.Command("sh", "-c", command)
	}
	if cwd != "" {
		cmd.Dir = cwd
	}
	cmd.Env = os.Environ()

	var buf bytes.Buffer
	if w != nil {
		mw := io.MultiWriter(&buf, w)
		cmd.Stdout = mw
		cmd.Stderr = mw
	} else {
		cmd.Stdout = &buf
		cmd.Stderr = &buf
	}

	err := cmd.Run()
	result := &RunResult{Output: buf.String()}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			// Command could not be started (e.g. shell not found).
			return result, fmt.Errorf("executing %q: %w", command, err)
		}
	}

	return result, nil
}
