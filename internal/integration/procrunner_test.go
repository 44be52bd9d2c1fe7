package integration

import (
	"bytes"
	"strings"
	"testing"
)

func TestProcessRunnerRun(t *testing.T) {
	runner := NewProcessRunner()

	t.Run("captures output and exit code", func(t *testing.T) {
		result, err := runner.Run("echo hello", "")
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if result.ExitCode != 0 {
			t.Errorf("exit = %d", result.ExitCode)
		}
		if strings.TrimSpace(result.Output) != "hello" {
			t.Errorf("output = %q", result.Output)
		}
	})

	t.Run("non-zero exit is not an error", func(t *testing.T) {
		result, err := runner.Run("exit 3", "")
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if result.ExitCode != 3 {
			t.Errorf("exit = %d, want 3", result.ExitCode)
		}
	})

	t.Run("runs in the given directory", func(t *testing.T) {
		dir := t.TempDir()
		result, err := runner.Run("pwd", dir)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if strings.TrimSpace(result.Output) != dir {
			t.Errorf("pwd = %q, want %q", result.Output, dir)
		}
	})

	t.Run("captures stderr too", func(t *testing.T) {
		result, err := runner.Run("echo oops >&2", "")
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if strings.TrimSpace(result.Output) != "oops" {
			t.Errorf("output = %q", result.Output)
		}
	})
}

func TestProcessRunnerRunTee(t *testing.T) {
	runner := NewProcessRunner()

	var sink bytes.Buffer
	result, err := runner.RunTee("echo streamed", "", &sink)
	if err != nil {
		t.Fatalf("RunTee: %v", err)
	}
	if strings.TrimSpace(result.Output) != "streamed" {
		t.Errorf("result output = %q", result.Output)
	}
	if strings.TrimSpace(sink.String()) != "streamed" {
		t.Errorf("tee output = %q", sink.String())
	}
}
