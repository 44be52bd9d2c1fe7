package integration

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/warren-dev/warren/internal/storage"
	"github.com/warren-dev/warren/pkg/models"
)

// writeFakeBackend writes an executable shell script standing in for the
// agent-server binary. The script receives "--port N" as arguments.
func writeFakeBackend(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-agentd")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("writing fake backend: %v", err)
	}
	return path
}

// announcingBackend prints a listening URL and then stays alive.
const announcingBackend = `echo "listening on http://127.0.0.1:$2"
sleep 60
`

func newTestManager(t *testing.T, script string, timeout time.Duration) (AgentServerManager, string) {
	t.Helper()
	mgr := NewAgentServerManager(AgentServerConfig{
		Binary:       writeFakeBackend(t, script),
		StartingPort: 34800,
		ReadyTimeout: timeout,
	})
	ws := t.TempDir()
	t.Cleanup(func() { _ = mgr.Stop(ws) })
	return mgr, ws
}

func TestAgentServerStart(t *testing.T) {
	mgr, ws := newTestManager(t, announcingBackend, 5*time.Second)

	info, err := mgr.Start(ws)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if info.PID <= 0 {
		t.Errorf("PID = %d", info.PID)
	}
	if info.Port < 34800 {
		t.Errorf("port = %d, want >= starting port", info.Port)
	}
	if !strings.Contains(info.BaseURL, "http://127.0.0.1:") {
		t.Errorf("BaseURL = %q", info.BaseURL)
	}

	// Connection info is persisted for later coordinator processes.
	persisted, err := storage.LoadServerInfo(ws)
	if err != nil {
		t.Fatalf("LoadServerInfo: %v", err)
	}
	if persisted == nil || persisted.PID != info.PID {
		t.Errorf("persisted = %+v", persisted)
	}

	state, err := mgr.CheckStatus(ws)
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	if state != models.ServerRunning {
		t.Errorf("state = %q, want running", state)
	}
}

func TestAgentServerGetOrStartReuses(t *testing.T) {
	mgr, ws := newTestManager(t, announcingBackend, 5*time.Second)

	first, err := mgr.GetOrStart(ws)
	if err != nil {
		t.Fatalf("GetOrStart: %v", err)
	}
	second, err := mgr.GetOrStart(ws)
	if err != nil {
		t.Fatalf("GetOrStart again: %v", err)
	}
	if first.PID != second.PID {
		t.Errorf("second call started a new process: %d vs %d", first.PID, second.PID)
	}
}

func TestAgentServerSingleFlight(t *testing.T) {
	mgr, ws := newTestManager(t, announcingBackend, 5*time.Second)

	const callers = 8
	var wg sync.WaitGroup
	pids := make([]int, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := mgr.GetOrStart(ws)
			if err != nil {
				errs[i] = err
				return
			}
			pids[i] = info.PID
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if pids[i] != pids[0] {
			t.Errorf("caller %d got PID %d, caller 0 got %d", i, pids[i], pids[0])
		}
	}
}

func TestAgentServerReattachesFromPersistedInfo(t *testing.T) {
	script := announcingBackend
	first := NewAgentServerManager(AgentServerConfig{
		Binary:       writeFakeBackend(t, script),
		StartingPort: 34900,
		ReadyTimeout: 5 * time.Second,
	})
	ws := t.TempDir()
	t.Cleanup(func() { _ = first.Stop(ws) })

	info, err := first.Start(ws)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// A fresh manager instance simulates a coordinator restart: it has no
	// in-memory state but finds the persisted document and the live PID.
	second := NewAgentServerManager(AgentServerConfig{
		Binary:       writeFakeBackend(t, script),
		StartingPort: 34900,
		ReadyTimeout: 5 * time.Second,
	})
	got, err := second.GetOrStart(ws)
	if err != nil {
		t.Fatalf("GetOrStart on new manager: %v", err)
	}
	if got.PID != info.PID {
		t.Errorf("new manager started PID %d instead of re-attaching to %d", got.PID, info.PID)
	}
}

func TestAgentServerStaleStateSelfHeals(t *testing.T) {
	mgr, ws := newTestManager(t, announcingBackend, 5*time.Second)

	// Produce a genuinely dead PID by reaping a short-lived child.
	child := exec.Command("true")
	if err := child.Start(); err != nil {
		t.Fatalf("starting child: %v", err)
	}
	deadPID := child.Process.Pid
	_ = child.Wait()

	if err := storage.SaveServerInfo(ws, &models.AgentServerInfo{
		PID:     deadPID,
		Port:    34999,
		BaseURL: "http://127.0.0.1:34999",
	}); err != nil {
		t.Fatalf("planting stale info: %v", err)
	}

	t.Run("check status downgrades and deletes", func(t *testing.T) {
		state, err := mgr.CheckStatus(ws)
		if err != nil {
			t.Fatalf("CheckStatus: %v", err)
		}
		if state != models.ServerStopped {
			t.Errorf("state = %q, want stopped", state)
		}
		info, _ := storage.LoadServerInfo(ws)
		if info != nil {
			t.Errorf("stale document survived: %+v", info)
		}
	})

	t.Run("get or start replaces the dead backend", func(t *testing.T) {
		info, err := mgr.GetOrStart(ws)
		if err != nil {
			t.Fatalf("GetOrStart: %v", err)
		}
		if info.PID == deadPID {
			t.Errorf("returned the dead PID %d", deadPID)
		}
	})
}

func TestAgentServerExternallyKilledBackend(t *testing.T) {
	mgr, ws := newTestManager(t, announcingBackend, 5*time.Second)

	info, err := mgr.Start(ws)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	proc, err := os.FindProcess(info.PID)
	if err != nil {
		t.Fatalf("FindProcess: %v", err)
	}
	if err := proc.Kill(); err != nil {
		t.Fatalf("killing backend: %v", err)
	}

	// The exit status is collected asynchronously, so poll until the
	// liveness probe stops seeing the process.
	deadline := time.Now().Add(5 * time.Second)
	var state models.ServerState
	for {
		state, err = mgr.CheckStatus(ws)
		if err != nil {
			t.Fatalf("CheckStatus: %v", err)
		}
		if state == models.ServerStopped || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if state != models.ServerStopped {
		t.Fatalf("state = %q, want stopped after external kill", state)
	}
	if doc, _ := storage.LoadServerInfo(ws); doc != nil {
		t.Errorf("stale server info survived: %+v", doc)
	}

	replacement, err := mgr.GetOrStart(ws)
	if err != nil {
		t.Fatalf("GetOrStart after kill: %v", err)
	}
	if replacement.PID == info.PID {
		t.Errorf("GetOrStart returned the killed PID %d", info.PID)
	}
}

func TestAgentServerCorruptInfoSelfHeals(t *testing.T) {
	plantCorruptInfo := func(t *testing.T, ws string) {
		t.Helper()
		if err := os.MkdirAll(storage.StateDir(ws), 0o750); err != nil {
			t.Fatalf("creating state dir: %v", err)
		}
		if err := os.WriteFile(storage.ServerInfoPath(ws), []byte("{not json"), 0o600); err != nil {
			t.Fatalf("planting corrupt info: %v", err)
		}
	}

	t.Run("get or start discards it and starts fresh", func(t *testing.T) {
		mgr, ws := newTestManager(t, announcingBackend, 5*time.Second)
		plantCorruptInfo(t, ws)

		info, err := mgr.GetOrStart(ws)
		if err != nil {
			t.Fatalf("GetOrStart with corrupt info: %v", err)
		}
		if info.PID <= 0 {
			t.Errorf("PID = %d", info.PID)
		}
	})

	t.Run("check status removes it without erroring", func(t *testing.T) {
		mgr, ws := newTestManager(t, announcingBackend, 5*time.Second)
		plantCorruptInfo(t, ws)

		if _, err := mgr.CheckStatus(ws); err != nil {
			t.Fatalf("CheckStatus with corrupt info: %v", err)
		}
		if _, err := os.Stat(storage.ServerInfoPath(ws)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("corrupt document survived: %v", err)
		}
	})
}

func TestAgentServerPersistFailureKillsChild(t *testing.T) {
	mgr := NewAgentServerManager(AgentServerConfig{
		Binary:       writeFakeBackend(t, announcingBackend),
		StartingPort: 35100,
		ReadyTimeout: 5 * time.Second,
	})

	// A regular file where the state directory should go makes persisting
	// the connection info fail after the child has launched.
	ws := t.TempDir()
	if err := os.WriteFile(storage.StateDir(ws), []byte("in the way"), 0o644); err != nil {
		t.Fatalf("blocking state dir: %v", err)
	}

	if _, err := mgr.Start(ws); err == nil {
		t.Fatal("Start succeeded despite unwritable state dir")
	}

	state, err := mgr.CheckStatus(ws)
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	if state != models.ServerError {
		t.Errorf("state = %q, want error", state)
	}
}

func TestAgentServerStop(t *testing.T) {
	mgr, ws := newTestManager(t, announcingBackend, 5*time.Second)

	if _, err := mgr.Start(ws); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := mgr.Stop(ws); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	info, err := storage.LoadServerInfo(ws)
	if err != nil {
		t.Fatalf("LoadServerInfo: %v", err)
	}
	if info != nil {
		t.Errorf("server info survived stop: %+v", info)
	}

	state, err := mgr.CheckStatus(ws)
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	if state != models.ServerStopped {
		t.Errorf("state = %q, want stopped", state)
	}

	t.Run("stop without a running server", func(t *testing.T) {
		if err := mgr.Stop(t.TempDir()); err != nil {
			t.Errorf("Stop on fresh workspace: %v", err)
		}
	})
}

func TestAgentServerReadiness(t *testing.T) {
	t.Run("silent backend degrades to optimistic URL on timeout", func(t *testing.T) {
		mgr, ws := newTestManager(t, "sleep 60\n", 200*time.Millisecond)

		start := time.Now()
		info, err := mgr.Start(ws)
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		if elapsed := time.Since(start); elapsed > 3*time.Second {
			t.Errorf("Start blocked for %v despite timeout", elapsed)
		}
		want := "http://127.0.0.1:"
		if !strings.HasPrefix(info.BaseURL, want) {
			t.Errorf("BaseURL = %q, want optimistic %s<port>", info.BaseURL, want)
		}
	})

	t.Run("immediately exiting backend still yields a URL", func(t *testing.T) {
		mgr, ws := newTestManager(t, "exit 0\n", 5*time.Second)

		info, err := mgr.Start(ws)
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		if !strings.HasPrefix(info.BaseURL, "http://127.0.0.1:") {
			t.Errorf("BaseURL = %q", info.BaseURL)
		}
	})
}

func TestAgentServerBinaryResolution(t *testing.T) {
	t.Run("missing configured binary", func(t *testing.T) {
		mgr := NewAgentServerManager(AgentServerConfig{
			Binary: "/nonexistent/agentd",
		})
		_, err := mgr.Start(t.TempDir())
		if !errors.Is(err, ErrBinaryNotFound) {
			t.Errorf("err = %v, want ErrBinaryNotFound", err)
		}
	})

	t.Run("missing PATH fallback", func(t *testing.T) {
		mgr := NewAgentServerManager(AgentServerConfig{
			BinaryName: "definitely-not-a-real-binary-name",
		})
		_, err := mgr.Start(t.TempDir())
		if !errors.Is(err, ErrBinaryNotFound) {
			t.Errorf("err = %v, want ErrBinaryNotFound", err)
		}
	})
}
