package integration

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/warren-dev/warren/internal/storage"
	"github.com/warren-dev/warren/pkg/models"
)

// Sentinel errors owned by the agent-server manager.
var (
	// ErrBinaryNotFound indicates the agent-server binary could not be
	// resolved from configuration or PATH.
	ErrBinaryNotFound = errors.New("agent server binary not found")

	// ErrPortExhausted indicates the port allocator ran out of candidates.
	// Practically unreachable, but the allocator must not loop forever.
	ErrPortExhausted = errors.New("no free port available")
)

// maxPortAttempts bounds the port allocator.
const maxPortAttempts = 200

// listeningURLPattern recognizes the backend's readiness line on stdout.
var listeningURLPattern = regexp.MustCompile(`https?://[^\s]+`)

// AgentServerConfig holds the tunables for spawning backend processes.
type AgentServerConfig struct {
	// Binary is the agent-server executable. When empty, BinaryName is
	// looked up on PATH.
	Binary string
	// BinaryName is the PATH fallback, e.g. "agentd".
	BinaryName string
	// StartingPort seeds the monotonically increasing port counter.
	StartingPort int
	// ReadyTimeout bounds the readiness wait. After it elapses the manager
	// optimistically assumes http://127.0.0.1:<port> rather than failing.
	ReadyTimeout time.Duration
}

// AgentServerManager owns the lifecycle of one long-lived backend process
// per workspace: spawning, port allocation, readiness detection, liveness
// tracking, and teardown.
type AgentServerManager interface {
	// GetOrStart returns connection info for a live backend, starting one
	// only when neither memory nor persisted state yields a live process.
	// Concurrent callers for the same workspace launch at most one process.
	GetOrStart(workspacePath string) (*models.AgentServerInfo, error)
	// Start unconditionally launches a new backend for the workspace.
	Start(workspacePath string) (*models.AgentServerInfo, error)
	// Stop terminates the workspace's backend and removes persisted info.
	Stop(workspacePath string) error
	// CheckStatus reconciles recorded state with process liveness. A dead
	// PID downgrades the state to stopped and removes the stale document.
	CheckStatus(workspacePath string) (models.ServerState, error)
}

// serverEntry is the in-memory record for one workspace's backend.
type serverEntry struct {
	state models.ServerState
	info  *models.AgentServerInfo
	cmd   *exec.Cmd
}

type agentServerManager struct {
	cfg AgentServerConfig

	mu       sync.Mutex
	servers  map[string]*serverEntry
	keyLocks map[string]*sync.Mutex
	nextPort int
}

// NewAgentServerManager creates an AgentServerManager. The manager is an
// explicit, injectable registry: all process handles and per-workspace
// status live on the instance, never in package state.
func NewAgentServerManager(cfg AgentServerConfig) AgentServerManager {
	if cfg.BinaryName == "" {
		cfg.BinaryName = "agentd"
	}
	if cfg.StartingPort == 0 {
		cfg.StartingPort = 4810
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = 10 * time.Second
	}
	return &agentServerManager{
		cfg:      cfg,
		servers:  make(map[string]*serverEntry),
		keyLocks: make(map[string]*sync.Mutex),
		nextPort: cfg.StartingPort,
	}
}

// keyLock returns the per-workspace mutex serializing check-then-start. Two
// callers can both observe "not running" before either starts a process, so
// the liveness re-check alone is not enough.
func (m *agentServerManager) keyLock(workspacePath string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.keyLocks[workspacePath]
	if !ok {
		l = &sync.Mutex{}
		m.keyLocks[workspacePath] = l
	}
	return l
}

func (m *agentServerManager) getEntry(workspacePath string) *serverEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.servers[workspacePath]
}

func (m *agentServerManager) setEntry(workspacePath string, e *serverEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers[workspacePath] = e
}

// GetOrStart checks in-memory state first, then persisted connection info,
// verifying the recorded PID is alive before trusting either source. Only if
// neither yields a live process is a new one started.
func (m *agentServerManager) GetOrStart(workspacePath string) (*models.AgentServerInfo, error) {
	lock := m.keyLock(workspacePath)
	lock.Lock()
	defer lock.Unlock()

	if entry := m.getEntry(workspacePath); entry != nil &&
		entry.state == models.ServerRunning && entry.info != nil &&
		processAlive(entry.info.PID) {
		return entry.info, nil
	}

	info := loadInfoTolerant(workspacePath)
	if info != nil {
		if processAlive(info.PID) {
			// Re-attach to a backend that survived a coordinator restart.
			m.setEntry(workspacePath, &serverEntry{state: models.ServerRunning, info: info})
			return info, nil
		}
		// Stale metadata from a backend that has since died: self-heal.
		_ = storage.DeleteServerInfo(workspacePath)
	}

	return m.start(workspacePath)
}

// Start launches a fresh backend, serialized per workspace key.
func (m *agentServerManager) Start(workspacePath string) (*models.AgentServerInfo, error) {
	lock := m.keyLock(workspacePath)
	lock.Lock()
	defer lock.Unlock()
	return m.start(workspacePath)
}

// start must be called with the workspace key lock held.
func (m *agentServerManager) start(workspacePath string) (*models.AgentServerInfo, error) {
	m.setEntry(workspacePath, &serverEntry{state: models.ServerStarting})

	binary, err := m.resolveBinary()
	if err != nil {
		m.setEntry(workspacePath, &serverEntry{state: models.ServerError})
		return nil, err
	}

	port, err := m.allocatePort()
	if err != nil {
		m.setEntry(workspacePath, &serverEntry{state: models.ServerError})
		return nil, err
	}

	cmd := exec.Command(binary, "--port", strconv.Itoa(port))
	cmd.Dir = workspacePath
	// Isolated per-workspace config directory so multiple workspaces never
	// share backend state.
	cmd.Env = append(os.Environ(),
		"WARREN_AGENT_CONFIG_DIR="+storage.StateDir(workspacePath)+"/agent-config",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		m.setEntry(workspacePath, &serverEntry{state: models.ServerError})
		return nil, fmt.Errorf("starting agent server: stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		m.setEntry(workspacePath, &serverEntry{state: models.ServerError})
		return nil, fmt.Errorf("starting agent server %s: %w", binary, err)
	}

	// Single reaper per child: collect the exit status as soon as the process
	// dies, otherwise a zombie would keep answering the signal-0 liveness
	// probe and CheckStatus could never downgrade it to stopped.
	go func() { _ = cmd.Wait() }()

	baseURL := m.awaitReady(stdout, port)

	info := &models.AgentServerInfo{
		PID:       cmd.Process.Pid,
		Port:      port,
		BaseURL:   baseURL,
		StartedAt: time.Now().UTC(),
	}

	if err := storage.SaveServerInfo(workspacePath, info); err != nil {
		// Without the persisted document no later coordinator could find or
		// stop this child, so do not leave it running.
		_ = cmd.Process.Kill()
		m.setEntry(workspacePath, &serverEntry{state: models.ServerError})
		return nil, fmt.Errorf("starting agent server: %w", err)
	}

	// Keep the handle in memory so the child stays addressable.
	m.setEntry(workspacePath, &serverEntry{
		state: models.ServerRunning,
		info:  info,
		cmd:   cmd,
	})

	return info, nil
}

// awaitReady scans the child's combined output for a listening URL, bounded
// by the configured timeout. Three outcomes race to resolve the result
// exactly once: readiness line found, process exited, timeout elapsed. The
// latter two degrade to the optimistic loopback URL so a silent-but-healthy
// backend never blocks the caller indefinitely.
func (m *agentServerManager) awaitReady(stdout io.Reader, port int) string {
	fallback := fmt.Sprintf("http://127.0.0.1:%d", port)

	ready := make(chan string, 1)
	go func() {
		found := false
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if found {
				// Keep draining so the child never blocks on a full pipe;
				// the loop ends when the process closes its end.
				continue
			}
			if url := listeningURLPattern.FindString(scanner.Text()); url != "" {
				found = true
				ready <- url
			}
		}
		if !found {
			// Process exited (or closed stdout) before announcing a URL.
			ready <- fallback
		}
	}()

	select {
	case url := <-ready:
		return url
	case <-time.After(m.cfg.ReadyTimeout):
		// Timeout degrades to optimistic success. Documented trade-off: we
		// may hand back a URL before the port is accepting connections.
		return fallback
	}
}

// Stop sends a graceful terminate signal to the in-memory handle, falling
// back to the persisted PID. The connection-info document is always removed
// so stale state self-heals.
func (m *agentServerManager) Stop(workspacePath string) error {
	lock := m.keyLock(workspacePath)
	lock.Lock()
	defer lock.Unlock()

	entry := m.getEntry(workspacePath)
	if entry != nil && entry.cmd != nil && entry.cmd.Process != nil {
		// The reaper goroutine started alongside the child collects it.
		_ = entry.cmd.Process.Signal(syscall.SIGTERM)
	} else {
		info := loadInfoTolerant(workspacePath)
		if info != nil && processAlive(info.PID) {
			if proc, findErr := os.FindProcess(info.PID); findErr == nil {
				_ = proc.Signal(syscall.SIGTERM)
			}
		}
	}

	m.setEntry(workspacePath, &serverEntry{state: models.ServerStopped})
	return storage.DeleteServerInfo(workspacePath)
}

// CheckStatus reports the workspace's backend state, downgrading to stopped
// and deleting the persisted document when the recorded PID is dead.
func (m *agentServerManager) CheckStatus(workspacePath string) (models.ServerState, error) {
	if entry := m.getEntry(workspacePath); entry != nil &&
		entry.state == models.ServerRunning && entry.info != nil &&
		processAlive(entry.info.PID) {
		return models.ServerRunning, nil
	}

	info := loadInfoTolerant(workspacePath)
	if info == nil {
		if entry := m.getEntry(workspacePath); entry != nil {
			return entry.state, nil
		}
		return models.ServerUnknown, nil
	}

	if processAlive(info.PID) {
		m.setEntry(workspacePath, &serverEntry{state: models.ServerRunning, info: info})
		return models.ServerRunning, nil
	}

	// Dead PID: self-healing cleanup of the stale document.
	_ = storage.DeleteServerInfo(workspacePath)
	m.setEntry(workspacePath, &serverEntry{state: models.ServerStopped})
	return models.ServerStopped, nil
}

// resolveBinary returns the configured binary path or a PATH lookup of the
// default binary name.
func (m *agentServerManager) resolveBinary() (string, error) {
	if m.cfg.Binary != "" {
		if _, err := os.Stat(m.cfg.Binary); err != nil {
			return "", fmt.Errorf("configured binary %s: %w", m.cfg.Binary, ErrBinaryNotFound)
		}
		return m.cfg.Binary, nil
	}
	path, err := exec.LookPath(m.cfg.BinaryName)
	if err != nil {
		return "", fmt.Errorf("%s not on PATH: %w", m.cfg.BinaryName, ErrBinaryNotFound)
	}
	return path, nil
}

// allocatePort probes a monotonically increasing counter, skipping any port
// that is already bound. The counter advances even across failed probes, so
// concurrent allocations within the process make forward progress.
func (m *agentServerManager) allocatePort() (int, error) {
	for i := 0; i < maxPortAttempts; i++ {
		m.mu.Lock()
		candidate := m.nextPort
		m.nextPort++
		m.mu.Unlock()

		l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", candidate))
		if err != nil {
			continue
		}
		_ = l.Close()
		return candidate, nil
	}
	return 0, ErrPortExhausted
}

// loadInfoTolerant reads persisted connection info, treating an unreadable
// or corrupt document like a dead backend: the file is removed with a
// warning and the caller proceeds as if nothing was persisted.
func loadInfoTolerant(workspacePath string) *models.AgentServerInfo {
	info, err := storage.LoadServerInfo(workspacePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: discarding unreadable server info for %s: %v\n", workspacePath, err)
		_ = storage.DeleteServerInfo(workspacePath)
		return nil
	}
	return info
}

// processAlive performs a non-destructive liveness probe: signal 0 reaches
// the process without delivering anything.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
