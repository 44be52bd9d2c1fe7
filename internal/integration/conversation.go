package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warren-dev/warren/pkg/models"
)

// AgentHandle identifies a conversation agent created on a workspace's
// backend.
type AgentHandle struct {
	AgentID string `json:"agentId"`
	Label   string `json:"label,omitempty"`
}

// Reply is the backend's response to a message sent to an agent.
type Reply struct {
	AgentID string `json:"agentId"`
	Text    string `json:"text"`
}

// CreateAgentOptions parameterize agent creation on the backend.
type CreateAgentOptions struct {
	Label        string `json:"label,omitempty"`
	Model        string `json:"model,omitempty"`
	SpecialistID string `json:"specialistId,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
}

// AgentConversation is the contract Warren consumes for talking to the
// per-workspace backend. The core never owns the backend's request
// semantics; it only needs these two operations.
type AgentConversation interface {
	CreateAgent(ws *models.Workspace, opts CreateAgentOptions) (*AgentHandle, error)
	SendMessage(ws *models.Workspace, agentID, text string) (*Reply, error)
}

// ServerInfoSource resolves a workspace to live backend connection info.
type ServerInfoSource interface {
	GetOrStart(workspacePath string) (*models.AgentServerInfo, error)
}

// httpConversation is a thin JSON-over-HTTP client for the backend's agent
// endpoints.
type httpConversation struct {
	servers ServerInfoSource
	client  *http.Client
}

// NewHTTPConversation creates an AgentConversation that resolves each
// workspace's base URL through the given server source.
func NewHTTPConversation(servers ServerInfoSource) AgentConversation {
	return &httpConversation{
		servers: servers,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *httpConversation) CreateAgent(ws *models.Workspace, opts CreateAgentOptions) (*AgentHandle, error) {
	var handle AgentHandle
	if err := c.post(ws, "/api/agents", opts, &handle); err != nil {
		return nil, fmt.Errorf("creating agent on workspace %s: %w", ws.ID, err)
	}
	return &handle, nil
}

func (c *httpConversation) SendMessage(ws *models.Workspace, agentID, text string) (*Reply, error) {
	payload := map[string]string{"text": text}
	var reply Reply
	if err := c.post(ws, "/api/agents/"+agentID+"/messages", payload, &reply); err != nil {
		return nil, fmt.Errorf("sending message to agent %s on workspace %s: %w", agentID, ws.ID, err)
	}
	reply.AgentID = agentID
	return &reply, nil
}

func (c *httpConversation) post(ws *models.Workspace, path string, payload, out any) error {
	info, err := c.servers.GetOrStart(ws.Path)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	resp, err := c.client.Post(info.BaseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting to backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding backend response: %w", err)
	}
	return nil
}
