package service

import (
	"encoding/json"
	"fmt"

	"lumina-cli/internal/api"
)

type mcpServerEntry struct {
	URL     string            `json:"url,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// BuildMCPConfig assembles the mcpConfig request field from the
// servers the user enabled. Returns nil when nothing is enabled so the
// field is omitted entirely.
func BuildMCPConfig(enabled []api.MCPServer) (json.RawMessage, error) {
	if len(enabled) == 0 {
		return nil, nil
	}

	servers := make(map[string]mcpServerEntry, len(enabled))
	for _, s := range enabled {
		if s.Name == "" {
			return nil, fmt.Errorf("mcp server %q has no name", s.ID)
		}
		if _, dup := servers[s.Name]; dup {
			return nil, fmt.Errorf("duplicate mcp server name %q", s.Name)
		}
		servers[s.Name] = mcpServerEntry{
			URL:     s.URL,
			Command: s.Command,
			Args:    s.Args,
			Env:     s.Env,
		}
	}

	cfg := struct {
		MCPServers map[string]mcpServerEntry `json:"mcpServers"`
	}{MCPServers: servers}

	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling mcp config: %w", err)
	}
	return data, nil
}
