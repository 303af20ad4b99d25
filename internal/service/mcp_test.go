package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumina-cli/internal/api"
)

func TestBuildMCPConfig(t *testing.T) {
	cfg, err := BuildMCPConfig([]api.MCPServer{
		{ID: "1", Name: "files", Command: "mcp-files", Args: []string{"--root", "/tmp"}},
		{ID: "2", Name: "web", URL: "http://mcp.example"},
	})
	require.NoError(t, err)

	var decoded struct {
		MCPServers map[string]struct {
			URL     string   `json:"url"`
			Command string   `json:"command"`
			Args    []string `json:"args"`
		} `json:"mcpServers"`
	}
	require.NoError(t, json.Unmarshal(cfg, &decoded))
	require.Len(t, decoded.MCPServers, 2)
	assert.Equal(t, "mcp-files", decoded.MCPServers["files"].Command)
	assert.Equal(t, []string{"--root", "/tmp"}, decoded.MCPServers["files"].Args)
	assert.Equal(t, "http://mcp.example", decoded.MCPServers["web"].URL)
}

func TestBuildMCPConfigEmpty(t *testing.T) {
	cfg, err := BuildMCPConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, cfg, "empty selection omits the field")
}

func TestBuildMCPConfigRejectsBadEntries(t *testing.T) {
	_, err := BuildMCPConfig([]api.MCPServer{{ID: "1"}})
	assert.Error(t, err, "nameless server")

	_, err = BuildMCPConfig([]api.MCPServer{
		{ID: "1", Name: "dup", Command: "a"},
		{ID: "2", Name: "dup", Command: "b"},
	})
	assert.Error(t, err, "duplicate names collide in the config map")
}
