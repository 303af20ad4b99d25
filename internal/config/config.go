package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const configDir = ".lumina"
const configFile = "config.json"

// Config holds the persisted client settings. Everything except
// Profile round-trips through ~/.lumina/config.json.
type Config struct {
	Server          string `json:"server"`
	UserID          string `json:"user_id,omitempty"`
	Model           string `json:"model,omitempty"`
	KnowledgeBaseID string `json:"knowledge_base_id,omitempty"`
	MCPConfigPath   string `json:"mcp_config_path,omitempty"`
	AgentID         string `json:"agent_id,omitempty"`
	FriendlyMode    bool   `json:"friendly_mode,omitempty"`
	DeepResearch    bool   `json:"deep_research,omitempty"`
	InternetSearch  bool   `json:"internet_search,omitempty"`
	Profile         string `json:"-"`
}

// Dir returns the per-user state directory (config, cache database,
// log file all live here).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot find home directory: %w", err)
	}
	return filepath.Join(home, configDir), nil
}

func configPath(profile string) (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	filename := configFile
	if profile != "" {
		filename = fmt.Sprintf("config-%s.json", profile)
	}
	return filepath.Join(dir, filename), nil
}

func Load(profile string) (*Config, error) {
	path, err := configPath(profile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Profile: profile}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Profile = profile
	return &cfg, nil
}

func (c *Config) Save() error {
	path, err := configPath(c.Profile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func (c *Config) profileFlag() string {
	if c.Profile == "" {
		return ""
	}
	return " --profile " + c.Profile
}

func (c *Config) Validate() error {
	pf := c.profileFlag()
	if c.Server == "" {
		return fmt.Errorf("no server configured. Run: lumina%s set server <url>", pf)
	}
	if c.UserID == "" {
		return fmt.Errorf("no user configured. Run: lumina%s set user <id>", pf)
	}
	return nil
}

func ListProfiles() ([]string, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config directory: %w", err)
	}
	var profiles []string
	for _, e := range entries {
		name := e.Name()
		if name == configFile {
			profiles = append(profiles, "default")
			continue
		}
		if strings.HasPrefix(name, "config-") && strings.HasSuffix(name, ".json") {
			profiles = append(profiles, strings.TrimSuffix(strings.TrimPrefix(name, "config-"), ".json"))
		}
	}
	return profiles, nil
}

func ProfileName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}
