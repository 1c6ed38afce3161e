package wlbot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAndValidate_Defaults(t *testing.T) {
	cfg, err := LoadAndValidate(FlagSet)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:11823", cfg.Server.Address)
	assert.Equal(t, "ollama", cfg.Provider.Name)
	assert.Equal(t, "wlbot.db", cfg.Knowledge.Path)
	assert.Equal(t, 3600, cfg.Knowledge.CacheTTL)
	assert.Equal(t, 5, cfg.Knowledge.ContextLimit)
}

func TestLoadAndValidate_EnvOverride(t *testing.T) {
	t.Setenv("WLBOT_PROVIDER_MODEL", "wl-chat-large")
	t.Setenv("WLBOT_KNOWLEDGE_PATH", "/tmp/kb.db")

	cfg, err := LoadAndValidate(FlagSet)
	require.NoError(t, err)

	assert.Equal(t, "wl-chat-large", cfg.Provider.Model)
	assert.Equal(t, "/tmp/kb.db", cfg.Knowledge.Path)
}

func TestLoadAndValidate_FileOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: "0.0.0.0:9000"
provider:
  name: "openai"
  model: "wl-proxy"
  endpoint: "http://litellm:4000"
`), 0o600))

	require.NoError(t, FlagSet.Set(FLAG_SERVER_CONFIG_FILE, path))
	t.Cleanup(func() { _ = FlagSet.Set(FLAG_SERVER_CONFIG_FILE, "") })

	cfg, err := LoadAndValidate(FlagSet)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Address)
	assert.Equal(t, "openai", cfg.Provider.Name)
	// untouched keys keep their embedded defaults
	assert.Equal(t, "wlbot.db", cfg.Knowledge.Path)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Server:    ServerConfig{Address: "127.0.0.1:8080"},
		Provider:  Provider{Name: "ollama", Model: "m"},
		Knowledge: KnowledgeConfig{Path: "kb.db"},
	}
	require.NoError(t, valid.Validate())

	testCases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing address", func(c *Config) { c.Server.Address = "" }},
		{"bad address", func(c *Config) { c.Server.Address = "no-port" }},
		{"missing provider", func(c *Config) { c.Provider.Name = "" }},
		{"missing model", func(c *Config) { c.Provider.Model = "" }},
		{"missing knowledge path", func(c *Config) { c.Knowledge.Path = "" }},
		{"negative cache ttl", func(c *Config) { c.Knowledge.CacheTTL = -1 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
