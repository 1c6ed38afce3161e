package wlbot

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wlcommunity/wlbot/wlbot/agent/driver"
)

//go:embed config.yaml
var defaultConfig embed.FS

// holds aggregate configuration across the wlbot environment.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  Provider        `yaml:"provider"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Observe   ObsConfig       `yaml:"observability"`
}

// wlbot server config
type ServerConfig struct {
	Address string `yaml:"address"`
	Debug   bool   `yaml:"debug"`
}

// external llm provider
type Provider struct {
	Name     string        `yaml:"name"`
	Model    string        `yaml:"model"`
	ApiKey   string        `yaml:"apikey"`
	Endpoint string        `yaml:"endpoint"`
	Extra    driver.Config `yaml:"extra"`
}

// game knowledge store config
type KnowledgeConfig struct {
	// Path of the sqlite database file.
	Path string `yaml:"path"`
	// CacheTTL of rendered context blocks, in seconds.
	CacheTTL int `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	// ContextLimit caps knowledge entries per context block.
	ContextLimit int `yaml:"context_limit" mapstructure:"context_limit"`
	// SystemPrompt overrides the assistant persona.
	SystemPrompt string `yaml:"system_prompt" mapstructure:"system_prompt"`
}

type ObsConfig struct {
	Metric Metric `yaml:"metric"`
	Trace  Trace  `yaml:"trace"`
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return errors.New("server address is required")
	}
	// Check if the address is a valid host:port
	if _, _, err := net.SplitHostPort(c.Server.Address); err != nil {
		return fmt.Errorf("invalid server address format: %w", err)
	}

	if c.Provider.Name == "" {
		return errors.New("provider name is required")
	}

	if c.Provider.Model == "" {
		return errors.New("provider model is required")
	}

	if c.Knowledge.Path == "" {
		return errors.New("knowledge path is required")
	}
	if c.Knowledge.CacheTTL < 0 {
		return errors.New("knowledge cache_ttl cannot be negative")
	}

	return nil
}

// load configuration from default embedded config.yaml, provided config.yaml,
// env and flags before validation.
func LoadAndValidate(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// bind env variables
	v.SetEnvPrefix("WLBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// bind pflags
	for flagName, configKey := range flagToConfigKeyMap {
		v.BindPFlag(configKey, flags.Lookup(flagName))
	}

	// defaults come from the embedded config.yaml
	defaultBytes, _ := defaultConfig.ReadFile("config.yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultBytes)); err != nil {
		return nil, fmt.Errorf("failed to read default config: %w", err)
	}

	// merge external config file if provided
	configFile, _ := flags.GetString(FLAG_SERVER_CONFIG_FILE)
	if configFile != "" {
		f, err := os.Open(configFile)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		defer f.Close()
		providedBytes, _ := io.ReadAll(f)
		if err := v.MergeConfig(bytes.NewReader(providedBytes)); err != nil {
			return nil, fmt.Errorf("failed to read provided config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
