package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"paywall/native/common"
)

// Config carries the ledger's runtime settings.
type Config struct {
	DataDir       string   `toml:"DataDir"`
	InMemory      bool     `toml:"InMemory"`
	Service       string   `toml:"Service"`
	Env           string   `toml:"Env"`
	PausedModules []string `toml:"PausedModules"`
}

// Default returns a configuration suitable for tests and local runs: an
// in-memory store with nothing paused.
func Default() *Config {
	return &Config{
		InMemory:      true,
		Service:       "paywall",
		PausedModules: []string{},
	}
}

// Load reads the configuration from the given TOML file and fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Service) == "" {
		cfg.Service = "paywall"
	}
	if cfg.PausedModules == nil {
		cfg.PausedModules = []string{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects contradictory settings before anything opens a store.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: nil configuration")
	}
	if !c.InMemory && strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir required unless InMemory is set")
	}
	if c.InMemory && strings.TrimSpace(c.DataDir) != "" {
		return fmt.Errorf("config: DataDir and InMemory are mutually exclusive")
	}
	for _, module := range c.PausedModules {
		switch strings.TrimSpace(module) {
		case "catalog", "escrow", "access", "earnings":
		default:
			return fmt.Errorf("config: unknown module %q in PausedModules", module)
		}
	}
	return nil
}

// Pauses converts the paused-module list into the view the engines consult.
func (c *Config) Pauses() common.Pauses {
	pauses := make(common.Pauses, len(c.PausedModules))
	for _, module := range c.PausedModules {
		if trimmed := strings.TrimSpace(module); trimmed != "" {
			pauses[trimmed] = true
		}
	}
	return pauses
}
