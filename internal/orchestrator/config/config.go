// Package config loads orchestratord's top-level YAML configuration.
// Grounded on config/types.go's SetDefaults/Validate idiom, narrowed to
// the fields the orchestrator itself needs.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seiggy/lucia/internal/orchestrator/router"
	"github.com/seiggy/lucia/internal/orchestrator/scheduler"
)

// Config is orchestratord's top-level configuration document.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Hub      HubConfig      `yaml:"hub"`
	Router   RouterConfig   `yaml:"router"`
	Cache    CacheConfig    `yaml:"cache"`
	Session  SessionConfig  `yaml:"session"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	LogLevel string         `yaml:"logLevel"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type HubConfig struct {
	BaseURL            string `yaml:"baseUrl"`
	BearerToken        string `yaml:"bearerToken"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
}

type RouterConfig struct {
	Temperature          float64 `yaml:"temperature"`
	MaxAttempts          int     `yaml:"maxAttempts"`
	ConfidenceThreshold  float64 `yaml:"confidenceThreshold"`
	TimeoutSeconds       int     `yaml:"timeoutSeconds"`
	FallbackAgentID      string  `yaml:"fallbackAgentId"`
	ClarificationAgentID string  `yaml:"clarificationAgentId"`
}

type CacheConfig struct {
	MaxEntries int `yaml:"maxEntries"`
}

type SessionConfig struct {
	IdleTTLMinutes int `yaml:"idleTtlMinutes"`
}

type SchedulerConfig struct {
	PollIntervalSeconds int `yaml:"pollIntervalSeconds"`
	MaxRecoveryAgeMinutes int `yaml:"maxRecoveryAgeMinutes"`
}

// SetDefaults fills every unset field with spec.md's documented defaults.
func (c *Config) SetDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Router.Temperature == 0 {
		c.Router.Temperature = router.DefaultTemperature
	}
	if c.Router.MaxAttempts == 0 {
		c.Router.MaxAttempts = router.DefaultMaxAttempts
	}
	if c.Router.ConfidenceThreshold == 0 {
		c.Router.ConfidenceThreshold = router.DefaultConfidenceThreshold
	}
	if c.Router.TimeoutSeconds == 0 {
		c.Router.TimeoutSeconds = int(router.DefaultTimeout.Seconds())
	}
	if c.Router.FallbackAgentID == "" {
		c.Router.FallbackAgentID = router.DefaultFallbackAgentID
	}
	if c.Router.ClarificationAgentID == "" {
		c.Router.ClarificationAgentID = router.DefaultClarificationAgentID
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 10_000
	}
	if c.Session.IdleTTLMinutes == 0 {
		c.Session.IdleTTLMinutes = 30
	}
	if c.Scheduler.PollIntervalSeconds == 0 {
		c.Scheduler.PollIntervalSeconds = int(scheduler.DefaultPollInterval.Seconds())
	}
	if c.Scheduler.MaxRecoveryAgeMinutes == 0 {
		c.Scheduler.MaxRecoveryAgeMinutes = int(scheduler.DefaultMaxRecoveryAge.Minutes())
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate enforces the invariants the loader cannot fix with a default.
func (c *Config) Validate() error {
	if c.Router.ConfidenceThreshold < 0 || c.Router.ConfidenceThreshold > 1 {
		return fmt.Errorf("config: router.confidenceThreshold must be in [0,1]")
	}
	return nil
}

func (c Config) RouterTimeout() time.Duration {
	return time.Duration(c.Router.TimeoutSeconds) * time.Second
}

func (c Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.Session.IdleTTLMinutes) * time.Minute
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Scheduler.PollIntervalSeconds) * time.Second
}

func (c Config) MaxRecoveryAge() time.Duration {
	return time.Duration(c.Scheduler.MaxRecoveryAgeMinutes) * time.Minute
}

// Load reads and parses path, applying defaults and validating the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
