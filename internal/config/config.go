// Package config loads and validates the project-root configuration file
// that governs a kernel run: execution limits, test/git integration,
// recognized languages, per-role prompt overlays, and the fallback chain
// each agent role uses.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ExecutionConfig controls kernel-level concurrency and iteration limits.
type ExecutionConfig struct {
	Parallel       bool `mapstructure:"parallel" yaml:"parallel"`
	MaxConcurrency int  `mapstructure:"maxConcurrency" yaml:"maxConcurrency" validate:"min=1"`
	MaxIterations  int  `mapstructure:"maxIterations" yaml:"maxIterations" validate:"min=1"`
	TimeoutMs      int  `mapstructure:"timeout" yaml:"timeout" validate:"min=0"`
}

// TestConfig controls the optional testing phase.
type TestConfig struct {
	Command          string `mapstructure:"command" yaml:"command"`
	RunAfterGenerate bool   `mapstructure:"runAfterGeneration" yaml:"runAfterGeneration"`
	TimeoutMs        int    `mapstructure:"timeout" yaml:"timeout" validate:"min=0"`
}

// GitConfig controls the optional committing phase.
type GitConfig struct {
	AutoCommit            bool   `mapstructure:"autoCommit" yaml:"autoCommit"`
	CommitMessageTemplate string `mapstructure:"commitMessageTemplate" yaml:"commitMessageTemplate"`
	Branch                string `mapstructure:"branch" yaml:"branch"`
}

// PromptsConfig holds per-role text prepended to that role's base prompt.
type PromptsConfig struct {
	Architect  string `mapstructure:"architect" yaml:"architect"`
	Executor   string `mapstructure:"executor" yaml:"executor"`
	Auditor    string `mapstructure:"auditor" yaml:"auditor"`
	Consultant string `mapstructure:"consultant" yaml:"consultant"`
}

// RecoveryConfig controls the per-file recovery branch.
type RecoveryConfig struct {
	MaxRecoveryAttempts    int  `mapstructure:"maxRecoveryAttempts" yaml:"maxRecoveryAttempts" validate:"min=0"`
	RecoveryTimeoutMinutes int  `mapstructure:"recoveryTimeoutMinutes" yaml:"recoveryTimeoutMinutes" validate:"min=0"`
	AutoRevertOnFailure    bool `mapstructure:"autoRevertOnFailure" yaml:"autoRevertOnFailure"`
}

// CacheConfig controls the process-local prompt cache administered by
// `orchestra cache`. Zero values fall back to promptcache's own defaults.
type CacheConfig struct {
	MaxEntries int `mapstructure:"maxEntries" yaml:"maxEntries" validate:"min=0"`
	TTLMinutes int `mapstructure:"ttlMinutes" yaml:"ttlMinutes" validate:"min=0"`
}

// AgentsConfig maps each agent role to its ordered fallback chain of
// backend identifiers.
type AgentsConfig struct {
	Architect  []string `mapstructure:"architect" yaml:"architect"`
	Executor   []string `mapstructure:"executor" yaml:"executor"`
	Auditor    []string `mapstructure:"auditor" yaml:"auditor"`
	Consultant []string `mapstructure:"consultant" yaml:"consultant"`
}

var validLanguages = map[string]bool{
	"python": true, "javascript": true, "typescript": true,
	"go": true, "rust": true, "json": true, "yaml": true,
}

// Config is the full project-root configuration document.
type Config struct {
	Execution ExecutionConfig `mapstructure:"execution" yaml:"execution" validate:"required"`
	Test      TestConfig      `mapstructure:"test" yaml:"test"`
	Git       GitConfig       `mapstructure:"git" yaml:"git"`
	Languages []string        `mapstructure:"languages" yaml:"languages"`
	Prompts   PromptsConfig   `mapstructure:"prompts" yaml:"prompts"`
	Recovery  RecoveryConfig  `mapstructure:"recovery" yaml:"recovery"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Agents    AgentsConfig    `mapstructure:"agents" yaml:"agents" validate:"required"`
}

// Load reads the project configuration from path plus a `.env` file in the
// current working directory (if present), applies defaults, and
// validates the result. JSON is read through viper, so flag/env overrides
// bind the same way as the rest of the config layer; a `.yaml`/`.yml`
// extension is read directly with yaml.v3 instead, since a
// human-maintained config document is exactly what that library is for
// and viper's own format detection would otherwise shadow it.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
		}
	default:
		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("json")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("config: unmarshal: %w", err)
		}
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Execution.MaxConcurrency == 0 {
		cfg.Execution.MaxConcurrency = 4
	}
	if cfg.Execution.MaxIterations == 0 {
		cfg.Execution.MaxIterations = 5
	}
	if cfg.Execution.TimeoutMs == 0 {
		cfg.Execution.TimeoutMs = int(5 * time.Minute / time.Millisecond)
	}
	if cfg.Test.TimeoutMs == 0 {
		cfg.Test.TimeoutMs = int(10 * time.Minute / time.Millisecond)
	}
	if cfg.Git.CommitMessageTemplate == "" {
		cfg.Git.CommitMessageTemplate = "orchestra: {task}"
	}
	if cfg.Recovery.MaxRecoveryAttempts == 0 {
		cfg.Recovery.MaxRecoveryAttempts = 2
	}
	if cfg.Recovery.RecoveryTimeoutMinutes == 0 {
		cfg.Recovery.RecoveryTimeoutMinutes = 15
	}
}

var validate = validator.New()

// Validate runs struct-tag validation and the language-enum check that
// validator's tag syntax can't express cleanly.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for _, lang := range c.Languages {
		if !validLanguages[lang] {
			return fmt.Errorf("config: unrecognized language %q", lang)
		}
	}
	return nil
}

// FallbackChain returns the ordered backend identifiers configured for
// role, or nil if the role has no chain configured.
func (c *Config) FallbackChain(role string) []string {
	switch role {
	case "architect":
		return c.Agents.Architect
	case "executor":
		return c.Agents.Executor
	case "auditor":
		return c.Agents.Auditor
	case "consultant":
		return c.Agents.Consultant
	default:
		return nil
	}
}
