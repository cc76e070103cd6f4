package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T, contents map[string]interface{}) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "orchestra.json")
	data, err := json.Marshal(contents)
	if err != nil {
		t.Fatalf("marshal test config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write test config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeTestConfig(t, map[string]interface{}{
		"execution": map[string]interface{}{"maxConcurrency": 1, "maxIterations": 1},
		"agents": map[string]interface{}{
			"architect": []string{"claude-code"},
		},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Execution.TimeoutMs == 0 {
		t.Error("expected a default execution timeout")
	}
	if cfg.Recovery.MaxRecoveryAttempts != 2 {
		t.Errorf("expected default maxRecoveryAttempts=2, got %d", cfg.Recovery.MaxRecoveryAttempts)
	}
	if cfg.Git.CommitMessageTemplate == "" {
		t.Error("expected a default commit message template")
	}
}

func TestLoad_UnmarshalsExplicitRecoverySection(t *testing.T) {
	path := writeTestConfig(t, map[string]interface{}{
		"execution": map[string]interface{}{"maxConcurrency": 1, "maxIterations": 1},
		"agents":    map[string]interface{}{"architect": []string{"claude-code"}},
		"recovery": map[string]interface{}{
			"maxRecoveryAttempts":    5,
			"recoveryTimeoutMinutes": 30,
			"autoRevertOnFailure":    true,
		},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Recovery.MaxRecoveryAttempts != 5 {
		t.Errorf("expected maxRecoveryAttempts=5, got %d", cfg.Recovery.MaxRecoveryAttempts)
	}
	if cfg.Recovery.RecoveryTimeoutMinutes != 30 {
		t.Errorf("expected recoveryTimeoutMinutes=30, got %d", cfg.Recovery.RecoveryTimeoutMinutes)
	}
	if !cfg.Recovery.AutoRevertOnFailure {
		t.Error("expected autoRevertOnFailure=true to round-trip")
	}
}

func TestLoad_ReadsYAMLConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orchestra.yaml")
	doc := `
execution:
  maxConcurrency: 3
  maxIterations: 4
agents:
  architect:
    - claude-code
  executor:
    - claude-code
    - codex
recovery:
  maxRecoveryAttempts: 1
  recoveryTimeoutMinutes: 10
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write yaml config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Execution.MaxConcurrency != 3 || cfg.Execution.MaxIterations != 4 {
		t.Errorf("unexpected execution config: %+v", cfg.Execution)
	}
	if len(cfg.Agents.Executor) != 2 || cfg.Agents.Executor[1] != "codex" {
		t.Errorf("unexpected executor chain: %v", cfg.Agents.Executor)
	}
	if cfg.Recovery.MaxRecoveryAttempts != 1 {
		t.Errorf("unexpected recovery config: %+v", cfg.Recovery)
	}
}

func TestLoad_UnmarshalsCacheSection(t *testing.T) {
	path := writeTestConfig(t, map[string]interface{}{
		"execution": map[string]interface{}{"maxConcurrency": 1, "maxIterations": 1},
		"agents":    map[string]interface{}{"architect": []string{"claude-code"}},
		"cache":     map[string]interface{}{"maxEntries": 50, "ttlMinutes": 5},
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.MaxEntries != 50 || cfg.Cache.TTLMinutes != 5 {
		t.Errorf("unexpected cache config: %+v", cfg.Cache)
	}
}

func TestLoad_RejectsUnknownLanguage(t *testing.T) {
	path := writeTestConfig(t, map[string]interface{}{
		"execution": map[string]interface{}{"maxConcurrency": 1, "maxIterations": 1},
		"agents":    map[string]interface{}{"architect": []string{"claude-code"}},
		"languages": []string{"cobol"},
	})

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unrecognized language")
	}
}

func TestLoad_RejectsMissingAgents(t *testing.T) {
	path := writeTestConfig(t, map[string]interface{}{
		"execution": map[string]interface{}{"maxConcurrency": 1, "maxIterations": 1},
	})

	if _, err := Load(path); err == nil {
		t.Fatal("expected error when agents block is entirely empty")
	}
}

func TestConfig_FallbackChain(t *testing.T) {
	cfg := &Config{Agents: AgentsConfig{
		Executor: []string{"claude-code", "codex"},
	}}
	if got := cfg.FallbackChain("executor"); len(got) != 2 || got[0] != "claude-code" {
		t.Errorf("unexpected executor chain: %v", got)
	}
	if got := cfg.FallbackChain("unknown-role"); got != nil {
		t.Errorf("expected nil chain for unknown role, got %v", got)
	}
}

func TestConfig_Validate_RejectsZeroMaxConcurrency(t *testing.T) {
	cfg := &Config{
		Execution: ExecutionConfig{MaxConcurrency: 0, MaxIterations: 1},
		Agents:    AgentsConfig{Architect: []string{"claude-code"}},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for maxConcurrency below 1")
	}
}
