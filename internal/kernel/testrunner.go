package kernel

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hectormr206/orchestra/internal/events"
)

// runTestingPhase runs the configured (or autodetected) test command for
// the working tree. A test failure is non-terminal: it is recorded on
// the session and surfaced as an event, but the kernel still proceeds to
// the committing phase, since a human reviewing the commit may still
// find the partial result useful.
func (k *Kernel) runTestingPhase(ctx context.Context) {
	command := k.cfg.Test.Command
	if command == "" {
		command = detectTestCommand(k.opts.WorkDir)
	}
	if command == "" {
		k.publish(events.KernelEvent{Type: events.KernelTestComplete, Message: "no test command detected, skipped"})
		return
	}

	timeout := time.Duration(k.cfg.Test.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	k.publish(events.KernelEvent{Type: events.KernelTestStart, Message: command})
	start := time.Now()

	fields := strings.Fields(command)
	cmd := exec.CommandContext(runCtx, fields[0], fields[1:]...)
	cmd.Dir = k.opts.WorkDir
	out, err := cmd.CombinedOutput()

	ev := events.KernelEvent{
		Type:       events.KernelTestComplete,
		DurationMs: time.Since(start).Milliseconds(),
		Message:    string(out),
	}
	if err != nil {
		ev.Reason = err.Error()
		_ = k.store.SetError(k.sess, "tests failed: "+err.Error())
	}
	k.publish(ev)
}

// detectTestCommand probes the work directory for the conventional
// build-file markers of each supported language and returns that
// ecosystem's standard test invocation, or "" if none are found.
func detectTestCommand(workDir string) string {
	probes := []struct {
		marker  string
		command string
	}{
		{"go.mod", "go test ./..."},
		{"package.json", "npm test"},
		{"Cargo.toml", "cargo test"},
		{"pyproject.toml", "pytest"},
		{"requirements.txt", "pytest"},
	}
	for _, p := range probes {
		if _, err := os.Stat(filepath.Join(workDir, p.marker)); err == nil {
			return p.command
		}
	}
	return ""
}
