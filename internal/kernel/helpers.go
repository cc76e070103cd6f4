package kernel

import (
	"os"
	"path/filepath"
	"time"

	"github.com/hectormr206/orchestra/internal/events"
)

func approvalTimestamp() time.Time { return time.Now() }

// writeGeneratedFile writes content to workDir/relPath, creating parent
// directories as needed.
func writeGeneratedFile(workDir, relPath, content string) error {
	dest := filepath.Join(workDir, relPath)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(content), 0o644)
}

func phaseReadyEvent(sessionID, planPath string) events.KernelEvent {
	return events.KernelEvent{Type: events.KernelPlanReady, SessionID: sessionID, Message: planPath}
}

func fileStartBatchEvent(total int) events.KernelEvent {
	return events.KernelEvent{Type: events.KernelFileStart, Total: total}
}

func fileErrorEvent(err error) events.KernelEvent {
	return events.KernelEvent{Type: events.KernelError, Message: err.Error()}
}
