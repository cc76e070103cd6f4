package kernel

import (
	"context"
	"fmt"
	"time"

	"github.com/hectormr206/orchestra/internal/events"
	"github.com/hectormr206/orchestra/internal/session"
)

// runRecovery drives the per-file recovery branch for every file still
// not in a terminal status after the bounded audit loop: Consultant
// produces targeted guidance, Executor re-generates with that guidance
// prepended, repeated up to maxRecoveryAttempts per file, the whole
// branch time-boxed by recoveryTimeoutMinutes. A file that is still not
// approved when attempts or the deadline are exhausted is marked abandoned;
// when auto-revert is configured, every file captured in the pre-execution
// checkpoint is restored, not only the abandoned one.
func (k *Kernel) runRecovery(ctx context.Context) error {
	var targets []string
	for _, f := range k.sess.Files {
		if !f.Status.IsTerminal() {
			targets = append(targets, f.Path)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	deadline := time.Now().Add(time.Duration(k.cfg.Recovery.RecoveryTimeoutMinutes) * time.Minute)
	consultantChain := k.chains[session.RoleConsultant]
	executorChain := k.chains[session.RoleExecutor]

	for _, path := range targets {
		rec := k.sess.FileByPath(path)
		rec.Status = session.FileStatusInRecovery

		recovered := false
		for attempt := 1; attempt <= k.cfg.Recovery.MaxRecoveryAttempts; attempt++ {
			if time.Now().After(deadline) {
				break
			}
			if ctx.Err() != nil {
				break
			}

			guidance := ""
			if consultantChain != nil {
				res, err := k.executeWithCompaction(ctx, session.RoleConsultant, consultantChain, k.consultantPrompt(path, rec))
				if err == nil && res.Success {
					guidance = res.Text
				}
			}
			k.publish(events.KernelEvent{Type: events.KernelConsultant, FilePath: path, Iteration: attempt})

			if executorChain == nil {
				break
			}
			prompt := guidance + "\n\n" + k.executorPrompt(path, rec.Description)
			res, err := k.executeWithCompaction(ctx, session.RoleExecutor, executorChain, prompt)
			if err != nil || !res.Success {
				rec.LastError = errString(err, res.Text)
				continue
			}
			if writeErr := writeGeneratedFile(k.opts.WorkDir, path, res.Text); writeErr != nil {
				rec.LastError = writeErr.Error()
				continue
			}
			rec.Status = session.FileStatusComplete
			recovered = true
			break
		}

		if !recovered {
			if k.cfg.Recovery.AutoRevertOnFailure {
				_ = k.store.RevertTo(k.sess, k.opts.WorkDir, "pre-execution")
			}
			rec.Status = session.FileStatusAbandoned
		}
	}

	return k.store.Save(k.sess)
}

func (k *Kernel) consultantPrompt(path string, rec *session.FileRecord) string {
	base := ""
	if k.cfg != nil {
		base = k.cfg.Prompts.Consultant
	}
	return fmt.Sprintf("%s\n\nFile %s has repeatedly failed audit. Last error: %s\nProvide targeted algorithmic guidance for the executor to fix it.", base, path, rec.LastError)
}
