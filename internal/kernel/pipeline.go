package kernel

import (
	"context"
	"fmt"

	"github.com/hectormr206/orchestra/internal/events"
	"github.com/hectormr206/orchestra/internal/session"
)

// runPipeline implements pipeline mode: each file is generated and
// audited independently rather than as two session-wide phases, so a
// slow file never blocks a fast one from reaching its terminal status.
// A single pass through the worker pool does generate-then-audit per
// file; files that fail audit are left audit-rejected for the recovery
// branch rather than retried inline, since pipeline mode has no
// iteration loop of its own.
func (k *Kernel) runPipeline(ctx context.Context) error {
	executor, ok := k.chains[session.RoleExecutor]
	if !ok {
		return fmt.Errorf("no executor adapter chain configured")
	}
	auditor := k.chains[session.RoleAuditor]

	var targets []string
	for _, f := range k.sess.PendingOrRunningFiles() {
		targets = append(targets, f.Path)
	}
	k.publish(fileStartBatchEvent(len(targets)))

	errs := k.dispatchFiles(ctx, targets, func(ctx context.Context, path string, _ int) error {
		rec := k.sess.FileByPath(path)
		rec.Status = session.FileStatusRunning

		genRes, err := k.executeWithCompaction(ctx, session.RoleExecutor, executor, k.executorPrompt(path, rec.Description))
		if err != nil || !genRes.Success {
			rec.Status = session.FileStatusAuditRejected
			rec.LastError = errString(err, genRes.Text)
			return err
		}
		if err := writeGeneratedFile(k.opts.WorkDir, path, genRes.Text); err != nil {
			rec.Status = session.FileStatusAuditRejected
			rec.LastError = err.Error()
			return err
		}
		rec.Status = session.FileStatusGenerated
		rec.LastDuration = genRes.Duration
		k.publish(events.KernelEvent{Type: events.KernelFileComplete, FilePath: path})

		if auditor == nil {
			rec.Status = session.FileStatusComplete
			return nil
		}
		auditRes, err := k.executeWithCompaction(ctx, session.RoleAuditor, auditor, k.auditorPrompt(path, genRes.Text))
		k.publish(events.KernelEvent{Type: events.KernelFileAudit, FilePath: path})
		if err != nil || !auditRes.Success || !auditApproves(auditRes.Text) {
			rec.Status = session.FileStatusAuditRejected
			rec.LastError = errString(err, auditRes.Text)
			return nil
		}
		rec.Status = session.FileStatusComplete
		return nil
	})

	for _, err := range errs {
		if err != nil {
			k.publish(fileErrorEvent(err))
		}
	}
	return k.store.Save(k.sess)
}
