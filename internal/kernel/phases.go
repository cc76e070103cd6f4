package kernel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hectormr206/orchestra/internal/session"
)

const planFileName = "plan.md"

func (k *Kernel) planPath() string {
	return filepath.Join(k.opts.WorkDir, ".orchestra", k.sess.ID, planFileName)
}

// runPlanning invokes the architect role on the task, parses the
// resulting file directives, and stores the plan (not yet approved).
func (k *Kernel) runPlanning(ctx context.Context) error {
	chain, ok := k.chains[session.RoleArchitect]
	if !ok {
		return fmt.Errorf("no architect adapter chain configured")
	}

	prompt := string(k.sess.Task)
	res, err := k.executeWithCompaction(ctx, session.RoleArchitect, chain, prompt)
	if err != nil {
		return fmt.Errorf("architect: %w", err)
	}

	plan := &session.Plan{Content: res.Text}
	plan.ParseDirectives()
	k.sess.Plan = plan

	for _, d := range plan.Files {
		k.sess.Files = append(k.sess.Files, session.FileRecord{
			Path:        d.Path,
			Description: d.Description,
			Status:      session.FileStatusPending,
		})
	}

	if err := os.MkdirAll(filepath.Dir(k.planPath()), 0o755); err != nil {
		return fmt.Errorf("plan: mkdir: %w", err)
	}
	if err := os.WriteFile(k.planPath(), []byte(plan.Content), 0o644); err != nil {
		return fmt.Errorf("plan: write: %w", err)
	}

	return k.store.Save(k.sess)
}

// runApproval implements the plan-approval protocol: emit onPlanReady,
// then either auto-approve or block on opts.OnApproval. On DecisionEdit
// the plan is re-read from disk and its directives re-parsed before
// returning, so the caller's next loop iteration sees the edited plan.
func (k *Kernel) runApproval(ctx context.Context) (PlanDecision, error) {
	k.publish(phaseReadyEvent(k.sess.ID, k.planPath()))

	var decision PlanDecision
	if k.opts.AutoApprove {
		decision = DecisionApprove
	} else if k.opts.OnApproval != nil {
		decision = k.opts.OnApproval(k.sess.Plan.Content, k.planPath())
	} else {
		decision = DecisionApprove
	}

	if decision == DecisionEdit {
		raw, err := os.ReadFile(k.planPath())
		if err != nil {
			return "", fmt.Errorf("plan: reload after edit: %w", err)
		}
		k.sess.Plan.Content = string(raw)
		k.sess.Plan.ParseDirectives()
		if err := k.store.Save(k.sess); err != nil {
			return "", err
		}
	}
	return decision, nil
}

// beginExecution marks the plan approved and checkpoints every planned
// file before the first generation pass, per the "checkpoint before
// executing" invariant.
func (k *Kernel) beginExecution(ctx context.Context) error {
	now := approvalTimestamp()
	k.sess.Plan.ApprovedAt = &now

	paths := make([]string, len(k.sess.Files))
	for i, f := range k.sess.Files {
		paths[i] = f.Path
	}
	if len(paths) > 0 {
		if _, err := k.store.CreateCheckpoint(k.sess, k.opts.WorkDir, "pre-execution", paths); err != nil {
			return fmt.Errorf("checkpoint: %w", err)
		}
	}
	return k.store.Save(k.sess)
}

// runExecutionRound invokes the executor role over targetPaths (or every
// pending/rejected file when targetPaths is nil) with bounded
// concurrency, writing generated content to disk and updating each
// file's status.
func (k *Kernel) runExecutionRound(ctx context.Context, targetPaths []string) error {
	chain, ok := k.chains[session.RoleExecutor]
	if !ok {
		return fmt.Errorf("no executor adapter chain configured")
	}

	if targetPaths == nil {
		for _, f := range k.sess.PendingOrRunningFiles() {
			targetPaths = append(targetPaths, f.Path)
		}
	}

	k.publish(fileStartBatchEvent(len(targetPaths)))

	errs := k.dispatchFiles(ctx, targetPaths, func(ctx context.Context, path string, _ int) error {
		rec := k.sess.FileByPath(path)
		if rec == nil {
			return fmt.Errorf("unknown file %q", path)
		}
		rec.Status = session.FileStatusRunning

		prompt := k.executorPrompt(path, rec.Description)
		res, err := k.executeWithCompaction(ctx, session.RoleExecutor, chain, prompt)
		if err != nil || !res.Success {
			rec.Status = session.FileStatusAuditRejected
			rec.LastError = errString(err, res.Text)
			return err
		}

		if err := writeGeneratedFile(k.opts.WorkDir, path, res.Text); err != nil {
			rec.Status = session.FileStatusAuditRejected
			rec.LastError = err.Error()
			return err
		}
		rec.Status = session.FileStatusGenerated
		rec.LastDuration = res.Duration
		return nil
	})

	for _, err := range errs {
		if err != nil {
			k.publish(fileErrorEvent(err))
		}
	}
	return k.store.Save(k.sess)
}

func (k *Kernel) executorPrompt(path, description string) string {
	var b strings.Builder
	if k.cfg != nil && k.cfg.Prompts.Executor != "" {
		b.WriteString(k.cfg.Prompts.Executor)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Task: %s\nFile: %s\nIntent: %s\n", k.sess.Task, path, description)
	return b.String()
}

func errString(err error, fallbackText string) string {
	if err != nil {
		return err.Error()
	}
	return fallbackText
}
