package kernel

import (
	"context"
	"os/exec"
	"strings"

	"github.com/hectormr206/orchestra/internal/events"
)

// runCommittingPhase stages every change in the working tree (git add -A)
// and commits it when git.autoCommit is enabled. Like testing, a commit failure (e.g.
// nothing to commit, or no repository) is non-terminal: Run still
// decides Completed vs Failed from file status, not from commit status.
func (k *Kernel) runCommittingPhase(ctx context.Context) {
	if !k.cfg.Git.AutoCommit {
		return
	}

	k.publish(events.KernelEvent{Type: events.KernelCommitStart})

	add := exec.CommandContext(ctx, "git", "add", "-A")
	add.Dir = k.opts.WorkDir
	if out, err := add.CombinedOutput(); err != nil {
		k.publish(events.KernelEvent{Type: events.KernelCommitComplete, Reason: err.Error(), Message: string(out)})
		return
	}

	message := renderCommitMessage(k.cfg.Git.CommitMessageTemplate, string(k.sess.Task))
	commit := exec.CommandContext(ctx, "git", "commit", "-m", message)
	commit.Dir = k.opts.WorkDir
	out, err := commit.CombinedOutput()

	ev := events.KernelEvent{Type: events.KernelCommitComplete, Message: string(out)}
	if err != nil {
		ev.Reason = err.Error()
	}
	k.publish(ev)
}

func renderCommitMessage(template, task string) string {
	if template == "" {
		template = "orchestra: {task}"
	}
	msg := strings.ReplaceAll(template, "{task}", task)
	if len(msg) > 72 {
		msg = msg[:72]
	}
	return msg
}
