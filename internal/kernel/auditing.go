package kernel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hectormr206/orchestra/internal/events"
	"github.com/hectormr206/orchestra/internal/session"
)

// convergenceState is not persisted in Session; it lives only for the
// lifetime of one Kernel.Run call, tracking the last two audit rounds'
// output hashes and rejection sets for the output-hash convergence check.
type convergenceState struct {
	lastHash     string
	lastRejected string
}

// runAuditing invokes the auditor role over every generated file,
// updates each file's status to audit-approved or audit-rejected, and
// reports whether the round converged (same hash, same rejection set as
// the previous round) along with the list of rejected paths.
func (k *Kernel) runAuditing(ctx context.Context) (converged bool, rejected []string, err error) {
	chain, ok := k.chains[session.RoleAuditor]
	if !ok {
		return false, nil, fmt.Errorf("no auditor adapter chain configured")
	}

	artifacts := make(map[string][]byte)
	var candidates []string
	for _, f := range k.sess.Files {
		if f.Status != session.FileStatusGenerated {
			continue
		}
		candidates = append(candidates, f.Path)
		content, readErr := os.ReadFile(filepath.Join(k.opts.WorkDir, f.Path))
		if readErr == nil {
			artifacts[f.Path] = content
		}
	}

	errs := k.dispatchFiles(ctx, candidates, func(ctx context.Context, path string, _ int) error {
		rec := k.sess.FileByPath(path)
		prompt := k.auditorPrompt(path, string(artifacts[path]))
		res, execErr := k.executeWithCompaction(ctx, session.RoleAuditor, chain, prompt)
		k.publish(events.KernelEvent{Type: events.KernelFileAudit, FilePath: path})

		if execErr != nil || !res.Success {
			rec.Status = session.FileStatusAuditRejected
			rec.LastError = errString(execErr, res.Text)
			return execErr
		}
		if auditApproves(res.Text) {
			rec.Status = session.FileStatusAuditApproved
			return nil
		}
		rec.Status = session.FileStatusAuditRejected
		rec.LastError = res.Text
		return nil
	})
	for _, e := range errs {
		if e != nil {
			k.publish(fileErrorEvent(e))
		}
	}

	rejectedSet := make(map[string]bool)
	for _, path := range candidates {
		rec := k.sess.FileByPath(path)
		if rec.Status == session.FileStatusAuditRejected {
			rejected = append(rejected, path)
			rejectedSet[path] = true
		} else if rec.Status == session.FileStatusAuditApproved {
			rec.Status = session.FileStatusComplete
		}
	}

	// A file whose executor chain was exhausted entirely (never reached
	// Generated, so it was never a candidate above) still needs to be
	// tracked as rejected here — otherwise it never reaches Fixing/Recovery
	// and gets silently waved through once every candidate is approved.
	for _, f := range k.sess.Files {
		if f.Status == session.FileStatusAuditRejected && !rejectedSet[f.Path] {
			rejected = append(rejected, f.Path)
			rejectedSet[f.Path] = true
		}
	}

	hash := session.HashArtifacts(artifacts)
	rejectedKey := strings.Join(rejected, ",")
	converged = k.convergence.lastHash == hash && k.convergence.lastRejected == rejectedKey && k.convergence.lastHash != ""
	k.convergence.lastHash = hash
	k.convergence.lastRejected = rejectedKey

	return converged, rejected, k.store.Save(k.sess)
}

func (k *Kernel) auditorPrompt(path, content string) string {
	var b strings.Builder
	if k.cfg != nil && k.cfg.Prompts.Auditor != "" {
		b.WriteString(k.cfg.Prompts.Auditor)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Review the following file for correctness and completeness.\nFile: %s\n\n%s\n", path, content)
	return b.String()
}

// auditApproves is a conservative heuristic over free-text auditor
// output: approval requires an explicit positive verdict, not merely the
// absence of the word "reject".
func auditApproves(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "reject") || strings.Contains(lower, "issue found") || strings.Contains(lower, "needs changes") {
		return false
	}
	return strings.Contains(lower, "approve") || strings.Contains(lower, "looks good") || strings.Contains(lower, "no issues")
}
