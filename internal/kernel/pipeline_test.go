package kernel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hectormr206/orchestra/internal/adapter"
	"github.com/hectormr206/orchestra/internal/fallback"
	"github.com/hectormr206/orchestra/internal/session"
)

func TestRunPipeline_GenerateThenAuditPerFile(t *testing.T) {
	chains := map[session.AgentRole]*fallback.Chain{
		session.RoleExecutor: chainOf("e", adapter.ExecuteResult{Success: true, Text: "package a\n"}),
		session.RoleAuditor:  chainOf("aud", adapter.ExecuteResult{Success: true, Text: "approved"}),
	}
	k, _, workDir := newTestKernel(t, nil, chains)
	k.sess.Files = []session.FileRecord{{Path: "a.go", Status: session.FileStatusPending}}

	if err := k.runPipeline(context.Background()); err != nil {
		t.Fatalf("runPipeline: %v", err)
	}
	if k.sess.Files[0].Status != session.FileStatusComplete {
		t.Fatalf("expected complete, got %s", k.sess.Files[0].Status)
	}
	if _, err := os.Stat(filepath.Join(workDir, "a.go")); err != nil {
		t.Errorf("expected generated file on disk: %v", err)
	}
}

func TestRunPipeline_NoAuditorSkipsStraightToComplete(t *testing.T) {
	chains := map[session.AgentRole]*fallback.Chain{
		session.RoleExecutor: chainOf("e", adapter.ExecuteResult{Success: true, Text: "package a\n"}),
	}
	k, _, _ := newTestKernel(t, nil, chains)
	k.sess.Files = []session.FileRecord{{Path: "a.go", Status: session.FileStatusPending}}

	if err := k.runPipeline(context.Background()); err != nil {
		t.Fatalf("runPipeline: %v", err)
	}
	if k.sess.Files[0].Status != session.FileStatusComplete {
		t.Fatalf("expected complete without an auditor configured, got %s", k.sess.Files[0].Status)
	}
}

func TestRunPipeline_AuditRejectionLeavesFileRejected(t *testing.T) {
	chains := map[session.AgentRole]*fallback.Chain{
		session.RoleExecutor: chainOf("e", adapter.ExecuteResult{Success: true, Text: "package a\n"}),
		session.RoleAuditor:  chainOf("aud", adapter.ExecuteResult{Success: true, Text: "rejected: needs changes"}),
	}
	k, _, _ := newTestKernel(t, nil, chains)
	k.sess.Files = []session.FileRecord{{Path: "a.go", Status: session.FileStatusPending}}

	if err := k.runPipeline(context.Background()); err != nil {
		t.Fatalf("runPipeline: %v", err)
	}
	if k.sess.Files[0].Status != session.FileStatusAuditRejected {
		t.Fatalf("expected audit-rejected, got %s", k.sess.Files[0].Status)
	}
}

func TestRunPipeline_NoExecutorChainErrors(t *testing.T) {
	k, _, _ := newTestKernel(t, nil, map[session.AgentRole]*fallback.Chain{})
	if err := k.runPipeline(context.Background()); err == nil {
		t.Fatal("expected error when no executor chain is configured")
	}
}
