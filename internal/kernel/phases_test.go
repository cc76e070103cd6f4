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

func TestRunPlanning_ParsesDirectivesAndWritesPlanFile(t *testing.T) {
	chains := map[session.AgentRole]*fallback.Chain{
		session.RoleArchitect: chainOf("a", adapter.ExecuteResult{
			Success: true, Text: "- `main.go`: entry point\n- `util.go`: helpers\n",
		}),
	}
	k, _, _ := newTestKernel(t, nil, chains)

	if err := k.runPlanning(context.Background()); err != nil {
		t.Fatalf("runPlanning: %v", err)
	}
	if len(k.sess.Files) != 2 {
		t.Fatalf("expected 2 planned files, got %d: %+v", len(k.sess.Files), k.sess.Files)
	}
	if k.sess.Files[0].Status != session.FileStatusPending {
		t.Errorf("expected pending status, got %s", k.sess.Files[0].Status)
	}
	if _, err := os.Stat(k.planPath()); err != nil {
		t.Errorf("expected plan file on disk: %v", err)
	}
}

func TestRunPlanning_NoArchitectChainErrors(t *testing.T) {
	k, _, _ := newTestKernel(t, nil, map[session.AgentRole]*fallback.Chain{})
	if err := k.runPlanning(context.Background()); err == nil {
		t.Fatal("expected error when no architect chain is configured")
	}
}

func TestRunApproval_AutoApproveBypassesCallback(t *testing.T) {
	k, _, _ := newTestKernel(t, nil, map[session.AgentRole]*fallback.Chain{})
	k.sess.Plan = &session.Plan{Content: "plan text"}
	k.opts.AutoApprove = true
	k.opts.OnApproval = func(content, planPath string) PlanDecision {
		t.Fatal("OnApproval should not be called when AutoApprove is set")
		return DecisionReject
	}

	decision, err := k.runApproval(context.Background())
	if err != nil {
		t.Fatalf("runApproval: %v", err)
	}
	if decision != DecisionApprove {
		t.Fatalf("expected approve, got %s", decision)
	}
}

func TestRunApproval_EditReloadsPlanFromDisk(t *testing.T) {
	k, _, _ := newTestKernel(t, nil, map[session.AgentRole]*fallback.Chain{})
	k.sess.Plan = &session.Plan{Content: "- `old.go`: stale\n"}
	k.opts.AutoApprove = false
	k.opts.OnApproval = func(content, planPath string) PlanDecision { return DecisionEdit }

	if err := os.MkdirAll(filepath.Dir(k.planPath()), 0o755); err != nil {
		t.Fatalf("mkdir plan dir: %v", err)
	}
	edited := "- `new.go`: edited by hand\n"
	if err := os.WriteFile(k.planPath(), []byte(edited), 0o644); err != nil {
		t.Fatalf("write edited plan: %v", err)
	}

	decision, err := k.runApproval(context.Background())
	if err != nil {
		t.Fatalf("runApproval: %v", err)
	}
	if decision != DecisionEdit {
		t.Fatalf("expected edit, got %s", decision)
	}
	if k.sess.Plan.Content != edited {
		t.Errorf("expected plan content reloaded from disk, got %q", k.sess.Plan.Content)
	}
	if len(k.sess.Plan.Files) != 1 || k.sess.Plan.Files[0].Path != "new.go" {
		t.Errorf("expected re-parsed directives to reflect the edit, got %+v", k.sess.Plan.Files)
	}
}

func TestBeginExecution_ChecksPointsEveryPlannedFile(t *testing.T) {
	k, _, workDir := newTestKernel(t, nil, map[session.AgentRole]*fallback.Chain{})
	k.sess.Plan = &session.Plan{}
	k.sess.Files = []session.FileRecord{{Path: "a.go", Status: session.FileStatusPending}}
	if err := os.WriteFile(filepath.Join(workDir, "a.go"), []byte("original"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	if err := k.beginExecution(context.Background()); err != nil {
		t.Fatalf("beginExecution: %v", err)
	}
	if k.sess.Plan.ApprovedAt == nil {
		t.Fatal("expected ApprovedAt set")
	}
	if len(k.sess.Checkpoints) != 1 || k.sess.Checkpoints[0].Label != "pre-execution" {
		t.Fatalf("expected a pre-execution checkpoint, got %+v", k.sess.Checkpoints)
	}
}

func TestRunExecutionRound_WritesFileAndMarksGenerated(t *testing.T) {
	chains := map[session.AgentRole]*fallback.Chain{
		session.RoleExecutor: chainOf("e", adapter.ExecuteResult{Success: true, Text: "package a\n"}),
	}
	k, _, workDir := newTestKernel(t, nil, chains)
	k.sess.Files = []session.FileRecord{{Path: "a.go", Status: session.FileStatusPending}}

	if err := k.runExecutionRound(context.Background(), nil); err != nil {
		t.Fatalf("runExecutionRound: %v", err)
	}
	if k.sess.Files[0].Status != session.FileStatusGenerated {
		t.Fatalf("expected generated, got %s", k.sess.Files[0].Status)
	}
	content, err := os.ReadFile(filepath.Join(workDir, "a.go"))
	if err != nil {
		t.Fatalf("read generated file: %v", err)
	}
	if string(content) != "package a\n" {
		t.Errorf("unexpected content: %q", content)
	}
}

func TestRunExecutionRound_ResumeRequeuesPendingAndRunningFiles(t *testing.T) {
	chains := map[session.AgentRole]*fallback.Chain{
		session.RoleExecutor: chainOf("e", adapter.ExecuteResult{Success: true, Text: "ok"}),
	}
	k, _, workDir := newTestKernel(t, nil, chains)
	// b.go is Running: a prior process crashed mid-generation. On resume
	// (targetPaths == nil) it must be re-queued alongside a.go, not left
	// stuck at Running forever.
	k.sess.Files = []session.FileRecord{
		{Path: "a.go", Status: session.FileStatusPending},
		{Path: "b.go", Status: session.FileStatusRunning},
		{Path: "c.go", Status: session.FileStatusComplete},
	}
	if err := os.WriteFile(filepath.Join(workDir, "c.go"), []byte("already done"), 0o644); err != nil {
		t.Fatalf("seed c.go: %v", err)
	}

	if err := k.runExecutionRound(context.Background(), nil); err != nil {
		t.Fatalf("runExecutionRound: %v", err)
	}
	if k.sess.FileByPath("a.go").Status != session.FileStatusGenerated {
		t.Errorf("expected a.go requeued and generated, got %s", k.sess.FileByPath("a.go").Status)
	}
	if k.sess.FileByPath("b.go").Status != session.FileStatusGenerated {
		t.Errorf("expected b.go (previously Running) requeued and generated, got %s", k.sess.FileByPath("b.go").Status)
	}
	if k.sess.FileByPath("c.go").Status != session.FileStatusComplete {
		t.Errorf("expected already-complete c.go left untouched, got %s", k.sess.FileByPath("c.go").Status)
	}
}

func TestRunExecutionRound_FailureMarksAuditRejected(t *testing.T) {
	chains := map[session.AgentRole]*fallback.Chain{
		session.RoleExecutor: chainOf("e", adapter.ExecuteResult{Success: false, ErrorKind: adapter.ErrorAPIError, Text: "boom"}),
	}
	k, _, _ := newTestKernel(t, nil, chains)
	k.sess.Files = []session.FileRecord{{Path: "a.go", Status: session.FileStatusPending}}

	if err := k.runExecutionRound(context.Background(), nil); err != nil {
		t.Fatalf("runExecutionRound: %v", err)
	}
	if k.sess.Files[0].Status != session.FileStatusAuditRejected {
		t.Fatalf("expected audit-rejected after a failed generation, got %s", k.sess.Files[0].Status)
	}
	if k.sess.Files[0].LastError == "" {
		t.Error("expected LastError to be recorded")
	}
}
