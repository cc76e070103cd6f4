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

func TestAuditApproves(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Looks good, approved.", true},
		{"No issues found.", true},
		{"This needs changes before it can be merged.", false},
		{"I reject this file.", false},
		{"unrelated commentary with no verdict", false},
	}
	for _, c := range cases {
		if got := auditApproves(c.text); got != c.want {
			t.Errorf("auditApproves(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestRunAuditing_ApprovedFilesBecomeComplete(t *testing.T) {
	chains := map[session.AgentRole]*fallback.Chain{
		session.RoleAuditor: chainOf("aud", adapter.ExecuteResult{Success: true, Text: "approved"}),
	}
	k, _, workDir := newTestKernel(t, nil, chains)
	k.sess.Files = []session.FileRecord{{Path: "a.go", Status: session.FileStatusGenerated}}
	if err := os.WriteFile(filepath.Join(workDir, "a.go"), []byte("package a\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	converged, rejected, err := k.runAuditing(context.Background())
	if err != nil {
		t.Fatalf("runAuditing: %v", err)
	}
	if len(rejected) != 0 {
		t.Fatalf("expected no rejections, got %v", rejected)
	}
	if converged {
		t.Error("first round should never report converged (no prior hash)")
	}
	if k.sess.Files[0].Status != session.FileStatusComplete {
		t.Fatalf("expected complete, got %s", k.sess.Files[0].Status)
	}
}

func TestRunAuditing_ConvergesOnRepeatedHashAndRejectionSet(t *testing.T) {
	chains := map[session.AgentRole]*fallback.Chain{
		session.RoleAuditor: chainOf("aud", adapter.ExecuteResult{Success: true, Text: "needs changes"}),
	}
	k, _, workDir := newTestKernel(t, nil, chains)
	k.sess.Files = []session.FileRecord{{Path: "a.go", Status: session.FileStatusGenerated}}
	if err := os.WriteFile(filepath.Join(workDir, "a.go"), []byte("package a\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	converged1, rejected1, err := k.runAuditing(context.Background())
	if err != nil {
		t.Fatalf("runAuditing (round 1): %v", err)
	}
	if converged1 {
		t.Fatal("round 1 must not report converged")
	}
	if len(rejected1) != 1 {
		t.Fatalf("expected a.go rejected in round 1, got %v", rejected1)
	}

	// Re-mark generated (as the kernel's fixing phase would) without
	// changing the file's content, then audit again with the same
	// rejecting verdict: same hash, same rejection set.
	k.sess.Files[0].Status = session.FileStatusGenerated
	converged2, rejected2, err := k.runAuditing(context.Background())
	if err != nil {
		t.Fatalf("runAuditing (round 2): %v", err)
	}
	if !converged2 {
		t.Fatal("round 2 should converge: identical content and rejection set as round 1")
	}
	if len(rejected2) != 1 {
		t.Fatalf("expected a.go still rejected in round 2, got %v", rejected2)
	}
}

func TestRunAuditing_ChainExhaustedFileCountsAsRejected(t *testing.T) {
	chains := map[session.AgentRole]*fallback.Chain{
		session.RoleAuditor: chainOf("aud", adapter.ExecuteResult{Success: true, Text: "approved"}),
	}
	k, _, workDir := newTestKernel(t, nil, chains)
	// a.go made it to Generated and is audited this round; bad.go never
	// did -- its executor chain was exhausted entirely, so it was marked
	// audit-rejected directly and isn't a candidate here.
	k.sess.Files = []session.FileRecord{
		{Path: "a.go", Status: session.FileStatusGenerated},
		{Path: "bad.go", Status: session.FileStatusAuditRejected, LastError: "all backends exhausted"},
	}
	if err := os.WriteFile(filepath.Join(workDir, "a.go"), []byte("package a\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, rejected, err := k.runAuditing(context.Background())
	if err != nil {
		t.Fatalf("runAuditing: %v", err)
	}
	if len(rejected) != 1 || rejected[0] != "bad.go" {
		t.Fatalf("expected bad.go tracked as rejected despite never reaching Generated, got %v", rejected)
	}
	if k.sess.FileByPath("a.go").Status != session.FileStatusComplete {
		t.Errorf("expected a.go approved and completed, got %s", k.sess.FileByPath("a.go").Status)
	}
	if k.sess.FileByPath("bad.go").Status != session.FileStatusAuditRejected {
		t.Errorf("expected bad.go to remain audit-rejected pending fixing/recovery, got %s", k.sess.FileByPath("bad.go").Status)
	}
}

func TestRunAuditing_NoChainConfiguredErrors(t *testing.T) {
	k, _, _ := newTestKernel(t, nil, map[session.AgentRole]*fallback.Chain{})
	if _, _, err := k.runAuditing(context.Background()); err == nil {
		t.Fatal("expected error when no auditor chain is configured")
	}
}
