package subprocess

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hectormr206/orchestra/internal/adapter"
)

func TestExecute_Success(t *testing.T) {
	a := New(Config{
		Name:       "echo-adapter",
		Command:    "/bin/sh",
		BaseArgs:   []string{"-c", "echo hello"},
		PromptMode: PromptModeStdin,
		Timeout:    5 * time.Second,
	})

	res, err := a.Execute(context.Background(), adapter.ExecuteRequest{Prompt: "ignored", WorkingDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Text != "hello\n" {
		t.Errorf("unexpected text: %q", res.Text)
	}
}

func TestExecute_WritesOutputPath(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")
	a := New(Config{
		Command:    "/bin/sh",
		BaseArgs:   []string{"-c", "printf hello"},
		PromptMode: PromptModeStdin,
	})

	res, err := a.Execute(context.Background(), adapter.ExecuteRequest{WorkingDir: dir, OutputPath: out})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success: %+v", res)
	}
	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output file: %v", err)
	}
	if string(content) != "hello" {
		t.Errorf("unexpected output file content: %q", content)
	}
}

func TestExecute_RateLimitClassification(t *testing.T) {
	a := New(Config{
		Command:    "/bin/sh",
		BaseArgs:   []string{"-c", "echo 'Error: rate limit exceeded' 1>&2; exit 1"},
		PromptMode: PromptModeStdin,
	})

	res, err := a.Execute(context.Background(), adapter.ExecuteRequest{WorkingDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.ErrorKind != adapter.ErrorRateLimit {
		t.Errorf("expected ErrorRateLimit, got %q", res.ErrorKind)
	}
}

func TestExecute_Timeout(t *testing.T) {
	a := New(Config{
		Command:    "/bin/sh",
		BaseArgs:   []string{"-c", "sleep 5"},
		PromptMode: PromptModeStdin,
		Timeout:    50 * time.Millisecond,
		GraceDelay: 50 * time.Millisecond,
	})

	res, err := a.Execute(context.Background(), adapter.ExecuteRequest{WorkingDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.ErrorKind != adapter.ErrorTimeout {
		t.Errorf("expected ErrorTimeout, got %q", res.ErrorKind)
	}
}

func TestIsAvailable(t *testing.T) {
	a := New(Config{Command: "/bin/sh"})
	if !a.IsAvailable(context.Background()) {
		t.Error("expected /bin/sh to be available")
	}

	missing := New(Config{Command: "definitely-not-a-real-binary-xyz"})
	if missing.IsAvailable(context.Background()) {
		t.Error("expected missing binary to be unavailable")
	}
}
