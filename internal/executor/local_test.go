package executor

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found in PATH, skipping test")
	}
}

func TestLocalRunner_CapturesOutput(t *testing.T) {
	requireShell(t)
	r := NewLocalRunner()

	res, err := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err 1>&2"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "out" {
		t.Errorf("expected stdout %q, got %q", "out", res.Stdout)
	}
	if strings.TrimSpace(res.Stderr) != "err" {
		t.Errorf("expected stderr %q, got %q", "err", res.Stderr)
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
}

func TestLocalRunner_NonZeroExit(t *testing.T) {
	requireShell(t)
	r := NewLocalRunner()

	res, err := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo boom 1>&2; exit 3"},
	})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if exitErr.ExitCode != 3 || res.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d / %d", exitErr.ExitCode, res.ExitCode)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected stderr in error message, got %q", err.Error())
	}
}

func TestLocalRunner_Timeout(t *testing.T) {
	requireShell(t)
	r := NewLocalRunner()

	_, err := r.Run(context.Background(), Command{
		Name:    "sh",
		Args:    []string{"-c", "exec sleep 5"},
		Timeout: 50 * time.Millisecond,
	})
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
}

func TestLocalRunner_Dir(t *testing.T) {
	requireShell(t)
	r := NewLocalRunner()
	dir := t.TempDir()

	res, err := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "pwd"}, Dir: dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(res.Stdout), strings.TrimPrefix(dir, "/private")) {
		t.Errorf("expected pwd %q, got %q", dir, res.Stdout)
	}
}

func TestLocalRunner_MissingProgram(t *testing.T) {
	r := NewLocalRunner()

	if _, err := r.LookPath("definitely-not-a-real-program-xyz"); err == nil {
		t.Fatal("expected LookPath to fail for a missing program")
	}
	if _, err := r.Run(context.Background(), Command{Name: "definitely-not-a-real-program-xyz"}); err == nil {
		t.Fatal("expected Run to fail for a missing program")
	}
}

func TestCommandString(t *testing.T) {
	c := Command{Name: "git", Args: []string{"rev-parse", "HEAD"}}
	if got := c.String(); got != "git rev-parse HEAD" {
		t.Errorf("got %q", got)
	}
	if got := (Command{Name: "git"}).String(); got != "git" {
		t.Errorf("got %q", got)
	}
}
