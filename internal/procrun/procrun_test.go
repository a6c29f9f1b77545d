package procrun

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestRunCompleted(t *testing.T) {
	script := writeScript(t, "exit 0\n")

	result, err := Run(context.Background(), Spec{Command: script}, Policy{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Termination != Completed {
		t.Fatalf("expected completed, got %s", result.Termination)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", result.ExitCode)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	script := writeScript(t, "exit 3\n")

	result, err := Run(context.Background(), Spec{Command: script}, Policy{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Termination != Completed {
		t.Fatalf("expected completed, got %s", result.Termination)
	}
	if result.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", result.ExitCode)
	}
}

func TestRunMergesOutput(t *testing.T) {
	script := writeScript(t, "echo out-line\necho err-line >&2\n")
	logPath := filepath.Join(t.TempDir(), "run_log.txt")

	result, err := Run(context.Background(), Spec{Command: script, OutputPath: logPath}, Policy{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Termination != Completed || result.ExitCode != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, "out-line") {
		t.Fatalf("log missing stdout line: %q", text)
	}
	if !strings.Contains(text, "err-line") {
		t.Fatalf("log missing stderr line: %q", text)
	}
}

func TestRunEnvPassthrough(t *testing.T) {
	script := writeScript(t, "echo \"$WHITTLE_TEST_VAR\"\n")
	logPath := filepath.Join(t.TempDir(), "run_log.txt")

	_, err := Run(context.Background(), Spec{
		Command:    script,
		Env:        []string{"WHITTLE_TEST_VAR=from-spec"},
		OutputPath: logPath,
	}, Policy{})
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "from-spec") {
		t.Fatalf("log missing env value: %q", data)
	}
}

func TestRunCancelledByPredicate(t *testing.T) {
	script := writeScript(t, "sleep 30\n")

	start := time.Now()
	result, err := Run(context.Background(), Spec{Command: script}, Policy{
		Cancelled:    func() bool { return true },
		PollInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Termination != Cancelled {
		t.Fatalf("expected cancelled, got %s", result.Termination)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("cancellation took too long: %s", elapsed)
	}
}

func TestRunCancelledByContext(t *testing.T) {
	script := writeScript(t, "sleep 30\n")

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(50*time.Millisecond, cancel)
	defer timer.Stop()
	defer cancel()

	result, err := Run(ctx, Spec{Command: script}, Policy{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Termination != Cancelled {
		t.Fatalf("expected cancelled, got %s", result.Termination)
	}
}

func TestRunTimedOut(t *testing.T) {
	script := writeScript(t, "sleep 30\n")

	result, err := Run(context.Background(), Spec{Command: script}, Policy{
		Timeout:      50 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Termination != TimedOut {
		t.Fatalf("expected timed out, got %s", result.Termination)
	}
}

func TestRunMissingBinary(t *testing.T) {
	_, err := Run(context.Background(), Spec{Command: filepath.Join(t.TempDir(), "missing")}, Policy{})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestRunEmptyCommand(t *testing.T) {
	_, err := Run(context.Background(), Spec{}, Policy{})
	if err == nil {
		t.Fatal("expected error for empty command")
	}
}
