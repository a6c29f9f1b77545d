// Package procrun executes external commands under a cancellation and
// timeout policy. The runner does not interpret command output; it reports
// how the child ended and leaves outcome policy to callers.
package procrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

// Termination describes how a child process ended.
type Termination int

const (
	// Completed means the child exited on its own; Result.ExitCode holds
	// its exit status, which may be non-zero.
	Completed Termination = iota
	// Cancelled means the child was killed because the caller's context
	// was done or the cancellation predicate reported true.
	Cancelled
	// TimedOut means the child was killed because the wall-clock bound
	// elapsed.
	TimedOut
)

// String returns a short label for logs.
func (t Termination) String() string {
	switch t {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case TimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Spec describes one external process invocation.
type Spec struct {
	Command string
	Args    []string
	// Env entries are appended to the inherited environment.
	Env []string
	Dir string
	// OutputPath receives stdout and stderr merged into one file.
	// Empty discards output.
	OutputPath string
}

// Policy bounds an invocation's lifetime. The cancellation predicate is
// polled concurrently with the child so callers can bridge schedulers that
// expose a flag rather than a context.
type Policy struct {
	// Timeout is the wall-clock bound; 0 disables it.
	Timeout time.Duration
	// Cancelled is polled every PollInterval; nil means never cancelled.
	Cancelled func() bool
	// PollInterval defaults to 500ms.
	PollInterval time.Duration
}

// Result reports the outcome of an invocation.
type Result struct {
	Termination Termination
	ExitCode    int
}

// Run starts the command described by spec and waits for it under policy.
// Cancellation and timeout both kill the child; they are reported through
// Result.Termination, distinct from any exit code. Run only returns an
// error when the invocation itself could not be carried out.
func Run(ctx context.Context, spec Spec, policy Policy) (Result, error) {
	if strings.TrimSpace(spec.Command) == "" {
		return Result{}, errors.New("command required")
	}

	cmd := commandContext(ctx, spec.Command, spec.Args...) //nolint:gosec
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	if spec.OutputPath != "" {
		out, err := os.OpenFile(spec.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return Result{}, fmt.Errorf("open output log: %w", err)
		}
		defer out.Close()
		cmd.Stdout = out
		cmd.Stderr = out
	}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", filepath.Base(spec.Command), err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	kill := func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-done
	}

	interval := policy.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var timeoutCh <-chan time.Time
	if policy.Timeout > 0 {
		timer := time.NewTimer(policy.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	for {
		select {
		case err := <-done:
			if ctx.Err() != nil {
				return Result{Termination: Cancelled}, nil
			}
			return resultFromWait(err)
		case <-ctx.Done():
			kill()
			return Result{Termination: Cancelled}, nil
		case <-timeoutCh:
			kill()
			return Result{Termination: TimedOut}, nil
		case <-ticker.C:
			if policy.Cancelled != nil && policy.Cancelled() {
				kill()
				return Result{Termination: Cancelled}, nil
			}
		}
	}
}

func resultFromWait(err error) (Result, error) {
	if err == nil {
		return Result{Termination: Completed}, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{Termination: Completed, ExitCode: exitErr.ExitCode()}, nil
	}
	return Result{}, fmt.Errorf("wait command: %w", err)
}
