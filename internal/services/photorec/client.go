package photorec

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"whittle/internal/procrun"
	"whittle/internal/services"
)

// Engine output conventions. The engine appends ".1" to its results folder
// name and writes its DFXML report inside it.
const (
	ResultsBase     = "results"
	ResultsExtended = "results.1"
	ReportName      = "report.xml"
	RunLogName      = "run_log.txt"
)

// compatEnv forces the engine to run with the invoker's privileges on
// Windows; other platforms ignore the variable.
const compatEnv = "__COMPAT_LAYER=RunAsInvoker"

// windowsExecutable is the bundled engine binary name on Windows; elsewhere
// the engine is found on PATH under its plain name.
const (
	windowsExecutable = "photorec_win.exe"
	pathExecutable    = "photorec"
)

// Executor abstracts process execution for testability.
type Executor interface {
	Run(ctx context.Context, spec procrun.Spec, policy procrun.Policy) (procrun.Result, error)
}

type processExecutor struct{}

func (processExecutor) Run(ctx context.Context, spec procrun.Spec, policy procrun.Policy) (procrun.Result, error) {
	return procrun.Run(ctx, spec, policy)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client drives PhotoRec invocations for one configured settings set.
type Client struct {
	executable string
	options    string
	timeout    time.Duration
	exec       Executor
}

// New locates the engine, validates the carve settings, and returns a client
// ready to carve units. Both failure classes abort job startup.
func New(command string, settings Settings, timeout time.Duration, opts ...Option) (*Client, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	executable, err := Locate(command)
	if err != nil {
		return nil, err
	}
	client := &Client{
		executable: executable,
		options:    settings.OptionsString(),
		timeout:    timeout,
		exec:       processExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Executable returns the resolved engine binary path.
func (c *Client) Executable() string {
	return c.executable
}

// Options returns the comma-joined options string passed on every carve.
func (c *Client) Options() string {
	return c.options
}

// Carve runs the engine against tempFile, directing recovered files under
// unitDir. Engine stdout and stderr are merged into run_log.txt inside
// unitDir. The cancelled predicate is polled alongside the wall-clock
// timeout; how the child ended is reported through the result, never as an
// error.
func (c *Client) Carve(ctx context.Context, unitDir, tempFile string, cancelled func() bool) (procrun.Result, error) {
	spec := procrun.Spec{
		Command: c.executable,
		Args: []string{
			"/d", filepath.Join(unitDir, ResultsBase),
			"/cmd", tempFile,
			c.options,
		},
		Env:        []string{compatEnv},
		OutputPath: filepath.Join(unitDir, RunLogName),
	}
	policy := procrun.Policy{
		Timeout:   c.timeout,
		Cancelled: cancelled,
	}
	res, err := c.exec.Run(ctx, spec, policy)
	if err != nil {
		return res, services.Wrap(services.ErrEngineExecution, "engine", "carve", "invoke engine", err)
	}
	return res, nil
}

// ReportPath returns where the engine's report lands after a carve, before
// relocation.
func ReportPath(unitDir string) string {
	return filepath.Join(unitDir, ResultsExtended, ReportName)
}

// Locate resolves the engine executable. An explicit command is honored as
// given; otherwise Windows looks for the bundled binary next to the running
// executable and other platforms scan PATH. Missing and present-but-not-
// executable are reported as distinct startup errors.
func Locate(command string) (string, error) {
	candidate := strings.TrimSpace(command)
	switch {
	case candidate != "" && candidate != pathExecutable:
		if !filepath.IsAbs(candidate) && strings.ContainsRune(candidate, filepath.Separator) {
			abs, err := filepath.Abs(candidate)
			if err == nil {
				candidate = abs
			}
		}
		if !strings.ContainsRune(candidate, filepath.Separator) {
			resolved, err := exec.LookPath(candidate)
			if err != nil {
				return "", services.Wrap(services.ErrEngineNotFound, "engine", "locate",
					fmt.Sprintf("binary %q not found on PATH", candidate), nil)
			}
			candidate = resolved
		}
	case runtime.GOOS == "windows":
		self, err := os.Executable()
		if err != nil {
			return "", services.Wrap(services.ErrEngineNotFound, "engine", "locate", "resolve bundled engine directory", err)
		}
		candidate = filepath.Join(filepath.Dir(self), windowsExecutable)
	default:
		resolved, err := exec.LookPath(pathExecutable)
		if err != nil {
			return "", services.Wrap(services.ErrEngineNotFound, "engine", "locate",
				fmt.Sprintf("binary %q not found on PATH", pathExecutable), nil)
		}
		candidate = resolved
	}

	info, err := os.Stat(candidate)
	if err != nil {
		return "", services.Wrap(services.ErrEngineNotFound, "engine", "locate", candidate, err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrEngineNotRunnable, "engine", "locate",
			fmt.Sprintf("%s is a directory", candidate), nil)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return "", services.Wrap(services.ErrEngineNotRunnable, "engine", "locate",
			fmt.Sprintf("%s is not executable", candidate), nil)
	}
	return candidate, nil
}
