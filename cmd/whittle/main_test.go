package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"whittle/internal/events"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
work_dir = %q
case_db = %q
log_dir = %q
spool_dir = %q
`,
		filepath.Join(base, "work"),
		filepath.Join(base, "case.db"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "spool"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func runCLI(t *testing.T, args []string, configPath string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("output does not contain %q:\n%s", want, output)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, []string{"config", "validate"}, configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	// A second init without --overwrite must refuse.
	if _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting an existing file")
	}
}

func TestConfigShowPrintsEffectiveConfig(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, []string{"config", "show"}, configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[paths]")
	requireContains(t, out, "[engine]")
}

func TestNotifyTestWithoutTopic(t *testing.T) {
	configPath := writeTestConfig(t)

	_, err := runCLI(t, []string{"notify", "test"}, configPath)
	if err == nil || !strings.Contains(err.Error(), "ntfy_topic") {
		t.Fatalf("err = %v, want missing-topic error", err)
	}
}

func TestRunRequiresSourceArgument(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, err := runCLI(t, []string{"run"}, configPath); err == nil {
		t.Fatal("expected run without a source to fail")
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"Job", "Recovered"},
		[][]string{{"1", "42"}},
		[]columnAlignment{alignRight, alignRight},
	)
	requireContains(t, out, "Job")
	requireContains(t, out, "42")
}

func TestLogContentEventsStreamsDirectories(t *testing.T) {
	bus := events.NewBus(16)
	var buf bytes.Buffer
	var mu sync.Mutex
	logger := slog.New(slog.NewTextHandler(lockedWriter{&mu, &buf}, nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		logContentEvents(ctx, bus, logger)
	}()

	bus.Publish(events.Event{Kind: events.KindDirectoryAdded, JobID: 7, Name: "$CarvedFiles"})
	bus.Publish(events.Event{Kind: events.KindItemsAdded, JobID: 7, Name: "f0001.jpg"})

	deadline := time.After(5 * time.Second)
	for {
		mu.Lock()
		logged := buf.String()
		mu.Unlock()
		if strings.Contains(logged, "$CarvedFiles") {
			if strings.Contains(logged, "f0001.jpg") {
				t.Fatalf("batch event should not be logged: %s", logged)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the directory event to be logged")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event consumer did not stop on cancellation")
	}
}

type lockedWriter struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}
