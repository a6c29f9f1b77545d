package services_test

import (
	"errors"
	"strings"
	"testing"

	"whittle/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrEngineExecution, "carving", "run", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrEngineExecution) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"carving", "run", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestStartupFatalClassification(t *testing.T) {
	fatal := []error{
		services.Wrap(services.ErrConfiguration, "startup", "settings", "bad filter", nil),
		services.Wrap(services.ErrWorkspaceInit, "startup", "mkdir", "denied", errors.New("permission denied")),
		services.Wrap(services.ErrPathAccess, "startup", "normalize", "unreachable", nil),
		services.Wrap(services.ErrEngineNotFound, "startup", "locate", "missing", nil),
		services.Wrap(services.ErrEngineNotRunnable, "startup", "locate", "mode 0644", nil),
	}
	for _, err := range fatal {
		if !services.StartupFatal(err) {
			t.Fatalf("expected startup-fatal classification for %v", err)
		}
	}

	perUnit := []error{
		services.Wrap(services.ErrInsufficientSpace, "preflight", "free-space", "short", nil),
		services.Wrap(services.ErrEngineExecution, "carving", "run", "exit 1", nil),
		services.Wrap(services.ErrUnitRead, "writing", "copy", "read failed", errors.New("io")),
		services.Wrap(services.ErrReportParse, "parsing", "report", "bad xml", nil),
	}
	for _, err := range perUnit {
		if services.StartupFatal(err) {
			t.Fatalf("expected per-unit classification for %v", err)
		}
	}

	if services.StartupFatal(nil) {
		t.Fatal("nil error must not be startup fatal")
	}
}
