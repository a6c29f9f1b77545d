package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration     = errors.New("configuration error")
	ErrWorkspaceInit     = errors.New("workspace initialization error")
	ErrPathAccess        = errors.New("path access error")
	ErrEngineNotFound    = errors.New("carving engine not found")
	ErrEngineNotRunnable = errors.New("carving engine not runnable")
	ErrInsufficientSpace = errors.New("insufficient disk space")
	ErrEngineExecution   = errors.New("engine execution error")
	ErrUnitRead          = errors.New("unit read error")
	ErrReportParse       = errors.New("report parse error")
	ErrStoreUnavailable  = errors.New("case store unavailable")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrEngineExecution
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// StartupFatal reports whether an error belongs to the class that aborts a job
// before any unit is processed, as opposed to per-unit errors that leave
// sibling units running.
func StartupFatal(err error) bool {
	switch {
	case errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrWorkspaceInit),
		errors.Is(err, ErrPathAccess),
		errors.Is(err, ErrEngineNotFound),
		errors.Is(err, ErrEngineNotRunnable),
		errors.Is(err, ErrStoreUnavailable):
		return true
	default:
		return false
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
