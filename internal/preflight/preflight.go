package preflight

import (
	"context"

	"whittle/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Workspace directories (always checked)
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.OutputRoot()))
	results = append(results, CheckDirectoryAccess("Temp directory", cfg.TempRoot()))

	// Spool directory (watch mode only)
	if cfg.Paths.SpoolDir != "" {
		results = append(results, CheckDirectoryAccess("Spool directory", cfg.Paths.SpoolDir))
	}

	// Carving engine
	results = append(results, CheckEngine(cfg.EngineCommand()))

	// Notifications
	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNotifications(ctx, cfg.Notifications.NtfyTopic))
	}

	return results
}
