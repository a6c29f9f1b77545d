// Package services defines shared utilities consumed by the carving pipeline
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, unit IDs, stage names, and run
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep the failure
//     taxonomy (startup-fatal vs per-unit) navigable with errors.Is.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform across the module.
package services
