// Package carve drives the per-unit recovery pipeline: preflight, staging
// the unit to scratch, running the carving engine, parsing its report, and
// reconciling recovered files into case storage. Each unit moves through the
// stages independently; only the job workspace and its running totals are
// shared. Cancellation at any stage is a neutral outcome, never an error,
// and the staged temp file is removed no matter how the pipeline ends.
package carve
