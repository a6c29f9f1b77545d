// Package photorec wraps invocations of the PhotoRec carving engine. It
// builds the engine's comma-joined options string, validates carve settings
// against the engine's supported extension table, locates the executable per
// platform, and runs one carve per unallocated-space unit under a timeout
// and cancellation policy.
package photorec
