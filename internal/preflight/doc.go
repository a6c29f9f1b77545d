// Package preflight provides readiness checks for the carving engine and
// filesystem paths that whittle depends on.
//
// These checks run in two contexts:
//   - The run command calls RunAll before starting a job. If any check
//     fails, the job is rejected up front instead of failing unit by unit.
//   - The CLI "whittle status" command uses individual check functions
//     (CheckEngine, CheckDirectoryAccess, CheckCarvingTools) to display
//     readiness.
//
// Free-space estimation lives here too because both the per-unit gate and
// the status display need the same arithmetic.
package preflight
