// Package workspace owns per-job working directories and accounting. A job's
// first attach creates its output and temp directories and a fresh totals
// record; the last detach hands both back to the caller for teardown.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"whittle/internal/services"
)

// Totals accumulates one job's counters. Every task attached to the job
// mutates the fields concurrently.
type Totals struct {
	recovered atomic.Int64
	errored   atomic.Int64
	writeMS   atomic.Int64
	parseMS   atomic.Int64
}

// Snapshot is an immutable copy of the totals, taken at job teardown.
type Snapshot struct {
	Recovered int64
	Errored   int64
	WriteMS   int64
	ParseMS   int64
}

// AddRecovered records newly carved items.
func (t *Totals) AddRecovered(n int64) { t.recovered.Add(n) }

// AddError records one failed unit.
func (t *Totals) AddError() { t.errored.Add(1) }

// AddWriteTime accumulates time spent writing and carving a unit.
func (t *Totals) AddWriteTime(d time.Duration) { t.writeMS.Add(d.Milliseconds()) }

// AddParseTime accumulates time spent parsing an engine report.
func (t *Totals) AddParseTime(d time.Duration) { t.parseMS.Add(d.Milliseconds()) }

// Snapshot returns the current counter values.
func (t *Totals) Snapshot() Snapshot {
	return Snapshot{
		Recovered: t.recovered.Load(),
		Errored:   t.errored.Load(),
		WriteMS:   t.writeMS.Load(),
		ParseMS:   t.parseMS.Load(),
	}
}

// Workspace is the per-job directory pair plus its accounting record. Both
// directories are created exactly once per job and shared by every task
// attached to it.
type Workspace struct {
	JobID     int64
	OutputDir string
	TempDir   string
	Totals    *Totals
}

// TempFilePath returns where a unit's payload is staged before carving.
func (w *Workspace) TempFilePath(unitName string) string {
	return filepath.Join(w.TempDir, unitName)
}

// UnitOutputDir returns the per-unit subdirectory under the job output root.
func (w *Workspace) UnitOutputDir(unitName string) string {
	return filepath.Join(w.OutputDir, unitName)
}

type handle struct {
	workspace *Workspace
	refs      int
}

// Manager tracks workspaces keyed by job id with reference counting. All
// methods are safe for concurrent use.
type Manager struct {
	outputRoot string
	tempRoot   string
	now        func() time.Time

	mu   sync.Mutex
	jobs map[int64]*handle
}

// NewManager builds a manager rooted at the given output and temp
// directories. The output root is verified (and, for network paths,
// normalized) up front because the engine cannot tolerate some raw forms.
func NewManager(outputRoot, tempRoot string) (*Manager, error) {
	normalized, err := NormalizeOutputRoot(outputRoot)
	if err != nil {
		return nil, err
	}
	return &Manager{
		outputRoot: normalized,
		tempRoot:   tempRoot,
		now:        time.Now,
		jobs:       make(map[int64]*handle),
	}, nil
}

// Attach registers one more task against jobID. The first attach for a job
// creates a timestamped directory pair named after the data source and
// initializes a fresh totals record; later attaches return the same
// workspace without touching the filesystem.
func (m *Manager) Attach(jobID, dataSourceID int64) (*Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.jobs[jobID]; ok {
		h.refs++
		return h.workspace, nil
	}

	folder := fmt.Sprintf("%d_%s", dataSourceID, m.now().UTC().Format("01-02-2006-15-04-05.0000"))
	outputDir := filepath.Join(m.outputRoot, folder)
	tempDir := filepath.Join(m.tempRoot, folder)

	if err := createJobDir(outputDir); err != nil {
		return nil, err
	}
	if err := createJobDir(tempDir); err != nil {
		_ = os.RemoveAll(outputDir)
		return nil, err
	}

	ws := &Workspace{
		JobID:     jobID,
		OutputDir: outputDir,
		TempDir:   tempDir,
		Totals:    &Totals{},
	}
	m.jobs[jobID] = &handle{workspace: ws, refs: 1}
	return ws, nil
}

// Detach drops one reference to jobID. On the transition to zero it removes
// the job from the registry and returns its workspace with last=true so the
// caller can delete the temp tree and flush the accounting snapshot exactly
// once. Detaching an unknown job returns last=false.
func (m *Manager) Detach(jobID int64) (ws *Workspace, last bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.jobs[jobID]
	if !ok {
		return nil, false
	}
	h.refs--
	if h.refs > 0 {
		return nil, false
	}
	delete(m.jobs, jobID)
	return h.workspace, true
}

// Active returns the number of jobs currently holding workspaces.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// createJobDir creates dir with parents. A directory that already exists is
// benign; any other failure is fatal to job startup.
func createJobDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return services.Wrap(services.ErrWorkspaceInit, "workspace", "create directory", dir, err)
	}
	return nil
}
