package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/gofrs/flock"
	"go.uber.org/goleak"

	"whittle/internal/carve"
	"whittle/internal/casedb"
	"whittle/internal/ingest"
	"whittle/internal/logging"
	"whittle/internal/procrun"
	"whittle/internal/report"
	"whittle/internal/services"
	"whittle/internal/services/photorec"
	"whittle/internal/workspace"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeEngine stands in for the carving engine: it drops a report where the
// real engine would and reports a clean exit.
type fakeEngine struct {
	calls   atomic.Int64
	onCarve func()
}

func (e *fakeEngine) Carve(ctx context.Context, unitDir, tempFile string, cancelled func() bool) (procrun.Result, error) {
	e.calls.Add(1)
	if e.onCarve != nil {
		e.onCarve()
	}
	resultsDir := filepath.Join(unitDir, photorec.ResultsExtended)
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return procrun.Result{}, err
	}
	if err := os.WriteFile(filepath.Join(resultsDir, photorec.ReportName), []byte("<dfxml/>"), 0o644); err != nil {
		return procrun.Result{}, err
	}
	return procrun.Result{Termination: procrun.Completed}, nil
}

type fixedParser struct {
	files []report.CarvedFile
}

func (p *fixedParser) Parse(ctx context.Context, reportPath string) ([]report.CarvedFile, error) {
	return p.files, nil
}

type testRig struct {
	runner  *ingest.Runner
	store   *casedb.Store
	engine  *fakeEngine
	workDir string
}

func newRig(t *testing.T, files []report.CarvedFile) *testRig {
	t.Helper()
	workDir := t.TempDir()
	outputRoot := filepath.Join(workDir, "output")
	tempRoot := filepath.Join(workDir, "temp")
	for _, dir := range []string{outputRoot, tempRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	store, err := casedb.Open(filepath.Join(workDir, "case.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	manager, err := workspace.NewManager(outputRoot, tempRoot)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	engine := &fakeEngine{}
	executor := carve.NewExecutor(engine, store, &fixedParser{files: files}, nil, nil, logging.NewNop(),
		carve.WithFreeBytes(func(string) int64 { return 1 << 40 }))
	runner := ingest.NewRunner(store, executor, manager, nil, logging.NewNop(), workDir, 2)
	return &testRig{runner: runner, store: store, engine: engine, workDir: workDir}
}

func writeSource(t *testing.T, names ...string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "spool_entry")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("unallocated bytes"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestRunCarvesEveryUnit(t *testing.T) {
	rig := newRig(t, []report.CarvedFile{{Name: "f0001.jpg", Folder: "recup_dir.1", Size: 4}})
	source := writeSource(t, "unalloc_1", "unalloc_2", "unalloc_3")

	summary, err := rig.runner.Run(context.Background(), source)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Status != casedb.JobCompleted {
		t.Fatalf("status = %s, want completed", summary.Status)
	}
	if summary.Units != 3 || summary.Totals.Recovered != 3 || summary.Totals.Errored != 0 {
		t.Fatalf("summary = %+v, want 3 units, 3 recovered", summary)
	}
	if got := rig.engine.calls.Load(); got != 3 {
		t.Fatalf("engine ran %d times, want 3", got)
	}

	job, err := rig.store.JobByID(context.Background(), summary.JobID)
	if err != nil {
		t.Fatalf("job lookup: %v", err)
	}
	if job.Status != casedb.JobCompleted || job.Recovered != 3 || job.UnitsTotal != 3 {
		t.Fatalf("job row = %+v", job)
	}
	if job.FinishedAt == nil {
		t.Fatal("finished job must carry a finish time")
	}

	// Teardown removes the job's temp tree; output (reports, run logs)
	// stays behind.
	tempEntries, err := os.ReadDir(filepath.Join(rig.workDir, "temp"))
	if err != nil {
		t.Fatal(err)
	}
	if len(tempEntries) != 0 {
		t.Fatalf("temp root not emptied: %v", tempEntries)
	}
	outputEntries, err := os.ReadDir(filepath.Join(rig.workDir, "output"))
	if err != nil || len(outputEntries) != 1 {
		t.Fatalf("expected one job output dir, got %v (%v)", outputEntries, err)
	}
}

func TestRunEmptySourceCompletesQuietly(t *testing.T) {
	rig := newRig(t, nil)
	source := writeSource(t)

	summary, err := rig.runner.Run(context.Background(), source)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Units != 0 || summary.Status != casedb.JobCompleted {
		t.Fatalf("summary = %+v, want 0 units completed", summary)
	}
	if rig.engine.calls.Load() != 0 {
		t.Fatal("engine must not run for an empty source")
	}
}

func TestRunCancelledMidJobIsNeutral(t *testing.T) {
	rig := newRig(t, []report.CarvedFile{{Name: "f0001.jpg", Size: 4}})
	source := writeSource(t, "unalloc_1", "unalloc_2", "unalloc_3", "unalloc_4")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rig.engine.onCarve = cancel

	summary, err := rig.runner.Run(ctx, source)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Cancellation is not a failure: the job settles as completed, units
	// cut short count neither as recovered nor as errored, and the
	// accounting row is still written.
	if summary.Status != casedb.JobCompleted {
		t.Fatalf("status = %s, want completed", summary.Status)
	}
	if summary.Totals.Errored != 0 || summary.Totals.Recovered != 0 {
		t.Fatalf("cancelled job must settle with zero totals, got %+v", summary.Totals)
	}
	job, err := rig.store.JobByID(context.Background(), summary.JobID)
	if err != nil || job.FinishedAt == nil {
		t.Fatalf("cancelled job must still be settled in storage: %+v (%v)", job, err)
	}
}

func TestRunRefusesSecondInstance(t *testing.T) {
	rig := newRig(t, nil)
	source := writeSource(t, "unalloc_1")

	held := flock.New(filepath.Join(rig.workDir, "whittle.lock"))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("could not pre-acquire lock: %v", err)
	}
	defer held.Unlock()

	_, err = rig.runner.Run(context.Background(), source)
	if !errors.Is(err, services.ErrWorkspaceInit) {
		t.Fatalf("err = %v, want workspace init error", err)
	}
	if !services.StartupFatal(err) {
		t.Fatalf("err = %v, want a startup-fatal classification", err)
	}
}

func TestRunMissingSource(t *testing.T) {
	rig := newRig(t, nil)

	_, err := rig.runner.Run(context.Background(), filepath.Join(rig.workDir, "nope"))
	if !errors.Is(err, services.ErrPathAccess) {
		t.Fatalf("err = %v, want path access error", err)
	}
}
