package carve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"whittle/internal/casedb"
	"whittle/internal/events"
	"whittle/internal/fileutil"
	"whittle/internal/logging"
	"whittle/internal/notifications"
	"whittle/internal/preflight"
	"whittle/internal/procrun"
	"whittle/internal/report"
	"whittle/internal/services"
	"whittle/internal/services/photorec"
	"whittle/internal/workspace"
)

// Outcome classifies how one unit's pipeline ended. Cancellation counts as
// OK: the unit was not processed, but nothing went wrong.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeError
)

// String returns a short label for logs.
func (o Outcome) String() string {
	if o == OutcomeError {
		return "error"
	}
	return "ok"
}

// Unit is one span of unallocated space submitted for carving. Open yields
// the unit's raw bytes; it is called once per pipeline run.
type Unit struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// JobContext exposes the job-level facts the executor needs: identity for
// storage and accounting, and the host scheduler's cancellation signal.
type JobContext interface {
	JobID() int64
	DataSourceID() int64
	Cancelled() bool
}

// Store is the slice of case storage the executor consumes.
type Store interface {
	InsertCarvedFiles(ctx context.Context, dataSourceID int64, files []report.CarvedFile) ([]casedb.Content, error)
	ContentByID(ctx context.Context, id int64) (casedb.Content, error)
}

// Engine runs the carving engine against one staged unit.
type Engine interface {
	Carve(ctx context.Context, unitDir, tempFile string, cancelled func() bool) (procrun.Result, error)
}

// Option configures an Executor.
type Option func(*Executor)

// WithFreeBytes substitutes the free-space probe, for tests.
func WithFreeBytes(probe func(path string) int64) Option {
	return func(e *Executor) {
		e.freeBytes = probe
	}
}

// Executor carries one unit through the recovery pipeline. It is safe for
// concurrent use; all per-unit state lives on the stack.
type Executor struct {
	engine    Engine
	store     Store
	parser    report.Parser
	bus       *events.Bus
	notifier  notifications.Service
	logger    *slog.Logger
	freeBytes func(path string) int64
}

// NewExecutor wires a pipeline executor. bus and notifier may be nil when no
// observers are attached.
func NewExecutor(engine Engine, store Store, parser report.Parser, bus *events.Bus, notifier notifications.Service, logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		engine:    engine,
		store:     store,
		parser:    parser,
		bus:       bus,
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "carve"),
		freeBytes: preflight.FreeBytes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process runs one unit through the pipeline and reports the outcome. Errors
// are absorbed into the outcome after being logged, counted on the job
// totals, and surfaced through notifications; they never propagate so that
// one bad unit cannot take down its siblings.
func (e *Executor) Process(ctx context.Context, job JobContext, ws *workspace.Workspace, unit Unit) Outcome {
	log := e.logger.With(
		logging.Int64(logging.FieldJobID, job.JobID()),
		logging.String(logging.FieldUnit, unit.Name),
	)
	cancelled := func() bool {
		return job.Cancelled() || ctx.Err() != nil
	}

	// PREFLIGHT
	ok, free, required := e.hasSpaceFor(ws.TempDir, unit.Size)
	if !ok {
		err := services.Wrap(services.ErrInsufficientSpace, "preflight", "check scratch space",
			fmt.Sprintf("need %d bytes under %s, %d available", required, ws.TempDir, free), nil)
		return e.unitError(ctx, log, ws, unit, err)
	}
	if cancelled() {
		return OutcomeOK
	}

	tempFile := ws.TempFilePath(unit.Name)
	defer func() {
		_ = os.Remove(tempFile)
	}()

	// WRITING
	writeStart := time.Now()
	if err := stageUnit(unit, tempFile, cancelled); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("unit staging cancelled")
			return OutcomeOK
		}
		return e.unitError(ctx, log, ws, unit,
			services.Wrap(services.ErrUnitRead, "writing", "stage unit", "copy unit to scratch", err))
	}
	if cancelled() {
		return OutcomeOK
	}

	// CARVING
	unitDir := ws.UnitOutputDir(unit.Name)
	if err := os.Mkdir(unitDir, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return e.unitError(ctx, log, ws, unit,
			services.Wrap(services.ErrWorkspaceInit, "carving", "create unit dir", unitDir, err))
	}
	res, err := e.engine.Carve(ctx, unitDir, tempFile, cancelled)
	if err != nil {
		discardOutput(unitDir, log)
		return e.unitError(ctx, log, ws, unit, err)
	}
	if res.Termination == procrun.Cancelled || cancelled() {
		discardOutput(unitDir, log)
		log.Info("carve cancelled", logging.String("termination", res.Termination.String()))
		return OutcomeOK
	}
	if res.Termination == procrun.TimedOut {
		discardOutput(unitDir, log)
		return e.unitError(ctx, log, ws, unit,
			services.Wrap(services.ErrEngineExecution, "carving", "await engine", "engine timed out", nil))
	}
	if res.ExitCode != 0 {
		discardOutput(unitDir, log)
		return e.unitError(ctx, log, ws, unit,
			services.Wrap(services.ErrEngineExecution, "carving", "await engine",
				"engine exited with code "+strconv.Itoa(res.ExitCode), nil))
	}

	// The engine drops its report inside its own results tree. Pull the
	// report up to the unit root, then discard the tree: recovered bytes
	// are re-read from the source via the report's byte runs, never from
	// the engine's scratch copies.
	reportPath := filepath.Join(unitDir, photorec.ReportName)
	if err := fileutil.MoveFile(photorec.ReportPath(unitDir), reportPath); err != nil {
		discardOutput(unitDir, log)
		return e.unitError(ctx, log, ws, unit,
			services.Wrap(services.ErrReportParse, "carving", "relocate report", photorec.ReportPath(unitDir), err))
	}
	removeResultsDirs(unitDir, log)
	ws.Totals.AddWriteTime(time.Since(writeStart))

	if cancelled() {
		return OutcomeOK
	}

	// PARSING
	parseStart := time.Now()
	files, err := e.parser.Parse(ctx, reportPath)
	ws.Totals.AddParseTime(time.Since(parseStart))
	if err != nil {
		return e.unitError(ctx, log, ws, unit,
			services.Wrap(services.ErrReportParse, "parsing", "parse report", reportPath, err))
	}
	if len(files) == 0 {
		log.Info("no files recovered")
		return OutcomeOK
	}
	if cancelled() {
		return OutcomeOK
	}

	// RECONCILING
	persisted, err := e.store.InsertCarvedFiles(ctx, job.DataSourceID(), files)
	if err != nil {
		return e.unitError(ctx, log, ws, unit,
			services.Wrap(services.ErrStoreUnavailable, "reconciling", "insert carved files", "", err))
	}
	ws.Totals.AddRecovered(int64(len(persisted)))
	log.Info("unit reconciled", logging.Int("recovered", len(persisted)))

	e.announce(ctx, log, job, persisted)
	return OutcomeOK
}

// announce publishes one directory event per newly discovered virtual
// ancestor and one batch event carrying an arbitrary item. An ancestor-walk
// failure degrades to the batch event alone; views refresh, tree observers
// catch up on the next batch.
func (e *Executor) announce(ctx context.Context, log *slog.Logger, job JobContext, persisted []casedb.Content) {
	if e.bus == nil || len(persisted) == 0 {
		return
	}
	visited := make(map[int64]struct{})
	ancestors, err := VirtualDirectoryAncestors(ctx, e.store, persisted, visited)
	if err != nil {
		log.Warn("ancestor walk incomplete", logging.Error(err))
	}
	for _, dir := range ancestors {
		e.bus.Publish(events.Event{
			Kind:      events.KindDirectoryAdded,
			JobID:     job.JobID(),
			ContentID: dir.ID,
			Name:      dir.Name,
		})
	}
	e.bus.Publish(events.Event{
		Kind:      events.KindItemsAdded,
		JobID:     job.JobID(),
		ContentID: persisted[0].ID,
		Name:      persisted[0].Name,
	})
}

// unitError records a per-unit failure: log it, bump the job's error total,
// raise a notification, and fold it into the outcome.
func (e *Executor) unitError(ctx context.Context, log *slog.Logger, ws *workspace.Workspace, unit Unit, err error) Outcome {
	log.Error("unit failed", logging.Error(err))
	ws.Totals.AddError()
	if e.notifier != nil {
		if nerr := e.notifier.Publish(ctx, notifications.EventUnitError, notifications.Payload{
			"unit":  unit.Name,
			"error": err.Error(),
		}); nerr != nil {
			log.Warn("unit error notification failed", logging.Error(nerr))
		}
	}
	return OutcomeError
}

func (e *Executor) hasSpaceFor(path string, unitSize int64) (bool, int64, int64) {
	free := e.freeBytes(path)
	ok, required := preflight.SpaceCheck(free, unitSize)
	return ok, free, required
}

// stageUnit writes the unit's bytes to tempFile, polling cancelled between
// chunks.
func stageUnit(unit Unit, tempFile string, cancelled func() bool) error {
	src, err := unit.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	return fileutil.WriteStream(tempFile, src, cancelled)
}

// discardOutput removes the unit output directory after a carve that yields
// nothing usable. Failure is logged; a leftover directory is untidy, not
// fatal.
func discardOutput(unitDir string, log *slog.Logger) {
	if err := os.RemoveAll(unitDir); err != nil {
		log.Warn("discard unit output failed", logging.String("dir", unitDir), logging.Error(err))
	}
}

// removeResultsDirs deletes the engine's results trees under unitDir,
// leaving the relocated report and run log in place.
func removeResultsDirs(unitDir string, log *slog.Logger) {
	entries, err := os.ReadDir(unitDir)
	if err != nil {
		log.Warn("list unit output failed", logging.String("dir", unitDir), logging.Error(err))
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), photorec.ResultsBase) {
			continue
		}
		path := filepath.Join(unitDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Warn("remove results dir failed", logging.String("dir", path), logging.Error(err))
		}
	}
}
