package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"whittle/internal/carve"
	"whittle/internal/casedb"
	"whittle/internal/logging"
	"whittle/internal/notifications"
	"whittle/internal/services"
	"whittle/internal/workspace"
)

// lockName is the advisory lock file guarding the work directory. One run at
// a time: concurrent runs would race on workspace roots and stale cleanup.
const lockName = "whittle.lock"

// Summary is what a finished job looks like from the outside.
type Summary struct {
	JobID  int64
	RunID  string
	Source string
	Units  int
	Status casedb.JobStatus
	Totals workspace.Snapshot
}

// Runner executes carving jobs. It owns job-level concerns only; per-unit
// work is delegated to the executor.
type Runner struct {
	store    *casedb.Store
	executor *carve.Executor
	manager  *workspace.Manager
	notifier notifications.Service
	logger   *slog.Logger
	workDir  string
	workers  int
}

// NewRunner wires a job runner. workers is clamped to at least one.
func NewRunner(store *casedb.Store, executor *carve.Executor, manager *workspace.Manager, notifier notifications.Service, logger *slog.Logger, workDir string, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		store:    store,
		executor: executor,
		manager:  manager,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "ingest"),
		workDir:  workDir,
		workers:  workers,
	}
}

// jobContext adapts a run's context and identity to the executor's view of
// the job. Cancellation is read from the context so the host signal reaches
// every worker the same way.
type jobContext struct {
	ctx   context.Context
	jobID int64
	dsID  int64
}

func (j *jobContext) JobID() int64        { return j.jobID }
func (j *jobContext) DataSourceID() int64 { return j.dsID }
func (j *jobContext) Cancelled() bool     { return j.ctx.Err() != nil }

// Run carves every unit of sourcePath as one job and returns its summary.
// The returned error covers job-level failures only; per-unit failures are
// folded into the summary's error total. Cancellation mid-job is not an
// error: the job settles with whatever the finished units produced.
func (r *Runner) Run(ctx context.Context, sourcePath string) (*Summary, error) {
	lock := flock.New(filepath.Join(r.workDir, lockName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrWorkspaceInit, "intake", "lock work dir", r.workDir, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrWorkspaceInit, "intake", "lock work dir",
			"another run holds "+r.workDir, nil)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)

	units, err := GatherUnits(sourcePath)
	if err != nil {
		return nil, err
	}

	source, err := r.store.EnsureDataSource(ctx, filepath.Base(sourcePath))
	if err != nil {
		return nil, err
	}
	jobID, err := r.store.BeginJob(ctx, source.ID, runID, sourcePath, len(units))
	if err != nil {
		return nil, err
	}
	ctx = services.WithJobID(ctx, jobID)
	log := logging.WithContext(ctx, r.logger)
	log.Info("job started",
		logging.String("source", sourcePath),
		logging.Int("units", len(units)),
		logging.Int("workers", r.workers))
	r.notify(ctx, log, notifications.EventJobStarted, notifications.Payload{
		"job_id": strconv.FormatInt(jobID, 10),
		"source": DisplayTitle(sourcePath),
		"units":  strconv.Itoa(len(units)),
	})

	// The runner holds its own reference so the workspace outlives worker
	// churn; releasing it last makes teardown run exactly once, here.
	ws, err := r.manager.Attach(jobID, source.ID)
	if err != nil {
		r.finish(context.WithoutCancel(ctx), log, jobID, casedb.JobFailed, workspace.Snapshot{})
		return nil, err
	}

	jc := &jobContext{ctx: ctx, jobID: jobID, dsID: source.ID}
	group := new(errgroup.Group)
	group.SetLimit(r.workers)
	for _, unit := range units {
		unit := unit
		group.Go(func() error {
			taskWS, err := r.manager.Attach(jobID, source.ID)
			if err != nil {
				return err
			}
			defer r.manager.Detach(jobID)
			r.executor.Process(ctx, jc, taskWS, unit)
			return nil
		})
	}
	runErr := group.Wait()

	// Settlement must survive host cancellation: the accounting row and
	// the shutdown summary are written even when the job was cut short.
	settleCtx := context.WithoutCancel(ctx)

	totals := ws.Totals.Snapshot()
	if _, last := r.manager.Detach(jobID); last {
		if err := os.RemoveAll(ws.TempDir); err != nil {
			log.Warn("remove job temp dir failed", logging.Error(err))
		}
	}

	status := casedb.JobCompleted
	if runErr != nil {
		status = casedb.JobFailed
	}
	r.finish(settleCtx, log, jobID, status, totals)

	summary := &Summary{
		JobID:  jobID,
		RunID:  runID,
		Source: sourcePath,
		Units:  len(units),
		Status: status,
		Totals: totals,
	}
	if runErr != nil {
		r.notify(settleCtx, log, notifications.EventJobFailed, notifications.Payload{
			"job_id": strconv.FormatInt(jobID, 10),
			"source": DisplayTitle(sourcePath),
			"error":  runErr.Error(),
		})
		return summary, runErr
	}
	r.notify(settleCtx, log, notifications.EventJobCompleted, notifications.Payload{
		"job_id":    strconv.FormatInt(jobID, 10),
		"source":    DisplayTitle(sourcePath),
		"recovered": strconv.FormatInt(totals.Recovered, 10),
		"errored":   strconv.FormatInt(totals.Errored, 10),
		"write_ms":  strconv.FormatInt(totals.WriteMS, 10),
		"parse_ms":  strconv.FormatInt(totals.ParseMS, 10),
	})
	return summary, nil
}

// finish settles the job's accounting row and logs the shutdown summary.
func (r *Runner) finish(ctx context.Context, log *slog.Logger, jobID int64, status casedb.JobStatus, totals workspace.Snapshot) {
	if err := r.store.FinishJob(ctx, jobID, status, totals.Recovered, totals.Errored, totals.WriteMS, totals.ParseMS); err != nil {
		log.Error("finish job record failed", logging.Error(err))
	}
	log.Info("job finished",
		logging.String("status", string(status)),
		logging.Int64("recovered", totals.Recovered),
		logging.Int64("errored", totals.Errored),
		logging.Int64("write_ms", totals.WriteMS),
		logging.Int64("parse_ms", totals.ParseMS))
}

func (r *Runner) notify(ctx context.Context, log *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Publish(ctx, event, payload); err != nil {
		log.Warn("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}
