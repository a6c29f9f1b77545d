package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"whittle/internal/devicewatch"
	"whittle/internal/events"
	"whittle/internal/logging"
	"whittle/internal/services"
	"whittle/internal/spool"
)

func newWatchCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the spool directory and carve entries as they settle",
		Long: "Watch runs until interrupted. Evidence dropped into the spool directory\n" +
			"becomes a job once it has been quiet for the settle window; each entry\n" +
			"is carved with the same pipeline as `whittle run`. With monitoring\n" +
			"enabled, newly attached block devices are announced via notifications.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := cc.buildPipeline()
			if err != nil {
				return err
			}
			defer p.close()

			if p.cfg.Monitor.Enabled {
				monitor := devicewatch.NewMonitor(p.notifier, p.logger)
				if err := monitor.Start(ctx); err != nil {
					return err
				}
				defer monitor.Stop()
			}

			watcher := spool.NewWatcher(
				p.cfg.Paths.SpoolDir,
				time.Duration(p.cfg.Spool.SettleSeconds)*time.Second,
				time.Duration(p.cfg.Spool.BatchSeconds)*time.Second,
				p.logger,
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (settle %ds)\n",
				p.cfg.Paths.SpoolDir, p.cfg.Spool.SettleSeconds)

			go logContentEvents(ctx, p.bus, p.logger)

			return watcher.Run(ctx, func(ctx context.Context, sourcePath string) error {
				_, err := p.runner.Run(ctx, sourcePath)
				if err == nil {
					return nil
				}
				// Startup-class faults (engine gone, store down, broken
				// workspace) would fail every later entry the same way,
				// so they bring the watch down. Per-job faults do not.
				if services.StartupFatal(err) {
					return err
				}
				p.logger.Error("spool job failed",
					logging.String("source", sourcePath),
					logging.Error(err))
				return nil
			})
		},
	}
}

// logContentEvents follows the content-event stream while the watch runs,
// logging each virtual directory the pipeline materializes. It returns when
// ctx ends.
func logContentEvents(ctx context.Context, bus *events.Bus, logger *slog.Logger) {
	var since uint64
	for {
		evts, next, err := bus.Fetch(ctx, since, 64, true)
		if err != nil {
			return
		}
		since = next
		for _, evt := range evts {
			if evt.Kind != events.KindDirectoryAdded {
				continue
			}
			logger.Info("virtual directory added",
				logging.Int64(logging.FieldJobID, evt.JobID),
				logging.String("directory", evt.Name))
		}
	}
}
