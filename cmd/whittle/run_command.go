package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"whittle/internal/events"
	"whittle/internal/ingest"
	"whittle/internal/preflight"
	"whittle/internal/services"
)

func newRunCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <source>",
		Short: "Carve one evidence file or directory",
		Long: "Run carves every unit of the given source path as one job: a regular\n" +
			"file is a single unit, a directory contributes each of its files.\n" +
			"Recovered artifacts are registered in the case database and reports\n" +
			"are kept under the job's output directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := cc.buildPipeline()
			if err != nil {
				return err
			}
			defer p.close()

			// Gate the job on readiness up front; a broken workspace or
			// missing engine would otherwise fail unit by unit.
			for _, result := range preflight.RunAll(ctx, p.cfg) {
				if !result.Passed {
					return services.Wrap(services.ErrConfiguration, "preflight", result.Name, result.Detail, nil)
				}
			}

			summary, err := p.runner.Run(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderSummaryTable(summary))
			if dirs := collectDirectories(p.bus); len(dirs) > 0 {
				fmt.Fprintf(out, "New container directories: %s\n", strings.Join(dirs, ", "))
			}
			return nil
		},
	}
}

// collectDirectories drains the content-event buffer for the virtual
// directories this run materialized.
func collectDirectories(bus *events.Bus) []string {
	buffered, _ := bus.Tail(256)
	var dirs []string
	for _, evt := range buffered {
		if evt.Kind == events.KindDirectoryAdded {
			dirs = append(dirs, evt.Name)
		}
	}
	return dirs
}

func renderSummaryTable(summary *ingest.Summary) string {
	headers := []string{"Job", "Status", "Units", "Recovered", "Errored", "Write (ms)", "Parse (ms)"}
	rows := [][]string{{
		strconv.FormatInt(summary.JobID, 10),
		string(summary.Status),
		strconv.Itoa(summary.Units),
		strconv.FormatInt(summary.Totals.Recovered, 10),
		strconv.FormatInt(summary.Totals.Errored, 10),
		strconv.FormatInt(summary.Totals.WriteMS, 10),
		strconv.FormatInt(summary.Totals.ParseMS, 10),
	}}
	aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}
	return renderTable(headers, rows, aligns)
}
