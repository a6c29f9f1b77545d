package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"whittle/internal/casedb"
	"whittle/internal/config"
	"whittle/internal/preflight"
)

func newStatusCommand(cc *commandContext) *cobra.Command {
	var recent int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show configuration, preflight checks, and recent jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			printSection(out, "Preflight", colorize)
			for _, result := range preflightResults(cmd.Context(), cfg) {
				kind := statusError
				if result.Passed {
					kind = statusOK
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			for _, status := range preflight.CheckCarvingTools(cfg.EngineCommand()) {
				kind := statusError
				if status.Available {
					kind = statusOK
				} else if status.Optional {
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine(status.Name, kind, status.Detail, colorize))
			}

			printSection(out, "Case database", colorize)
			if err := printCaseSummary(cmd.Context(), out, cfg, recent); err != nil {
				fmt.Fprintln(out, renderStatusLine("Case database", statusError, err.Error(), colorize))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 10, "Number of recent jobs to list")
	return cmd
}

func preflightResults(ctx context.Context, cfg *config.Config) []preflight.Result {
	results := []preflight.Result{
		preflight.CheckDirectoryAccess("Output directory", cfg.OutputRoot()),
		preflight.CheckDirectoryAccess("Temp directory", cfg.TempRoot()),
		preflight.CheckDirectoryAccess("Spool directory", cfg.Paths.SpoolDir),
		preflight.CheckEngine(cfg.EngineCommand()),
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		results = append(results, preflight.CheckNotifications(ctx, cfg.Notifications.NtfyTopic))
	}
	return results
}

func printCaseSummary(ctx context.Context, out io.Writer, cfg *config.Config, recent int) error {
	store, err := casedb.Open(cfg.Paths.CaseDB)
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := store.CountByType(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  Data sources: %d   Carved files: %d   Virtual dirs: %d\n",
		counts[casedb.TypeDataSource], counts[casedb.TypeCarvedFile], counts[casedb.TypeVirtualDir])

	jobs, err := store.RecentJobs(ctx, recent)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Fprintln(out, "  No jobs recorded")
		return nil
	}

	headers := []string{"Job", "Status", "Source", "Units", "Recovered", "Errored", "Started"}
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			strconv.FormatInt(job.ID, 10),
			string(job.Status),
			job.SourcePath,
			strconv.Itoa(job.UnitsTotal),
			strconv.FormatInt(job.Recovered, 10),
			strconv.FormatInt(job.Errored, 10),
			job.StartedAt.Format("2006-01-02 15:04:05"),
		})
	}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}
	fmt.Fprintln(out, renderTable(headers, rows, aligns))
	return nil
}

func printSection(out io.Writer, title string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}
