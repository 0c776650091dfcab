package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-scout/internal/report"
)

var runsCmd = &cobra.Command{
	Use:   "runs [run-id]",
	Short: "List archived runs or print the papers of one run",
	Long: `Runs reads the SQLite archive configured by report.archive (or --archive).
Without arguments it lists recent runs, newest first. With a run id it
prints that run's papers in the text report layout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().String("archive", "", "SQLite archive (default: report.archive)")
	runsCmd.Flags().Int("limit", 20, "number of runs to list")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("archive")
	if path == "" {
		path = cfg.Report.Archive
	}
	if path == "" {
		return fmt.Errorf("no archive configured; set report.archive or pass --archive")
	}

	a, err := report.OpenArchive(path)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run id %q", args[0])
		}
		papers, err := a.RunPapers(ctx, id)
		if err != nil {
			return err
		}
		return report.WriteText(out, papers)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := a.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs archived")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tLISTINGS\tDETAILS\tFAILURES\tREJECTED\tACCEPTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Duration.Round(time.Second),
			r.ListingPages, r.DetailPages, r.Failures, r.Rejected, r.Accepted)
	}
	return tw.Flush()
}
