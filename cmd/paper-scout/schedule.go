package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paper-scout/internal/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the crawl on a cron schedule",
	Long: `Schedule runs the same pipeline as crawl on a cron expression (default
"0 6 * * 1", Mondays at 06:00 local time) until interrupted. A tick that
fires while the previous run is still going is skipped. Each run starts with
empty state; nothing carries over between runs.`,
	RunE: runSchedule,
}

func init() {
	f := scheduleCmd.Flags()
	f.String("cron", "", "cron expression (5 fields or a descriptor such as @weekly)")
	f.Bool("now", false, "run once immediately before waiting for the first tick")
	f.Bool("no-eval", false, "skip the LLM evaluator")

	_ = viper.BindPFlag("schedule.cron", f.Lookup("cron"))

	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if noEval, _ := cmd.Flags().GetBool("no-eval"); noEval {
		cfg.Evaluator.Enabled = false
	}

	// Fail on configuration problems now rather than at the first tick.
	if _, err := buildController(cfg, log); err != nil {
		return err
	}

	runCfg := cfg
	job := func(ctx context.Context) error {
		_, err := runPipeline(ctx, runCfg, log, cmd.OutOrStdout())
		return err
	}
	s, err := schedule.New(cfg.Schedule.Cron, job, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	s.Start(ctx)
	if now, _ := cmd.Flags().GetBool("now"); now {
		go s.Trigger()
	}
	log.Info("waiting for next run", zap.Time("next", s.Next(time.Now())))

	<-ctx.Done()
	s.Stop()
	return nil
}
