package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-scout/internal/config"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl the listings once and write the report",
	Long: `Crawl fetches every configured listing page, follows pagination to the end,
and processes each paper's detail page. Papers matching the keyword filter
are sent to the LLM evaluator when it is enabled. Accepted papers are written
to the text and JSON report files.

Failures on individual pages are logged and skipped. The command fails only
on configuration errors or when the report cannot be written.`,
	RunE: runCrawl,
}

func init() {
	f := crawlCmd.Flags()
	f.StringSlice("start-url", nil, "listing URL to start from (repeatable)")
	f.Int("concurrency", 0, "maximum in-flight fetches")
	f.Int("max-pages", 0, "listing pages to follow per start URL (0 = all)")
	f.String("output-dir", "", "directory for report files")
	f.String("archive", "", "SQLite file recording each run")
	f.Bool("no-eval", false, "skip the LLM evaluator")
	f.Bool("dump-config", false, "print the effective configuration and exit")

	_ = viper.BindPFlag("crawl.start_urls", f.Lookup("start-url"))
	_ = viper.BindPFlag("crawl.concurrency", f.Lookup("concurrency"))
	_ = viper.BindPFlag("crawl.max_listing_pages", f.Lookup("max-pages"))
	_ = viper.BindPFlag("report.output_dir", f.Lookup("output-dir"))
	_ = viper.BindPFlag("report.archive", f.Lookup("archive"))

	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	if noEval, _ := cmd.Flags().GetBool("no-eval"); noEval {
		cfg.Evaluator.Enabled = false
	}
	if dump, _ := cmd.Flags().GetBool("dump-config"); dump {
		return config.Dump(cmd.OutOrStdout(), cfg)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	_, err := runPipeline(ctx, cfg, log, cmd.OutOrStdout())
	return err
}
