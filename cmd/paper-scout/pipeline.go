// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-scout/internal/crawl"
	"github.com/pdiddy/paper-scout/internal/httputil"
	"github.com/pdiddy/paper-scout/internal/relevance"
	"github.com/pdiddy/paper-scout/internal/report"
	"github.com/pdiddy/paper-scout/pkg/types"
)

// buildController wires the fetcher, filter, and evaluator for cfg.
func buildController(cfg types.Config, log *zap.Logger) (*crawl.Controller, error) {
	filter, err := relevance.New(cfg.Filter.Keywords, cfg.Filter.Patterns)
	if err != nil {
		return nil, &crawl.ConfigurationError{Field: "filter", Err: err}
	}
	evaluator, err := crawl.EvaluatorFromConfig(cfg.Evaluator, nil)
	if err != nil {
		return nil, err
	}
	return crawl.New(cfg.Crawl, crawl.Deps{
		Fetcher:         httputil.NewFetcher(cfg.Crawl),
		Filter:          filter,
		Evaluator:       evaluator,
		EvalConcurrency: cfg.Evaluator.Concurrency,
		Logger:          log,
	})
}

// runPipeline performs one crawl and writes its report. A run cut short by
// ctx still writes the papers accepted so far.
func runPipeline(ctx context.Context, cfg types.Config, log *zap.Logger, out io.Writer) (crawl.Result, error) {
	ctrl, err := buildController(cfg, log)
	if err != nil {
		return crawl.Result{}, err
	}

	res, runErr := ctrl.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return res, runErr
	}

	paths, err := report.WriteFiles(cfg.Report, res.Records)
	if err != nil {
		return res, err
	}
	log.Info("report written", zap.Strings("files", paths), zap.Int("papers", len(res.Records)))

	if cfg.Report.Archive != "" {
		if err := archiveRun(context.WithoutCancel(ctx), cfg.Report.Archive, res, log); err != nil {
			log.Warn("archiving run failed", zap.String("archive", cfg.Report.Archive), zap.Error(err))
		}
	}

	res.Summary.Print(out)
	return res, runErr
}

func archiveRun(ctx context.Context, path string, res crawl.Result, log *zap.Logger) error {
	a, err := report.OpenArchive(path)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.SaveRun(ctx, res)
	if err != nil {
		return err
	}
	log.Info("run archived", zap.String("archive", path), zap.Int64("run_id", id))
	return nil
}
