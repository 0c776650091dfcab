// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package crawl drives one crawl run: it walks listing pages from each start
// URL, fetches every discovered detail page, and keeps the papers that pass
// the relevance filter and, when configured, the LLM evaluator.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-scout/internal/evaluate"
	"github.com/pdiddy/paper-scout/internal/relevance"
	"github.com/pdiddy/paper-scout/pkg/types"
)

const (
	defaultConcurrency     = 4
	defaultEvalConcurrency = 2
)

// Fetcher retrieves a page body. *httputil.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Evaluator judges an abstract. *evaluate.Evaluator implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, abstract string) (evaluate.Verdict, error)
}

// ConfigurationError is returned before a run starts when the controller
// cannot be built as configured.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Deps are the collaborators a Controller uses. Evaluator must be a nil
// interface, not a typed nil, to disable the evaluation stage.
type Deps struct {
	Fetcher         Fetcher
	Filter          *relevance.Filter
	Evaluator       Evaluator
	EvalConcurrency int
	Logger          *zap.Logger
}

// Controller runs crawls. It holds configuration and collaborators only;
// all per-run state lives in the run and is discarded when Run returns, so
// repeated runs never share results.
type Controller struct {
	cfg             types.CrawlConfig
	fetcher         Fetcher
	filter          *relevance.Filter
	evaluator       Evaluator
	concurrency     int
	evalConcurrency int
	log             *zap.Logger
}

// New validates cfg and deps and returns a Controller. Problems are
// reported as *ConfigurationError.
func New(cfg types.CrawlConfig, deps Deps) (*Controller, error) {
	if len(cfg.StartURLs) == 0 {
		return nil, &ConfigurationError{Field: "crawl.start_urls", Err: errors.New("at least one start URL is required")}
	}
	for _, s := range cfg.StartURLs {
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, &ConfigurationError{Field: "crawl.start_urls", Err: fmt.Errorf("invalid start URL %q", s)}
		}
	}
	if deps.Fetcher == nil {
		return nil, &ConfigurationError{Field: "fetcher", Err: errors.New("fetcher is required")}
	}
	if deps.Filter == nil {
		return nil, &ConfigurationError{Field: "filter", Err: errors.New("relevance filter is required")}
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	evalConcurrency := deps.EvalConcurrency
	if evalConcurrency <= 0 {
		evalConcurrency = defaultEvalConcurrency
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Controller{
		cfg:             cfg,
		fetcher:         deps.Fetcher,
		filter:          deps.Filter,
		evaluator:       deps.Evaluator,
		concurrency:     concurrency,
		evalConcurrency: evalConcurrency,
		log:             log,
	}, nil
}

// EvaluatorFromConfig builds the evaluation stage. It returns a nil
// Evaluator when the stage is disabled, and a *ConfigurationError when the
// stage is enabled but cannot be built (for example, no API key).
func EvaluatorFromConfig(cfg types.EvaluatorConfig, client *http.Client) (Evaluator, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	backend, err := evaluate.NewBackend(cfg, client)
	if err != nil {
		return nil, &ConfigurationError{Field: "evaluator", Err: err}
	}
	return evaluate.New(backend, cfg), nil
}

// Result is the outcome of one run.
type Result struct {
	// Records are the accepted papers in discovery order: start URLs in
	// configured order, then listing page, then position on the page.
	Records []types.PaperRecord
	Summary Summary
}

// Run crawls every start URL to exhaustion and returns the accepted papers.
// Per-URL and per-paper failures are logged and counted, never returned.
// The only error is ctx.Err() when the context ended before the run did;
// the partial result is still returned.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	r := newRun(c)
	started := time.Now()

	c.log.Info("crawl started",
		zap.Strings("start_urls", c.cfg.StartURLs),
		zap.Int("concurrency", c.concurrency),
		zap.Bool("evaluator", c.evaluator != nil),
		zap.Int("filter_terms", c.filter.Terms()),
	)

	r.crawl(ctx)

	summary := r.summary(started, time.Now())
	c.log.Info("crawl finished", summary.Fields()...)

	return Result{Records: r.collector.Records(), Summary: summary}, ctx.Err()
}
