// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package crawl

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/paper-scout/internal/detail"
	"github.com/pdiddy/paper-scout/internal/evaluate"
	"github.com/pdiddy/paper-scout/internal/listing"
)

// run is the state of a single crawl: the URLs already claimed, the
// accepted papers, and counters. It is owned by one Controller.Run call.
type run struct {
	c   *Controller
	log *zap.Logger

	fetchSem *semaphore.Weighted
	evalSem  *semaphore.Weighted

	mu       sync.Mutex
	listings map[string]bool
	details  map[string]bool

	collector *Collector
	detailWG  sync.WaitGroup

	listingPages       atomic.Int64
	detailPages        atomic.Int64
	duplicates         atomic.Int64
	fetchFailures      atomic.Int64
	listingFailures    atomic.Int64
	extractionFailures atomic.Int64
	irrelevant         atomic.Int64
	evaluated          atomic.Int64
	rejected           atomic.Int64
	evalFailures       atomic.Int64
	accepted           atomic.Int64
}

func newRun(c *Controller) *run {
	return &run{
		c:         c,
		log:       c.log,
		fetchSem:  semaphore.NewWeighted(int64(c.concurrency)),
		evalSem:   semaphore.NewWeighted(int64(c.evalConcurrency)),
		listings:  make(map[string]bool),
		details:   make(map[string]bool),
		collector: NewCollector(),
	}
}

// crawl walks each start URL in its own goroutine and waits until every
// listing branch and every detail page has finished.
func (r *run) crawl(ctx context.Context) {
	var walkers sync.WaitGroup
	for i, start := range r.c.cfg.StartURLs {
		walkers.Add(1)
		go func() {
			defer walkers.Done()
			r.walk(ctx, i, start)
		}()
	}
	// Detail goroutines are registered by walkers before they exit, so the
	// detail group is complete once all walkers are done.
	walkers.Wait()
	r.detailWG.Wait()
}

// walk follows pagination from one start URL. Pages are fetched one after
// another because the next URL is only known after parsing the current page.
func (r *run) walk(ctx context.Context, startIdx int, start string) {
	log := r.log.With(zap.String("start_url", start))
	next := start

	for page := 0; next != ""; page++ {
		if limit := r.c.cfg.MaxListingPages; limit > 0 && page >= limit {
			log.Info("listing page limit reached", zap.Int("pages", page))
			return
		}
		if !claim(&r.mu, r.listings, next) {
			log.Debug("listing page already visited", zap.String("url", next))
			return
		}

		body, err := r.fetch(ctx, next)
		if err != nil {
			r.fetchFailures.Add(1)
			log.Warn("listing fetch failed", zap.String("url", next), zap.Error(err))
			return
		}
		r.listingPages.Add(1)

		lp, err := listing.Parse(body, next, r.c.cfg.Listing)
		if err != nil {
			r.listingFailures.Add(1)
			log.Warn("listing parse failed", zap.String("url", next), zap.Error(err))
			return
		}
		log.Debug("listing parsed",
			zap.String("url", next),
			zap.Int("entries", len(lp.DetailURLs)),
			zap.String("next", lp.NextPage),
		)

		for i, u := range lp.DetailURLs {
			if !claim(&r.mu, r.details, u) {
				r.duplicates.Add(1)
				continue
			}
			r.detailWG.Add(1)
			go r.processDetail(ctx, Position{Start: startIdx, Page: page, Entry: i}, u)
		}

		next = lp.NextPage
	}
}

// processDetail takes one detail URL through fetch, extraction, filtering,
// optional evaluation, and accumulation.
func (r *run) processDetail(ctx context.Context, pos Position, pageURL string) {
	defer r.detailWG.Done()
	log := r.log.With(zap.String("url", pageURL))

	body, err := r.fetch(ctx, pageURL)
	if err != nil {
		r.fetchFailures.Add(1)
		log.Warn("detail fetch failed", zap.Error(err))
		return
	}
	r.detailPages.Add(1)

	rec, err := detail.Parse(body, pageURL, r.c.cfg.Detail)
	if err != nil {
		r.extractionFailures.Add(1)
		label := pageURL
		var ee *detail.ExtractionError
		if errors.As(err, &ee) {
			label = ee.Label
		}
		log.Warn("extraction failed", zap.String("label", label), zap.Error(err))
		return
	}

	term, ok := r.c.filter.Matched(rec.Title, rec.Abstract)
	if !ok {
		r.irrelevant.Add(1)
		log.Debug("not relevant", zap.String("title", rec.Title))
		return
	}

	if r.c.evaluator != nil {
		verdict, err := r.evaluate(ctx, rec.Abstract)
		if err != nil {
			r.evalFailures.Add(1)
			log.Warn("evaluation failed", zap.String("title", rec.Title), zap.Error(err))
			return
		}
		r.evaluated.Add(1)
		if !verdict.Accepted {
			r.rejected.Add(1)
			log.Debug("rejected by evaluator", zap.String("title", rec.Title))
			return
		}
		rec = rec.WithEvaluation(verdict.Rationale)
	}

	r.collector.Add(pos, rec)
	r.accepted.Add(1)
	log.Info("paper accepted", zap.String("title", rec.Title), zap.String("matched", term))
}

func (r *run) fetch(ctx context.Context, u string) ([]byte, error) {
	if err := r.fetchSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.fetchSem.Release(1)
	return r.c.fetcher.Fetch(ctx, u)
}

func (r *run) evaluate(ctx context.Context, abstract string) (evaluate.Verdict, error) {
	if err := r.evalSem.Acquire(ctx, 1); err != nil {
		return evaluate.Verdict{}, err
	}
	defer r.evalSem.Release(1)
	return r.c.evaluator.Evaluate(ctx, abstract)
}

// claim marks key as seen and reports whether this call was the first.
func claim(mu *sync.Mutex, seen map[string]bool, key string) bool {
	mu.Lock()
	defer mu.Unlock()
	if seen[key] {
		return false
	}
	seen[key] = true
	return true
}

func (r *run) summary(started, finished time.Time) Summary {
	return Summary{
		StartedAt:          started,
		FinishedAt:         finished,
		ListingPages:       int(r.listingPages.Load()),
		DetailPages:        int(r.detailPages.Load()),
		Duplicates:         int(r.duplicates.Load()),
		FetchFailures:      int(r.fetchFailures.Load()),
		ListingFailures:    int(r.listingFailures.Load()),
		ExtractionFailures: int(r.extractionFailures.Load()),
		Irrelevant:         int(r.irrelevant.Load()),
		Evaluated:          int(r.evaluated.Load()),
		Rejected:           int(r.rejected.Load()),
		EvaluationFailures: int(r.evalFailures.Load()),
		Accepted:           int(r.accepted.Load()),
	}
}
