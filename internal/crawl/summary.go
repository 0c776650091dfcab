package crawl

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

// Summary holds the counts from one crawl run.
type Summary struct {
	StartedAt  time.Time
	FinishedAt time.Time

	ListingPages       int
	DetailPages        int
	Duplicates         int
	FetchFailures      int
	ListingFailures    int
	ExtractionFailures int
	Irrelevant         int
	Evaluated          int
	Rejected           int
	EvaluationFailures int
	Accepted           int
}

// Duration returns the wall time of the run.
func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Failures returns the number of URLs or papers dropped because of an error.
func (s Summary) Failures() int {
	return s.FetchFailures + s.ListingFailures + s.ExtractionFailures + s.EvaluationFailures
}

// HasFailures reports whether any URL or paper failed.
func (s Summary) HasFailures() bool {
	return s.Failures() > 0
}

// Fields returns the summary as zap fields.
func (s Summary) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("listing_pages", s.ListingPages),
		zap.Int("detail_pages", s.DetailPages),
		zap.Int("duplicates", s.Duplicates),
		zap.Int("fetch_failures", s.FetchFailures),
		zap.Int("listing_failures", s.ListingFailures),
		zap.Int("extraction_failures", s.ExtractionFailures),
		zap.Int("irrelevant", s.Irrelevant),
		zap.Int("evaluated", s.Evaluated),
		zap.Int("rejected", s.Rejected),
		zap.Int("evaluation_failures", s.EvaluationFailures),
		zap.Int("accepted", s.Accepted),
		zap.Duration("duration", s.Duration()),
	}
}

// Print writes a one-paragraph human-readable summary to w.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "\nCrawl summary: %d listing pages, %d detail pages, %d accepted\n",
		s.ListingPages, s.DetailPages, s.Accepted)
	fmt.Fprintf(w, "  irrelevant: %d, rejected: %d, duplicates: %d\n",
		s.Irrelevant, s.Rejected, s.Duplicates)
	fmt.Fprintf(w, "  failures: fetch %d, listing %d, extraction %d, evaluation %d\n",
		s.FetchFailures, s.ListingFailures, s.ExtractionFailures, s.EvaluationFailures)
	fmt.Fprintf(w, "  took %s\n", s.Duration().Round(time.Millisecond))
}
