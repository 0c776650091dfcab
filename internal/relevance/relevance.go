// Package relevance decides from title and abstract text whether a paper is
// topically relevant, using configured keyword phrases and patterns.
package relevance

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultKeywords is the domain vocabulary used when none is configured.
var DefaultKeywords = []string{
	"statistical methods", "trading", "investing", "factor models", "low volatility",
	"alpha generation", "time series", "stochastic processes", "econometrics",
	"technical analysis", "portfolio optimization", "option pricing", "machine learning",
	"high-frequency trading", "HFT", "mean reversion", "momentum", "pairs trading",
	"statistical arbitrage", "volatility trading", "asset pricing", "market efficiency",
	"risk management", "behavioral finance", "algorithmic trading", "quantitative investment",
	"financial forecasting", "predictive modeling", "pattern recognition", "data mining",
	"probabilistic", "probability", "likelihood", "uncertainty", "random", "distribution",
	"Bayesian", "Monte Carlo", "Markov chain", "stochastic volatility",
}

// Filter matches text against a fixed set of case-insensitive patterns.
// A Filter is immutable and safe for concurrent use.
type Filter struct {
	re    *regexp.Regexp
	terms int
}

// New compiles keywords and raw patterns into a single case-insensitive
// alternation. Whitespace inside a keyword phrase matches any run of
// whitespace, so "factor models" matches "factor\n  models". A Filter with no
// terms matches nothing.
func New(keywords, patterns []string) (*Filter, error) {
	var alts []string
	for _, kw := range keywords {
		if p := phrasePattern(kw); p != "" {
			alts = append(alts, p)
		}
	}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("compiling pattern %q: %w", p, err)
		}
		alts = append(alts, "(?:"+p+")")
	}

	f := &Filter{terms: len(alts)}
	if len(alts) == 0 {
		return f, nil
	}
	re, err := regexp.Compile("(?i)" + strings.Join(alts, "|"))
	if err != nil {
		return nil, fmt.Errorf("compiling keyword set: %w", err)
	}
	f.re = re
	return f, nil
}

// MustNew is New that panics on error. Intended for package-level defaults.
func MustNew(keywords, patterns []string) *Filter {
	f, err := New(keywords, patterns)
	if err != nil {
		panic(err)
	}
	return f
}

// phraseGap matches a run of whitespace, including Unicode spaces such as
// U+00A0 that pages produce from &nbsp;. RE2's \s alone is ASCII only.
const phraseGap = `[\s\v\x{85}\p{Z}]+`

// phrasePattern quotes each word of a phrase and joins them with phraseGap.
func phrasePattern(phrase string) string {
	words := strings.Fields(phrase)
	if len(words) == 0 {
		return ""
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, phraseGap)
}

// Terms returns the number of compiled keywords and patterns.
func (f *Filter) Terms() int { return f.terms }

// Match reports whether any configured term occurs in title or abstract.
func (f *Filter) Match(title, abstract string) bool {
	_, ok := f.Matched(title, abstract)
	return ok
}

// Matched returns the first matching text, searched in the space-joined
// title and abstract.
func (f *Filter) Matched(title, abstract string) (string, bool) {
	if f.re == nil {
		return "", false
	}
	loc := f.re.FindStringIndex(title + " " + abstract)
	if loc == nil {
		return "", false
	}
	return (title + " " + abstract)[loc[0]:loc[1]], true
}
