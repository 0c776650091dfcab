// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config turns viper settings into a validated types.Config.
// Settings come from, in order of precedence: flags bound by the caller,
// PAPER_SCOUT_* environment variables, the YAML config file, and Defaults.
package config

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-scout/internal/crawl"
	"github.com/pdiddy/paper-scout/internal/detail"
	"github.com/pdiddy/paper-scout/internal/evaluate"
	"github.com/pdiddy/paper-scout/internal/listing"
	"github.com/pdiddy/paper-scout/internal/relevance"
	"github.com/pdiddy/paper-scout/internal/report"
	"github.com/pdiddy/paper-scout/internal/schedule"
	"github.com/pdiddy/paper-scout/internal/secrets"
	"github.com/pdiddy/paper-scout/pkg/types"
)

// EnvPrefix is prepended to every environment override, e.g.
// PAPER_SCOUT_CRAWL_CONCURRENCY.
const EnvPrefix = "PAPER_SCOUT"

// DefaultStartURLs are the arXiv listings crawled when none are configured.
var DefaultStartURLs = []string{
	"https://arxiv.org/list/q-fin/recent",
	"https://arxiv.org/list/econ.EM/recent",
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() types.Config {
	return types.Config{
		Crawl: types.CrawlConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "paper-scout/0.1",
			},
			StartURLs:         append([]string(nil), DefaultStartURLs...),
			Concurrency:       4,
			RequestsPerSecond: 1,
			MaxRetries:        3,
			Listing:           listing.DefaultSelectors,
			Detail:            detail.DefaultSelectors,
		},
		Filter: types.FilterConfig{
			Keywords: append([]string(nil), relevance.DefaultKeywords...),
		},
		Evaluator: types.EvaluatorConfig{
			AIConfig: types.AIConfig{
				Model: evaluate.DefaultModel(types.ProviderAnthropic),
			},
			Enabled:     true,
			Provider:    types.ProviderAnthropic,
			MaxTokens:   1024,
			Timeout:     60 * time.Second,
			Concurrency: 2,
		},
		Report: types.ReportConfig{
			OutputDir: ".",
			TextFile:  report.DefaultTextFile,
			JSONFile:  report.DefaultJSONFile,
		},
		Schedule: types.ScheduleConfig{Cron: schedule.DefaultSpec},
		Log:      types.LogConfig{Level: "info"},
	}
}

// Setup prepares v for Load: environment overrides with EnvPrefix and a
// default for every key, so each key can be set from the environment.
// evaluator.model defaults to empty so Load can pick the provider's model.
func Setup(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Defaults()
	defaults := map[string]any{
		"crawl.timeout":             d.Crawl.Timeout,
		"crawl.user_agent":          d.Crawl.UserAgent,
		"crawl.start_urls":          d.Crawl.StartURLs,
		"crawl.concurrency":         d.Crawl.Concurrency,
		"crawl.requests_per_second": d.Crawl.RequestsPerSecond,
		"crawl.max_retries":         d.Crawl.MaxRetries,
		"crawl.max_listing_pages":   d.Crawl.MaxListingPages,

		"crawl.listing.entry_link": d.Crawl.Listing.EntryLink,
		"crawl.listing.pagination": d.Crawl.Listing.Pagination,

		"crawl.detail.title":        d.Crawl.Detail.Title,
		"crawl.detail.title_label":  d.Crawl.Detail.TitleLabel,
		"crawl.detail.title_marker": d.Crawl.Detail.TitleMarker,
		"crawl.detail.abstract":     d.Crawl.Detail.Abstract,
		"crawl.detail.authors":      d.Crawl.Detail.Authors,
		"crawl.detail.full_text":    d.Crawl.Detail.FullText,

		"filter.keywords": d.Filter.Keywords,
		"filter.patterns": []string{},

		"evaluator.enabled":     d.Evaluator.Enabled,
		"evaluator.provider":    string(d.Evaluator.Provider),
		"evaluator.model":       "",
		"evaluator.api_key":     "",
		"evaluator.base_url":    "",
		"evaluator.max_tokens":  d.Evaluator.MaxTokens,
		"evaluator.max_retries": d.Evaluator.MaxRetries,
		"evaluator.timeout":     d.Evaluator.Timeout,
		"evaluator.concurrency": d.Evaluator.Concurrency,

		"report.output_dir": d.Report.OutputDir,
		"report.text_file":  d.Report.TextFile,
		"report.json_file":  d.Report.JSONFile,
		"report.yaml_file":  "",
		"report.archive":    "",

		"schedule.cron": d.Schedule.Cron,

		"log.level":       d.Log.Level,
		"log.development": d.Log.Development,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	if cfg.Evaluator.Model == "" {
		cfg.Evaluator.Model = evaluate.DefaultModel(cfg.Evaluator.Provider)
	}
	if err := Validate(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg for values no run could use. Problems are reported
// as *crawl.ConfigurationError naming the offending key.
func Validate(cfg types.Config) error {
	c := cfg.Crawl
	if len(c.StartURLs) == 0 {
		return invalid("crawl.start_urls", "at least one start URL is required")
	}
	for _, s := range c.StartURLs {
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("crawl.start_urls", fmt.Sprintf("invalid start URL %q", s))
		}
	}
	if c.Concurrency < 0 {
		return invalid("crawl.concurrency", "must not be negative")
	}
	if c.RequestsPerSecond < 0 {
		return invalid("crawl.requests_per_second", "must not be negative")
	}
	if c.MaxRetries < 0 {
		return invalid("crawl.max_retries", "must not be negative")
	}
	if c.MaxListingPages < 0 {
		return invalid("crawl.max_listing_pages", "must not be negative")
	}
	if c.Timeout < 0 {
		return invalid("crawl.timeout", "must not be negative")
	}

	if _, err := relevance.New(cfg.Filter.Keywords, cfg.Filter.Patterns); err != nil {
		return &crawl.ConfigurationError{Field: "filter.patterns", Err: err}
	}

	e := cfg.Evaluator
	switch e.Provider {
	case "", types.ProviderAnthropic, types.ProviderOpenAI:
	default:
		return invalid("evaluator.provider", fmt.Sprintf("unknown provider %q", e.Provider))
	}
	if e.MaxTokens < 0 {
		return invalid("evaluator.max_tokens", "must not be negative")
	}
	if e.MaxRetries < 0 {
		return invalid("evaluator.max_retries", "must not be negative")
	}

	if cfg.Schedule.Cron != "" {
		if err := schedule.Validate(cfg.Schedule.Cron); err != nil {
			return &crawl.ConfigurationError{Field: "schedule.cron", Err: err}
		}
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return invalid("log.level", fmt.Sprintf("unknown level %q", cfg.Log.Level))
	}
	return nil
}

// ResolveAPIKey fills cfg.Evaluator.APIKey from the environment or the
// secrets directory when the evaluator is enabled and no key is configured.
// It does not fail when no key is found; building the evaluator does.
func ResolveAPIKey(cfg *types.Config, secretsDir string, log *zap.Logger) error {
	if !cfg.Evaluator.Enabled || cfg.Evaluator.APIKey != "" {
		return nil
	}
	key, err := secrets.APIKey(cfg.Evaluator.Provider, secretsDir, log)
	if err != nil {
		return &crawl.ConfigurationError{Field: "evaluator.api_key", Err: err}
	}
	cfg.Evaluator.APIKey = key
	return nil
}

// Dump writes cfg as YAML with the API key redacted.
func Dump(w io.Writer, cfg types.Config) error {
	if cfg.Evaluator.APIKey != "" {
		cfg.Evaluator.APIKey = "<redacted>"
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	return enc.Close()
}

func invalid(field, reason string) error {
	return &crawl.ConfigurationError{Field: field, Err: fmt.Errorf("%s", reason)}
}
