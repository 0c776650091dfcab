// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-scout/internal/crawl"
	"github.com/pdiddy/paper-scout/internal/relevance"
	"github.com/pdiddy/paper-scout/internal/secrets"
	"github.com/pdiddy/paper-scout/pkg/types"
)

func newViper(t *testing.T, yamlConfig string) *viper.Viper {
	t.Helper()
	v := viper.New()
	Setup(v)
	if yamlConfig != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(strings.NewReader(yamlConfig)))
	}
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)
	want := Defaults()

	assert.Equal(t, want.Crawl.StartURLs, cfg.Crawl.StartURLs)
	assert.Equal(t, 30*time.Second, cfg.Crawl.Timeout)
	assert.Equal(t, "paper-scout/0.1", cfg.Crawl.UserAgent)
	assert.Equal(t, 4, cfg.Crawl.Concurrency)
	assert.Equal(t, 1.0, cfg.Crawl.RequestsPerSecond)
	assert.Equal(t, want.Crawl.Listing, cfg.Crawl.Listing)
	assert.Equal(t, want.Crawl.Detail, cfg.Crawl.Detail)

	assert.Equal(t, relevance.DefaultKeywords, cfg.Filter.Keywords)
	assert.Empty(t, cfg.Filter.Patterns)

	assert.True(t, cfg.Evaluator.Enabled)
	assert.Equal(t, types.ProviderAnthropic, cfg.Evaluator.Provider)
	assert.Equal(t, "claude-3-sonnet-20240229", cfg.Evaluator.Model)
	assert.Equal(t, 1024, cfg.Evaluator.MaxTokens)
	assert.Zero(t, cfg.Evaluator.MaxRetries)
	assert.Equal(t, 60*time.Second, cfg.Evaluator.Timeout)

	assert.Equal(t, "arxiv_paper_report.txt", cfg.Report.TextFile)
	assert.Equal(t, "arxiv_paper_data.json", cfg.Report.JSONFile)
	assert.Equal(t, "0 6 * * 1", cfg.Schedule.Cron)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromYAML(t *testing.T) {
	v := newViper(t, `
crawl:
  start_urls:
    - https://example.org/list/a
  concurrency: 8
  timeout: 5s
  max_listing_pages: 2
  detail:
    title: h1.paper-title
filter:
  keywords: [momentum]
  patterns: ['\bGARCH\b']
evaluator:
  provider: openai
  max_retries: 2
report:
  output_dir: out
  yaml_file: papers.yaml
log:
  level: debug
`)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.org/list/a"}, cfg.Crawl.StartURLs)
	assert.Equal(t, 8, cfg.Crawl.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Crawl.Timeout)
	assert.Equal(t, 2, cfg.Crawl.MaxListingPages)
	assert.Equal(t, "h1.paper-title", cfg.Crawl.Detail.Title)
	assert.Equal(t, "div.authors a", cfg.Crawl.Detail.Authors, "unset selectors keep defaults")

	assert.Equal(t, []string{"momentum"}, cfg.Filter.Keywords)
	assert.Equal(t, []string{`\bGARCH\b`}, cfg.Filter.Patterns)

	assert.Equal(t, types.ProviderOpenAI, cfg.Evaluator.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Evaluator.Model, "model follows provider when unset")
	assert.Equal(t, 2, cfg.Evaluator.MaxRetries)

	assert.Equal(t, "out", cfg.Report.OutputDir)
	assert.Equal(t, "papers.yaml", cfg.Report.YAMLFile)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("PAPER_SCOUT_CRAWL_CONCURRENCY", "2")
	t.Setenv("PAPER_SCOUT_CRAWL_START_URLS", "https://a.example/list,https://b.example/list")
	t.Setenv("PAPER_SCOUT_EVALUATOR_ENABLED", "false")
	t.Setenv("PAPER_SCOUT_EVALUATOR_API_KEY", "from-env")
	t.Setenv("PAPER_SCOUT_CRAWL_TIMEOUT", "45s")

	cfg, err := Load(newViper(t, "crawl:\n  concurrency: 9\n"))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Crawl.Concurrency, "environment beats config file")
	assert.Equal(t, []string{"https://a.example/list", "https://b.example/list"}, cfg.Crawl.StartURLs)
	assert.False(t, cfg.Evaluator.Enabled)
	assert.Equal(t, "from-env", cfg.Evaluator.APIKey)
	assert.Equal(t, 45*time.Second, cfg.Crawl.Timeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Config)
		field  string
	}{
		{"no start urls", func(c *types.Config) { c.Crawl.StartURLs = nil }, "crawl.start_urls"},
		{"relative start url", func(c *types.Config) { c.Crawl.StartURLs = []string{"/list"} }, "crawl.start_urls"},
		{"negative concurrency", func(c *types.Config) { c.Crawl.Concurrency = -1 }, "crawl.concurrency"},
		{"negative rate", func(c *types.Config) { c.Crawl.RequestsPerSecond = -0.5 }, "crawl.requests_per_second"},
		{"negative page cap", func(c *types.Config) { c.Crawl.MaxListingPages = -3 }, "crawl.max_listing_pages"},
		{"bad pattern", func(c *types.Config) { c.Filter.Patterns = []string{"(unclosed"} }, "filter.patterns"},
		{"unknown provider", func(c *types.Config) { c.Evaluator.Provider = "cohere" }, "evaluator.provider"},
		{"bad cron", func(c *types.Config) { c.Schedule.Cron = "every monday" }, "schedule.cron"},
		{"bad log level", func(c *types.Config) { c.Log.Level = "loud" }, "log.level"},
	}

	require.NoError(t, Validate(Defaults()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			var ce *crawl.ConfigurationError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestResolveAPIKey(t *testing.T) {
	orig := secrets.DotEnvFile
	secrets.DotEnvFile = ""
	t.Cleanup(func() { secrets.DotEnvFile = orig })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "anthropic-api-key"), []byte("ak_file\n"), 0o600))

	t.Run("from secrets directory", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")
		cfg := Defaults()
		require.NoError(t, ResolveAPIKey(&cfg, dir, nil))
		assert.Equal(t, "ak_file", cfg.Evaluator.APIKey)
	})

	t.Run("configured key wins", func(t *testing.T) {
		cfg := Defaults()
		cfg.Evaluator.APIKey = "configured"
		require.NoError(t, ResolveAPIKey(&cfg, dir, nil))
		assert.Equal(t, "configured", cfg.Evaluator.APIKey)
	})

	t.Run("disabled evaluator is left alone", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "ak_env")
		cfg := Defaults()
		cfg.Evaluator.Enabled = false
		require.NoError(t, ResolveAPIKey(&cfg, dir, nil))
		assert.Empty(t, cfg.Evaluator.APIKey)
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "")
		cfg := Defaults()
		require.NoError(t, ResolveAPIKey(&cfg, t.TempDir(), nil))
		assert.Empty(t, cfg.Evaluator.APIKey)
	})
}

func TestDumpRedactsKey(t *testing.T) {
	cfg := Defaults()
	cfg.Evaluator.APIKey = "sk-secret"

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, cfg))
	assert.NotContains(t, buf.String(), "sk-secret")
	assert.Contains(t, buf.String(), "<redacted>")

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Contains(t, back, "crawl")
	assert.Equal(t, "sk-secret", cfg.Evaluator.APIKey, "caller's config is unchanged")
}
