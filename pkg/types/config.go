package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout bounds every single request, including reading the body.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-scout/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ListingSelectors are the CSS selectors used on listing pages.
type ListingSelectors struct {
	// EntryLink selects the entry elements; the first href-bearing anchor
	// inside each match is the detail-page link.
	EntryLink string `json:"entry_link" yaml:"entry_link" mapstructure:"entry_link"`

	// Pagination selects pagination anchors. The last match wins.
	Pagination string `json:"pagination" yaml:"pagination" mapstructure:"pagination"`
}

// DetailSelectors are the CSS selectors used on detail pages.
type DetailSelectors struct {
	// Title selects the heading that holds the title label and title text.
	Title string `json:"title" yaml:"title" mapstructure:"title"`

	// TitleLabel selects the label element inside Title.
	TitleLabel string `json:"title_label" yaml:"title_label" mapstructure:"title_label"`

	// TitleMarker is the expected label text (e.g. "Title:").
	TitleMarker string `json:"title_marker" yaml:"title_marker" mapstructure:"title_marker"`

	// Abstract selects the abstract block.
	Abstract string `json:"abstract" yaml:"abstract" mapstructure:"abstract"`

	// Authors selects the author links.
	Authors string `json:"authors" yaml:"authors" mapstructure:"authors"`

	// FullText selects the full-text links; the first href-bearing match is used.
	FullText string `json:"full_text" yaml:"full_text" mapstructure:"full_text"`
}

// CrawlConfig holds settings for the crawl stage.
type CrawlConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// StartURLs are the listing pages each crawl begins from.
	StartURLs []string `json:"start_urls" yaml:"start_urls" mapstructure:"start_urls"`

	// Concurrency is the maximum number of in-flight fetches (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// RequestsPerSecond paces outbound fetches. Zero disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`

	// MaxRetries is the number of backoff attempts on HTTP 429/503. Zero
	// means the default of 3; throttled fetches are always retried.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// MaxListingPages caps the listing pages followed per start URL. Zero
	// follows pagination until a page has no next link.
	MaxListingPages int `json:"max_listing_pages" yaml:"max_listing_pages" mapstructure:"max_listing_pages"`

	Listing ListingSelectors `json:"listing" yaml:"listing" mapstructure:"listing"`
	Detail  DetailSelectors  `json:"detail" yaml:"detail" mapstructure:"detail"`
}

// FilterConfig holds the relevance filter's configured terms.
type FilterConfig struct {
	// Keywords are literal words or phrases. Whitespace inside a phrase
	// matches any run of whitespace in the text.
	Keywords []string `json:"keywords" yaml:"keywords" mapstructure:"keywords"`

	// Patterns are additional raw regular expressions, matched case-insensitively.
	Patterns []string `json:"patterns,omitempty" yaml:"patterns,omitempty" mapstructure:"patterns"`
}

// EvaluatorProvider identifies the completion API the evaluator talks to.
type EvaluatorProvider string

const (
	ProviderAnthropic EvaluatorProvider = "anthropic"
	ProviderOpenAI    EvaluatorProvider = "openai"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-3-sonnet-20240229").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts for failed API calls (default 0).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// EvaluatorConfig holds settings for the optional LLM evaluation stage.
type EvaluatorConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// Enabled turns the stage on. An enabled stage without an API key is a
	// configuration error.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Provider selects the completion API: anthropic or openai.
	Provider EvaluatorProvider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// BaseURL overrides the provider's endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxTokens bounds the completion length (default 1024).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout bounds each completion call (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// Concurrency is the maximum number of in-flight completion calls (default 2).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// ReportConfig holds settings for the report writer.
type ReportConfig struct {
	// OutputDir is the directory report files are written to.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// TextFile is the human-readable report file name.
	TextFile string `json:"text_file" yaml:"text_file" mapstructure:"text_file"`

	// JSONFile is the machine-readable report file name.
	JSONFile string `json:"json_file" yaml:"json_file" mapstructure:"json_file"`

	// YAMLFile is an optional YAML report file name.
	YAMLFile string `json:"yaml_file,omitempty" yaml:"yaml_file,omitempty" mapstructure:"yaml_file"`

	// Archive is an optional SQLite database path recording every run.
	Archive string `json:"archive,omitempty" yaml:"archive,omitempty" mapstructure:"archive"`
}

// ScheduleConfig holds settings for recurring runs.
type ScheduleConfig struct {
	// Cron is a standard 5-field cron expression.
	Cron string `json:"cron" yaml:"cron" mapstructure:"cron"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Development switches to a human-readable console encoder.
	Development bool `json:"development" yaml:"development" mapstructure:"development"`
}

// Config groups all stage configurations.
type Config struct {
	Crawl     CrawlConfig     `json:"crawl" yaml:"crawl" mapstructure:"crawl"`
	Filter    FilterConfig    `json:"filter" yaml:"filter" mapstructure:"filter"`
	Evaluator EvaluatorConfig `json:"evaluator" yaml:"evaluator" mapstructure:"evaluator"`
	Report    ReportConfig    `json:"report" yaml:"report" mapstructure:"report"`
	Schedule  ScheduleConfig  `json:"schedule" yaml:"schedule" mapstructure:"schedule"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}
