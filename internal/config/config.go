package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// KeyringService groups jobtrail secrets in the OS keychain.
const KeyringService = "jobtrail"

// Config is the root configuration for a jobtrail run.
type Config struct {
	Sources      []SourceConfig
	Filters      FilterConfig
	Extraction   ExtractionConfig
	Acquisition  AcquisitionConfig
	Store        StoreConfig
	Pipeline     PipelineConfig
	Notification NotificationConfig
}

// Platforms understood by the source builder.
const (
	PlatformGreenhouse = "greenhouse"
	PlatformLever      = "lever"
	PlatformAshby      = "ashby"
	PlatformListing    = "listing"
)

// SourceConfig describes one source. Structured platforms list board tokens
// in Companies; the listing platform uses URL and optional link hints.
type SourceConfig struct {
	Name          string   `yaml:"name"`
	Platform      string   `yaml:"platform"`
	Companies     []string `yaml:"companies"`
	URL           string   `yaml:"url"`
	Company       string   `yaml:"company"`
	LinkPattern   string   `yaml:"link_pattern"`
	LinkSelectors []string `yaml:"link_selectors"`
	Enabled       bool     `yaml:"enabled"`
}

// Structured reports whether the source returns structured postings.
func (s SourceConfig) Structured() bool {
	return s.Platform != PlatformListing
}

const (
	FilterModeEarlyCareer = "early_career"
	FilterModeKeywords    = "keywords"
)

// FilterConfig selects and parameterizes the relevance rules.
type FilterConfig struct {
	Mode            string   `yaml:"mode"`
	Locations       []string `yaml:"locations"`
	IncludeKeywords []string `yaml:"include_keywords"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`
}

// ExtractionConfig controls the field-extraction service.
type ExtractionConfig struct {
	Provider string        // "openai" or "gemini"
	BaseURL  string
	Model    string
	APIKey   string        // expanded from env by Load, then keyring
	Timeout  time.Duration // per-request timeout
	MaxChars int           // text cap sent to the service
}

// AcquisitionConfig controls page rendering and the HTTP fallback.
type AcquisitionConfig struct {
	Render          bool
	Headless        bool
	NavTimeout      time.Duration
	SettleDelay     time.Duration
	MinContentChars int
	HTTPTimeout     time.Duration
	UserAgent       string
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverSupabase = "supabase"
)

// StoreConfig selects the posting store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
	URL    string `yaml:"url"`
	Key    string `yaml:"key"`
	Table  string `yaml:"table"`
}

// PipelineConfig controls pacing, retries and the daemon interval.
type PipelineConfig struct {
	CandidateDelay    time.Duration
	SourceDelay       time.Duration
	PlatformDelay     time.Duration // gap between boards hosted by the same platform
	ConcurrentSources bool
	Retries           int
	RetryDelay        time.Duration
	Interval          time.Duration
	LockFile          string
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Sources      []SourceConfig     `yaml:"sources"`
	Filters      FilterConfig       `yaml:"filters"`
	Extraction   rawExtraction      `yaml:"extraction"`
	Acquisition  rawAcquisition     `yaml:"acquisition"`
	Store        StoreConfig        `yaml:"store"`
	Pipeline     rawPipeline        `yaml:"pipeline"`
	Notification NotificationConfig `yaml:"notification"`
}

type rawExtraction struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	Timeout  string `yaml:"timeout"`
	MaxChars int    `yaml:"max_chars"`
}

type rawAcquisition struct {
	Render          *bool  `yaml:"render"`
	Headless        *bool  `yaml:"headless"`
	NavTimeout      string `yaml:"nav_timeout"`
	SettleDelay     string `yaml:"settle_delay"`
	MinContentChars int    `yaml:"min_content_chars"`
	HTTPTimeout     string `yaml:"http_timeout"`
	UserAgent       string `yaml:"user_agent"`
}

type rawPipeline struct {
	CandidateDelay    string `yaml:"candidate_delay"`
	SourceDelay       string `yaml:"source_delay"`
	PlatformDelay     string `yaml:"platform_delay"`
	ConcurrentSources bool   `yaml:"concurrent_sources"`
	Retries           *int   `yaml:"retries"`
	RetryDelay        string `yaml:"retry_delay"`
	Interval          string `yaml:"interval"`
	LockFile          string `yaml:"lock_file"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := &Config{
		Sources:      raw.Sources,
		Filters:      raw.Filters,
		Store:        raw.Store,
		Notification: raw.Notification,
	}
	if cfg.Filters.Mode == "" {
		cfg.Filters.Mode = FilterModeEarlyCareer
	}

	if cfg.Extraction, err = parseExtraction(raw.Extraction); err != nil {
		return nil, err
	}
	if cfg.Acquisition, err = parseAcquisition(raw.Acquisition); err != nil {
		return nil, err
	}
	if cfg.Pipeline, err = parsePipeline(raw.Pipeline); err != nil {
		return nil, err
	}

	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DriverSQLite
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "jobs.db"
	}
	if cfg.Store.Table == "" {
		cfg.Store.Table = "job_applications"
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseExtraction(raw rawExtraction) (ExtractionConfig, error) {
	ec := ExtractionConfig{
		Provider: strings.ToLower(raw.Provider),
		BaseURL:  raw.BaseURL,
		Model:    raw.Model,
		APIKey:   raw.APIKey,
		MaxChars: raw.MaxChars,
	}
	if ec.Provider == "" {
		ec.Provider = "openai"
	}
	if ec.MaxChars <= 0 {
		ec.MaxChars = 8000
	}
	switch ec.Provider {
	case "openai":
		if ec.BaseURL == "" {
			ec.BaseURL = defaultOpenAIBaseURL
		}
		if ec.Model == "" {
			ec.Model = "gpt-4o-mini"
		}
	case "gemini":
		if ec.BaseURL == "" {
			ec.BaseURL = defaultGeminiBaseURL
		}
		if ec.Model == "" {
			ec.Model = "gemini-1.5-flash"
		}
	}

	var err error
	if ec.Timeout, err = durationOr(raw.Timeout, 30*time.Second, "extraction.timeout"); err != nil {
		return ec, err
	}

	if ec.APIKey == "" {
		// Missing keychain entries are fine; commands that need a key check later.
		if key, kerr := keyring.Get(KeyringService, ec.Provider); kerr == nil {
			ec.APIKey = strings.TrimSpace(key)
		}
	}
	return ec, nil
}

func parseAcquisition(raw rawAcquisition) (AcquisitionConfig, error) {
	ac := AcquisitionConfig{
		Render:          true,
		Headless:        true,
		MinContentChars: raw.MinContentChars,
		UserAgent:       raw.UserAgent,
	}
	if raw.Render != nil {
		ac.Render = *raw.Render
	}
	if raw.Headless != nil {
		ac.Headless = *raw.Headless
	}
	if ac.MinContentChars <= 0 {
		ac.MinContentChars = 500
	}
	if ac.UserAgent == "" {
		ac.UserAgent = defaultUserAgent
	}

	var err error
	if ac.NavTimeout, err = durationOr(raw.NavTimeout, 10*time.Second, "acquisition.nav_timeout"); err != nil {
		return ac, err
	}
	if ac.SettleDelay, err = durationOr(raw.SettleDelay, 3*time.Second, "acquisition.settle_delay"); err != nil {
		return ac, err
	}
	if ac.HTTPTimeout, err = durationOr(raw.HTTPTimeout, 10*time.Second, "acquisition.http_timeout"); err != nil {
		return ac, err
	}
	return ac, nil
}

func parsePipeline(raw rawPipeline) (PipelineConfig, error) {
	pc := PipelineConfig{
		ConcurrentSources: raw.ConcurrentSources,
		Retries:           2,
		LockFile:          raw.LockFile,
	}
	if raw.Retries != nil {
		pc.Retries = *raw.Retries
	}
	if pc.LockFile == "" {
		pc.LockFile = "jobtrail.lock"
	}

	var err error
	if pc.CandidateDelay, err = durationOr(raw.CandidateDelay, 2*time.Second, "pipeline.candidate_delay"); err != nil {
		return pc, err
	}
	if pc.SourceDelay, err = durationOr(raw.SourceDelay, 3*time.Second, "pipeline.source_delay"); err != nil {
		return pc, err
	}
	if pc.PlatformDelay, err = durationOr(raw.PlatformDelay, time.Second, "pipeline.platform_delay"); err != nil {
		return pc, err
	}
	if pc.RetryDelay, err = durationOr(raw.RetryDelay, 5*time.Second, "pipeline.retry_delay"); err != nil {
		return pc, err
	}
	if pc.Interval, err = durationOr(raw.Interval, 6*time.Hour, "pipeline.interval"); err != nil {
		return pc, err
	}
	return pc, nil
}

func durationOr(s string, def time.Duration, field string) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return d, nil
}

func validate(cfg *Config) error {
	enabled := 0
	for i, s := range cfg.Sources {
		if !s.Enabled {
			continue
		}
		enabled++
		switch s.Platform {
		case PlatformGreenhouse, PlatformLever, PlatformAshby:
			if len(s.Companies) == 0 {
				return fmt.Errorf("sources[%d] (%s): companies is required for platform %q", i, s.Name, s.Platform)
			}
		case PlatformListing:
			if s.URL == "" {
				return fmt.Errorf("sources[%d] (%s): url is required for platform %q", i, s.Name, s.Platform)
			}
		default:
			return fmt.Errorf("sources[%d] (%s): unsupported platform %q", i, s.Name, s.Platform)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	switch cfg.Filters.Mode {
	case FilterModeEarlyCareer, FilterModeKeywords:
	default:
		return fmt.Errorf("filters.mode must be %q or %q, got %q", FilterModeEarlyCareer, FilterModeKeywords, cfg.Filters.Mode)
	}

	switch cfg.Extraction.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("extraction.provider must be \"openai\" or \"gemini\", got %q", cfg.Extraction.Provider)
	}

	switch cfg.Store.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when driver is %q", DriverPostgres)
		}
	case DriverSupabase:
		if cfg.Store.URL == "" || cfg.Store.Key == "" {
			return fmt.Errorf("store.url and store.key are required when driver is %q", DriverSupabase)
		}
	default:
		return fmt.Errorf("store.driver must be sqlite, postgres or supabase, got %q", cfg.Store.Driver)
	}

	if cfg.Pipeline.CandidateDelay < 0 || cfg.Pipeline.SourceDelay < 0 || cfg.Pipeline.PlatformDelay < 0 {
		return fmt.Errorf("pipeline delays must not be negative")
	}
	if cfg.Pipeline.Interval <= 0 {
		return fmt.Errorf("pipeline.interval must be positive, got %v", cfg.Pipeline.Interval)
	}

	if cfg.Notification.Type == "slack" {
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	}

	return nil
}

// NeedsExtraction reports whether any enabled source requires the extraction service.
func (c *Config) NeedsExtraction() bool {
	for _, s := range c.Sources {
		if s.Enabled && !s.Structured() {
			return true
		}
	}
	return false
}
