package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/amishk599/jobtrail/internal/acquire"
	"github.com/amishk599/jobtrail/internal/adapter"
	"github.com/amishk599/jobtrail/internal/config"
	"github.com/amishk599/jobtrail/internal/extract"
	"github.com/amishk599/jobtrail/internal/filter"
	"github.com/amishk599/jobtrail/internal/model"
	"github.com/amishk599/jobtrail/internal/notifier"
	"github.com/amishk599/jobtrail/internal/pipeline"
	"github.com/amishk599/jobtrail/internal/ratelimit"
	"github.com/amishk599/jobtrail/internal/render"
	"github.com/amishk599/jobtrail/internal/retry"
	"github.com/amishk599/jobtrail/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:           "jobtrail",
	Short:         "Collect job postings into an application tracker",
	Long:          "jobtrail discovers postings on company job boards and listing pages, extracts their fields, keeps the relevant ones and records each new posting once in the tracker.",
	SilenceUsage:  true,
	SilenceErrors: true,
	// `jobtrail` with no subcommand does a single run, which is what cron invokes.
	RunE: runRun,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBTRAIL_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig loads .env if present, resolves the config path and parses it.
// Priority: explicit path arg > JOBTRAIL_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if path == "" {
		if env := os.Getenv("JOBTRAIL_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// app holds what one command builds and must release: the store and, when
// any rendered work is configured, the browser.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	client   *http.Client
	store    model.PostingStore
	renderer *render.PlaywrightRenderer
}

// newApp opens the configured store (or a NopStore when dryRun is set) and
// launches the browser if withRenderer is true.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, dryRun, withRenderer bool) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{Timeout: 30 * time.Second},
	}

	if dryRun {
		a.store = store.NewNopStore()
	} else {
		s, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.store = s
	}

	if withRenderer {
		r, err := render.NewPlaywrightRenderer(render.Options{
			Headless:    cfg.Acquisition.Headless,
			NavTimeout:  cfg.Acquisition.NavTimeout,
			SettleDelay: cfg.Acquisition.SettleDelay,
			UserAgent:   cfg.Acquisition.UserAgent,
		}, logger)
		if err != nil {
			_ = a.store.Close()
			return nil, fmt.Errorf("start renderer: %w", err)
		}
		a.renderer = r
	}
	return a, nil
}

func (a *app) Close() {
	if a.renderer != nil {
		if err := a.renderer.Close(); err != nil {
			a.logger.Warn("close renderer", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", "error", err)
	}
}

// wantsRenderer reports whether a run over cfg's sources needs the browser.
func wantsRenderer(cfg *config.Config) bool {
	for _, s := range cfg.Sources {
		if s.Enabled && s.Platform == config.PlatformListing {
			return true
		}
	}
	return false
}

// stages builds the stage set for a run. The acquirer and extractor are only
// built when withExtraction is set; structured sources never need them.
func (a *app) stages(withExtraction bool) (pipeline.Stages, error) {
	st := pipeline.Stages{
		Filter: filter.New(a.cfg.Filters),
		Store:  a.store,
	}
	if !withExtraction {
		return st, nil
	}

	ec := a.cfg.Extraction
	if ec.APIKey == "" {
		return st, fmt.Errorf("extraction.api_key is not set and no %q entry found in the %s keyring", ec.Provider, config.KeyringService)
	}
	llmClient := &http.Client{Timeout: ec.Timeout}
	var provider extract.LLMProvider
	switch ec.Provider {
	case "gemini":
		provider = extract.NewGeminiProvider(ec.BaseURL, ec.APIKey, ec.Model, llmClient)
	default:
		provider = extract.NewOpenAIProvider(ec.BaseURL, ec.APIKey, ec.Model, llmClient)
	}
	st.Extractor = extract.NewExtractor(provider, extract.ExtractFieldsTemplate, ec.MaxChars, a.logger)

	ac := a.cfg.Acquisition
	fetcher := acquire.NewHTTPFetcher(&http.Client{Timeout: ac.HTTPTimeout}, ac.UserAgent)
	var r render.Renderer
	if ac.Render && a.renderer != nil {
		r = a.renderer
	}
	st.Acquirer = acquire.NewAcquirer(r, acquire.DefaultProbes(acquire.DefaultContentSelectors, ac.MinContentChars), fetcher, a.logger)
	return st, nil
}

// sources builds one enumerator per board token or listing URL. Every
// enumerator is wrapped in retry and then in the per-platform pacer.
func (a *app) sources() ([]model.SourceEnumerator, error) {
	pc := a.cfg.Pipeline
	platforms := ratelimit.NewKeyedPacer(pc.PlatformDelay)

	var out []model.SourceEnumerator
	add := func(platform string, e model.SourceEnumerator) {
		e = retry.NewRetryEnumerator(e, pc.Retries, pc.RetryDelay, a.logger)
		out = append(out, ratelimit.NewPacedEnumerator(e, platforms, platform))
		a.logger.Debug("registered source", "source", e.Name(), "kind", e.Kind())
	}

	for _, s := range a.cfg.Sources {
		if !s.Enabled {
			continue
		}
		switch s.Platform {
		case config.PlatformGreenhouse:
			// Greenhouse falls back to the board's company_name, then to the token.
			for _, token := range s.Companies {
				add(s.Platform, adapter.NewGreenhouseAdapter(token, s.Company, a.client))
			}
		case config.PlatformLever:
			for _, token := range s.Companies {
				add(s.Platform, adapter.NewLeverAdapter(token, companyName(s, token), a.client))
			}
		case config.PlatformAshby:
			for _, token := range s.Companies {
				add(s.Platform, adapter.NewAshbyAdapter(token, companyName(s, token), a.client))
			}
		case config.PlatformListing:
			if a.renderer == nil {
				return nil, fmt.Errorf("source %s: listing pages need the renderer", s.Name)
			}
			la, err := adapter.NewListingAdapter(s.Name, s.URL, s.Company, s.LinkPattern, s.LinkSelectors, a.renderer, a.logger)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", s.Name, err)
			}
			add(s.Platform, la)
		default:
			a.logger.Warn("unsupported platform, skipping", "source", s.Name, "platform", s.Platform)
		}
	}
	return out, nil
}

// companyName is the display name for a board: the configured company, or
// the board token itself.
func companyName(s config.SourceConfig, token string) string {
	if s.Company != "" {
		return s.Company
	}
	return token
}

func (a *app) options() pipeline.Options {
	return pipeline.Options{
		CandidateDelay: a.cfg.Pipeline.CandidateDelay,
		SourceDelay:    a.cfg.Pipeline.SourceDelay,
		Concurrent:     a.cfg.Pipeline.ConcurrentSources,
	}
}

// orchestrator wires sources, stages and the notifier for a full run.
func (a *app) orchestrator(n model.Notifier) (*pipeline.Orchestrator, error) {
	srcs, err := a.sources()
	if err != nil {
		return nil, err
	}
	if len(srcs) == 0 {
		return nil, errors.New("no sources to run")
	}
	st, err := a.stages(a.cfg.NeedsExtraction())
	if err != nil {
		return nil, err
	}
	return pipeline.NewOrchestrator(srcs, st, a.options(), n, a.logger), nil
}
