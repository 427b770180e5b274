package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Options controls browser launch and per-page waits.
type Options struct {
	Headless    bool
	NavTimeout  time.Duration // bound for navigation and DOM readiness
	SettleDelay time.Duration // fixed wait for client-side rendering after DOM ready
	UserAgent   string
}

// PlaywrightRenderer drives one Chromium instance. Each Open gets a fresh
// browser context so cookies and storage never leak between postings.
type PlaywrightRenderer struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
	logger  *slog.Logger
}

var _ Renderer = (*PlaywrightRenderer)(nil)

// NewPlaywrightRenderer starts the driver and launches Chromium.
// The caller owns the renderer and must call Close.
func NewPlaywrightRenderer(opts Options, logger *slog.Logger) (*PlaywrightRenderer, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     []string{"--no-sandbox", "--disable-dev-shm-usage", "--disable-gpu"},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	return &PlaywrightRenderer{pw: pw, browser: browser, opts: opts, logger: logger}, nil
}

// Open navigates to url, waits for DOM readiness within NavTimeout, then
// waits SettleDelay. On any failure the browser context is closed before returning.
func (r *PlaywrightRenderer) Open(ctx context.Context, url string) (Page, error) {
	bctx, err := r.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(r.opts.UserAgent),
	})
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}

	page, err := r.load(ctx, bctx, url)
	if err != nil {
		if cerr := bctx.Close(); cerr != nil {
			r.logger.Debug("closing browser context", "url", url, "error", cerr)
		}
		return nil, err
	}
	return &playwrightPage{bctx: bctx, page: page, url: url, timeout: r.timeoutMs()}, nil
}

func (r *PlaywrightRenderer) load(ctx context.Context, bctx playwright.BrowserContext, url string) (playwright.Page, error) {
	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(r.timeoutMs()),
	}); err != nil {
		return nil, fmt.Errorf("navigate to %s: %w", url, err)
	}

	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(r.timeoutMs()),
	}); err != nil {
		return nil, fmt.Errorf("wait for dom ready on %s: %w", url, err)
	}

	if err := sleepCtx(ctx, r.opts.SettleDelay); err != nil {
		return nil, err
	}
	return page, nil
}

func (r *PlaywrightRenderer) timeoutMs() float64 {
	return float64(r.opts.NavTimeout.Milliseconds())
}

// Close shuts down the browser and the driver process.
func (r *PlaywrightRenderer) Close() error {
	return errors.Join(r.browser.Close(), r.pw.Stop())
}

type playwrightPage struct {
	bctx    playwright.BrowserContext
	page    playwright.Page
	url     string
	timeout float64
}

// URL is the address after redirects, or the requested one if the page has none.
func (p *playwrightPage) URL() string {
	if u := p.page.URL(); u != "" {
		return u
	}
	return p.url
}

func (p *playwrightPage) TextsOf(selector string) ([]string, error) {
	locs, err := p.page.Locator(selector).All()
	if err != nil {
		return nil, fmt.Errorf("locate %q: %w", selector, err)
	}
	texts := make([]string, 0, len(locs))
	for _, l := range locs {
		t, err := l.InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(p.timeout)})
		if err != nil {
			continue
		}
		texts = append(texts, t)
	}
	return texts, nil
}

func (p *playwrightPage) BodyText() (string, error) {
	t, err := p.page.Locator("body").InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(p.timeout)})
	if err != nil {
		return "", fmt.Errorf("read body text: %w", err)
	}
	return t, nil
}

func (p *playwrightPage) HrefsOf(selector string) ([]string, error) {
	res, err := p.page.Locator(selector).EvaluateAll("els => els.map(e => e.href || '')")
	if err != nil {
		return nil, fmt.Errorf("collect hrefs for %q: %w", selector, err)
	}
	items, _ := res.([]interface{})
	hrefs := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && s != "" {
			hrefs = append(hrefs, s)
		}
	}
	return hrefs, nil
}

func (p *playwrightPage) HTML() (string, error) {
	return p.page.Content()
}

func (p *playwrightPage) ScrollToBottom(ctx context.Context) error {
	if _, err := p.page.Evaluate("window.scrollTo(0, document.body.scrollHeight)"); err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return sleepCtx(ctx, time.Second)
}

func (p *playwrightPage) Close() error {
	return p.bctx.Close()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
