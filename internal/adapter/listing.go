package adapter

import (
	"context"
	"fmt"
	"html"
	"iter"
	"log/slog"
	"regexp"
	"strings"

	"github.com/amishk599/jobtrail/internal/model"
	"github.com/amishk599/jobtrail/internal/render"
)

// DefaultLinkSelectors are tried in order; the first that yields matching
// links wins.
var DefaultLinkSelectors = []string{
	"div.sMn82b a",
	"[data-job-id] a",
	".job-card a",
	"[role='listitem'] a",
	".job-listing a",
	"div[class*='job'] a",
}

// DefaultLinkPattern matches Google Careers result links.
const DefaultLinkPattern = `https?://(?:www\.google\.com/about/careers/applications|careers\.google\.com)/jobs/results/[^"'\s<>]+`

// ListingAdapter discovers posting links on a rendered listing page.
type ListingAdapter struct {
	name      string
	url       string
	company   string
	pattern   *regexp.Regexp
	selectors []string
	renderer  render.Renderer
	logger    *slog.Logger
}

var _ model.SourceEnumerator = (*ListingAdapter)(nil)

// NewListingAdapter compiles linkPattern (DefaultLinkPattern if empty). Nil or
// empty selectors fall back to DefaultLinkSelectors.
func NewListingAdapter(name, url, company, linkPattern string, selectors []string, renderer render.Renderer, logger *slog.Logger) (*ListingAdapter, error) {
	if linkPattern == "" {
		linkPattern = DefaultLinkPattern
	}
	re, err := regexp.Compile(linkPattern)
	if err != nil {
		return nil, fmt.Errorf("listing %s: link pattern: %w", name, err)
	}
	if len(selectors) == 0 {
		selectors = DefaultLinkSelectors
	}
	if name == "" {
		name = url
	}
	return &ListingAdapter{
		name:      name,
		url:       url,
		company:   company,
		pattern:   re,
		selectors: selectors,
		renderer:  renderer,
		logger:    logger,
	}, nil
}

func (a *ListingAdapter) Name() string           { return "listing/" + a.name }
func (a *ListingAdapter) Kind() model.SourceKind { return model.KindRendered }

// Enumerate loads the page once, collects links, then yields them. The
// rendering context is closed before the first candidate is yielded.
func (a *ListingAdapter) Enumerate(ctx context.Context) iter.Seq2[model.Candidate, error] {
	return func(yield func(model.Candidate, error) bool) {
		links, err := a.collect(ctx)
		if err != nil {
			yield(model.Candidate{}, unavailable(a.Name(), err))
			return
		}
		for _, link := range links {
			if !yield(model.Candidate{URL: link, Company: a.company}, nil) {
				return
			}
		}
	}
}

func (a *ListingAdapter) collect(ctx context.Context) ([]string, error) {
	page, err := a.renderer.Open(ctx, a.url)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if err := page.ScrollToBottom(ctx); err != nil {
		a.logger.Debug("scroll failed", "source", a.Name(), "error", err)
	}

	for _, sel := range a.selectors {
		hrefs, err := page.HrefsOf(sel)
		if err != nil {
			a.logger.Debug("link selector failed", "source", a.Name(), "selector", sel, "error", err)
			continue
		}
		if links := a.keep(hrefs); len(links) > 0 {
			a.logger.Debug("links found", "source", a.Name(), "selector", sel, "count", len(links))
			return links, nil
		}
	}

	doc, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("reading page html: %w", err)
	}
	matches := a.pattern.FindAllString(doc, -1)
	for i, m := range matches {
		matches[i] = html.UnescapeString(m)
	}
	links := a.keep(matches)
	a.logger.Debug("links found by page scan", "source", a.Name(), "count", len(links))
	return links, nil
}

// keep filters hrefs to pattern matches other than the listing page itself,
// deduplicated in first-seen order.
func (a *ListingAdapter) keep(hrefs []string) []string {
	self := strings.TrimRight(a.url, "/")
	seen := make(map[string]struct{}, len(hrefs))
	var out []string
	for _, h := range hrefs {
		h = strings.TrimSpace(h)
		if h == "" || strings.TrimRight(h, "/") == self || !a.pattern.MatchString(h) {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
