package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amishk599/jobtrail/internal/model"
	"github.com/amishk599/jobtrail/internal/render"
)

var errNoProbeMatched = errors.New("no content probe matched")

// Acquirer implements model.ContentAcquirer with a two-step strategy chain:
// a rendered page read through the probes, then a plain HTTP fetch if the
// rendered step fails for any reason.
type Acquirer struct {
	renderer render.Renderer // nil disables the rendered step
	probes   []ContentProbe
	fetcher  *HTTPFetcher
	logger   *slog.Logger
}

var _ model.ContentAcquirer = (*Acquirer)(nil)

// NewAcquirer wires the strategy chain. renderer may be nil.
func NewAcquirer(renderer render.Renderer, probes []ContentProbe, fetcher *HTTPFetcher, logger *slog.Logger) *Acquirer {
	return &Acquirer{
		renderer: renderer,
		probes:   probes,
		fetcher:  fetcher,
		logger:   logger,
	}
}

// Acquire returns normalized text for url. The error wraps model.ErrAcquisition
// when every strategy failed.
func (a *Acquirer) Acquire(ctx context.Context, url string) (model.ExtractionResult, error) {
	var renderErr error
	if a.renderer != nil {
		text, err := a.rendered(ctx, url)
		if err == nil {
			if normalized := Normalize(text); normalized != "" {
				return model.ExtractionResult{URL: url, Text: normalized}, nil
			}
			err = errors.New("rendered page text empty after normalization")
		}
		renderErr = err
		a.logger.Warn("rendered acquisition failed, falling back to http", "url", url, "error", err)
	}

	text, err := a.fetcher.Fetch(ctx, url)
	if err == nil {
		if normalized := Normalize(text); normalized != "" {
			return model.ExtractionResult{URL: url, Text: normalized}, nil
		}
		err = errors.New("http page text empty after normalization")
	}

	if renderErr != nil {
		return model.ExtractionResult{}, fmt.Errorf("%w: %s: rendered: %v; http: %w", model.ErrAcquisition, url, renderErr, err)
	}
	return model.ExtractionResult{}, fmt.Errorf("%w: %s: %w", model.ErrAcquisition, url, err)
}

// rendered opens the page and runs the probes in order. The page is closed
// before returning on every path.
func (a *Acquirer) rendered(ctx context.Context, url string) (text string, err error) {
	page, err := a.renderer.Open(ctx, url)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			a.logger.Debug("closing rendered page", "url", url, "error", cerr)
		}
	}()
	a.logger.Debug("page rendered", "url", url, "final_url", page.URL())

	var lastErr error
	for _, p := range a.probes {
		t, ok, perr := p.Probe(page)
		if perr != nil {
			a.logger.Debug("content probe failed", "url", url, "probe", p.Name(), "error", perr)
			lastErr = perr
			continue
		}
		if ok {
			a.logger.Debug("content probe matched", "url", url, "probe", p.Name())
			return t, nil
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", errNoProbeMatched
}
