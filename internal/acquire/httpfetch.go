package acquire

import (
	"context"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobtrail/internal/model"
)

// blockElements get a trailing line break so their text does not run together.
const blockElements = "p, div, li, ul, ol, h1, h2, h3, h4, h5, h6, section, article, header, footer, tr, table, dd, dt, blockquote, pre"

// HTTPFetcher retrieves a page without a browser and extracts its markup text.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher. The client's Timeout bounds each fetch.
func NewHTTPFetcher(client *http.Client, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{client: client, userAgent: userAgent}
}

// Fetch GETs url and returns the visible text of its body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("http fetch %s: %w", url, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("http fetch %s: %w", url, &model.HTTPError{StatusCode: resp.StatusCode})
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("http fetch %s: parse html: %w", url, err)
	}
	return DocumentText(doc), nil
}

// DocumentText strips non-visible elements and returns the body text with
// block elements separated by newlines.
func DocumentText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, template, svg, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(blockElements).AppendHtml("\n")

	body := doc.Find("body")
	if body.Length() == 0 {
		return doc.Text()
	}
	return body.Text()
}
