// Package render is the boundary between the pipeline and a scriptable
// browser. Callers open a Page per URL and must Close it on every path.
package render

import "context"

// Page is a loaded document whose dynamic content has had time to settle.
type Page interface {
	// URL is the address the page was opened with.
	URL() string
	// TextsOf returns the visible text of every element matching selector, in document order.
	TextsOf(selector string) ([]string, error)
	// BodyText returns the visible text of the whole page.
	BodyText() (string, error)
	// HrefsOf returns the resolved href of every element matching selector.
	HrefsOf(selector string) ([]string, error)
	// HTML returns the current serialized document.
	HTML() (string, error)
	// ScrollToBottom scrolls so lazily loaded content is requested.
	ScrollToBottom(ctx context.Context) error
	Close() error
}

// Renderer opens pages. Implementations bound every wait with a timeout.
type Renderer interface {
	Open(ctx context.Context, url string) (Page, error)
}
