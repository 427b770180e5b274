package render

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs installed browsers: go run github.com/playwright-community/playwright-go/cmd/playwright install chromium
func newBrowserRenderer(t *testing.T) *PlaywrightRenderer {
	t.Helper()
	if os.Getenv("JOBTRAIL_BROWSER_TESTS") == "" {
		t.Skip("set JOBTRAIL_BROWSER_TESTS=1 to run browser tests")
	}
	r, err := NewPlaywrightRenderer(Options{
		Headless:    true,
		NavTimeout:  10 * time.Second,
		SettleDelay: 200 * time.Millisecond,
		UserAgent:   "jobtrail-test",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestPlaywrightRenderer_ReadsRenderedPage(t *testing.T) {
	r := newBrowserRenderer(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, `<html><body>
			<div class="job-description" id="jd"></div>
			<a class="job" href="/jobs/1">One</a><a class="job" href="/jobs/2">Two</a>
			<script>document.getElementById("jd").innerText = "Rendered by script";</script>
		</body></html>`)
	}))
	defer srv.Close()

	page, err := r.Open(context.Background(), srv.URL)
	require.NoError(t, err)
	defer page.Close()

	texts, err := page.TextsOf(`[class*="job-description"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rendered by script"}, texts)

	hrefs, err := page.HrefsOf("a.job")
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/jobs/1", srv.URL + "/jobs/2"}, hrefs)
}

func TestPlaywrightRenderer_NavigationFailure(t *testing.T) {
	r := newBrowserRenderer(t)

	_, err := r.Open(context.Background(), "http://127.0.0.1:1/unreachable")
	assert.Error(t, err)
}
