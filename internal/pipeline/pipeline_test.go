package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amishk599/jobtrail/internal/config"
	"github.com/amishk599/jobtrail/internal/filter"
	"github.com/amishk599/jobtrail/internal/model"
)

// --- Fakes ---

// fakeSource yields canned candidates, then err if set.
type fakeSource struct {
	name  string
	kind  model.SourceKind
	cands []model.Candidate
	err   error
}

func (s *fakeSource) Name() string           { return s.name }
func (s *fakeSource) Kind() model.SourceKind { return s.kind }

func (s *fakeSource) Enumerate(context.Context) iter.Seq2[model.Candidate, error] {
	return func(yield func(model.Candidate, error) bool) {
		for _, c := range s.cands {
			if !yield(c, nil) {
				return
			}
		}
		if s.err != nil {
			yield(model.Candidate{}, s.err)
		}
	}
}

// countingAcquirer returns text per URL and counts calls.
type countingAcquirer struct {
	mu    sync.Mutex
	calls int
	texts map[string]string
}

func (a *countingAcquirer) Acquire(_ context.Context, url string) (model.ExtractionResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	text, ok := a.texts[url]
	if !ok {
		return model.ExtractionResult{}, model.ErrAcquisition
	}
	return model.ExtractionResult{URL: url, Text: text}, nil
}

// mapExtractor returns preset fields keyed by page text.
type mapExtractor struct {
	mu     sync.Mutex
	calls  int
	fields map[string]model.JobFields
}

func (e *mapExtractor) Extract(_ context.Context, text, _ string) (model.JobFields, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	f, ok := e.fields[text]
	if !ok {
		return model.JobFields{}, &model.ParseError{Raw: "garbage", Err: errors.New("no JSON object")}
	}
	return f, nil
}

// memStore is a map-backed PostingStore that counts Persist calls.
type memStore struct {
	mu        sync.Mutex
	rows      map[string]model.JobPosting
	persists  int
	existsErr error
	persistFn func(model.JobPosting) error
}

func newMemStore() *memStore { return &memStore{rows: make(map[string]model.JobPosting)} }

func (s *memStore) Exists(_ context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.rows[url]
	return ok, nil
}

func (s *memStore) Persist(_ context.Context, p model.JobPosting) (model.PersistResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persists++
	if s.persistFn != nil {
		if err := s.persistFn(p); err != nil {
			return 0, err
		}
	}
	if _, ok := s.rows[p.URL]; ok {
		return model.Duplicate, nil
	}
	s.rows[p.URL] = p
	return model.Inserted, nil
}

func (s *memStore) List(context.Context) ([]model.JobPosting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.JobPosting, 0, len(s.rows))
	for _, p := range s.rows {
		out = append(out, p)
	}
	return out, nil
}

func (s *memStore) UpdateStatus(context.Context, string, model.Status) error { return nil }
func (s *memStore) Close() error                                             { return nil }

// recordingNotifier records which postings were sent to Notify.
type recordingNotifier struct {
	notified []model.JobPosting
}

func (n *recordingNotifier) Notify(postings []model.JobPosting) error {
	n.notified = append(n.notified, postings...)
	return nil
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func structured(url, title, location string) model.Candidate {
	return model.Candidate{
		URL:     url,
		Company: "Acme",
		Fields: &model.JobFields{
			Title:    model.Str(title),
			Company:  model.Str("Acme"),
			Location: model.Str(location),
		},
	}
}

func earlyCareer() model.RelevanceFilter {
	return filter.New(config.FilterConfig{Mode: config.FilterModeEarlyCareer})
}

// --- Tests ---

func TestRunOnce_EndToEndThreePostings(t *testing.T) {
	src := &fakeSource{name: "greenhouse/acme", kind: model.KindStructured, cands: []model.Candidate{
		structured("https://x/1", "Senior Manager", "Remote"),
		structured("https://x/2", "Software Engineer I", "Remote"),
		structured("https://x/3", "Software Engineer I", "Berlin"),
	}}
	store := newMemStore()
	notifier := &recordingNotifier{}

	o := NewOrchestrator([]model.SourceEnumerator{src}, Stages{Filter: earlyCareer(), Store: store}, Options{}, notifier, discardLogger())
	sum := o.RunOnce(context.Background())

	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 2, sum.Skipped())
	assert.Equal(t, 0, sum.Failed)
	require.Len(t, store.rows, 1)

	p, ok := store.rows["https://x/2"]
	require.True(t, ok)
	assert.Equal(t, "Software Engineer I", p.Title)
	assert.Equal(t, "Remote", p.Location)
	assert.Equal(t, model.StatusNotApplied, p.Status)
	assert.False(t, p.DateAdded.IsZero())

	require.Len(t, notifier.notified, 1)
	assert.Equal(t, "https://x/2", notifier.notified[0].URL)
	assert.NotEmpty(t, sum.RunID)
}

func TestRunOnce_IdempotentRerun(t *testing.T) {
	src := &fakeSource{name: "listing/test", kind: model.KindRendered, cands: []model.Candidate{
		{URL: "https://x/a", Company: "Acme"},
		{URL: "https://x/b", Company: "Acme"},
	}}
	acq := &countingAcquirer{texts: map[string]string{"https://x/a": "page a", "https://x/b": "page b"}}
	ext := &mapExtractor{fields: map[string]model.JobFields{
		"page a": {Title: model.Str("Junior Developer"), Location: model.Str("Austin, TX")},
		"page b": {Title: model.Str("Software Engineer II"), Location: model.Str("Remote")},
	}}
	store := newMemStore()
	stages := Stages{Acquirer: acq, Extractor: ext, Filter: earlyCareer(), Store: store}

	first := NewOrchestrator([]model.SourceEnumerator{src}, stages, Options{}, nil, discardLogger()).RunOnce(context.Background())
	require.Equal(t, 2, first.Processed)
	require.Equal(t, 2, acq.calls)
	require.Equal(t, 2, ext.calls)
	require.Equal(t, 2, store.persists)

	second := NewOrchestrator([]model.SourceEnumerator{src}, stages, Options{}, nil, discardLogger()).RunOnce(context.Background())
	assert.Equal(t, 0, second.Processed)
	assert.Equal(t, 2, second.Duplicates)
	assert.Equal(t, 2, acq.calls, "rerun must not acquire stored URLs")
	assert.Equal(t, 2, ext.calls, "rerun must not extract stored URLs")
	assert.Equal(t, 2, store.persists, "rerun must not persist stored URLs")
}

func TestRun_CandidateFailuresDoNotStopSource(t *testing.T) {
	src := &fakeSource{name: "listing/test", kind: model.KindRendered, cands: []model.Candidate{
		{URL: "https://x/unreachable"},
		{URL: "https://x/garbled"},
		{URL: "https://x/good", Company: "Fallback Co"},
	}}
	acq := &countingAcquirer{texts: map[string]string{"https://x/garbled": "garbled", "https://x/good": "good"}}
	ext := &mapExtractor{fields: map[string]model.JobFields{
		"good": {Title: model.Str("Graduate Engineer"), Location: model.Str("Remote")},
	}}
	store := newMemStore()

	sp := NewSourcePipeline(Stages{Acquirer: acq, Extractor: ext, Filter: earlyCareer(), Store: store}, 0, discardLogger())
	st := sp.Run(context.Background(), src)

	assert.Equal(t, 3, st.Candidates)
	assert.Equal(t, 2, st.Failed)
	assert.Equal(t, 1, st.Processed)
	assert.NoError(t, st.Err)
	assert.Equal(t, "Fallback Co", store.rows["https://x/good"].Company, "company falls back to the candidate hint")
}

func TestRun_PersistFailureIsCandidateFailure(t *testing.T) {
	store := newMemStore()
	store.persistFn = func(p model.JobPosting) error {
		if p.URL == "https://x/1" {
			return &model.PersistError{Cause: model.CausePermission, Err: errors.New("row-level security")}
		}
		return nil
	}
	src := &fakeSource{name: "s", kind: model.KindStructured, cands: []model.Candidate{
		structured("https://x/1", "Junior Analyst", "Remote"),
		structured("https://x/2", "Junior Analyst", "Remote"),
	}}

	st := NewSourcePipeline(Stages{Filter: earlyCareer(), Store: store}, 0, discardLogger()).Run(context.Background(), src)
	assert.Equal(t, 1, st.Failed)
	assert.Equal(t, 1, st.Processed)
}

func TestRun_DuplicateAtPersistCountsAsSkipped(t *testing.T) {
	store := newMemStore()
	store.existsErr = errors.New("lookup unavailable")
	store.rows["https://x/1"] = model.JobPosting{URL: "https://x/1"}

	src := &fakeSource{name: "s", kind: model.KindStructured, cands: []model.Candidate{
		structured("https://x/1", "Junior Analyst", "Remote"),
	}}

	st := NewSourcePipeline(Stages{Filter: earlyCareer(), Store: store}, 0, discardLogger()).Run(context.Background(), src)
	assert.Equal(t, 1, st.Duplicates)
	assert.Equal(t, 0, st.Failed)
	assert.Equal(t, 1, store.persists)
}

func TestRun_UnstructuredWithoutExtractorFails(t *testing.T) {
	src := &fakeSource{name: "s", kind: model.KindRendered, cands: []model.Candidate{{URL: "https://x/1"}}}
	st := NewSourcePipeline(Stages{Filter: earlyCareer(), Store: newMemStore()}, 0, discardLogger()).Run(context.Background(), src)
	assert.Equal(t, 1, st.Failed)
}

func TestRunOnce_SourceErrorDoesNotStopOtherSources(t *testing.T) {
	broken := &fakeSource{name: "broken", kind: model.KindStructured, err: model.ErrSourceUnavailable}
	partial := &fakeSource{name: "partial", kind: model.KindStructured,
		cands: []model.Candidate{structured("https://x/p", "Entry Level Designer", "Remote")},
		err:   errors.New("page 2 failed"),
	}
	healthy := &fakeSource{name: "healthy", kind: model.KindStructured, cands: []model.Candidate{
		structured("https://x/h", "Associate Consultant", "New York, NY"),
	}}
	store := newMemStore()

	sum := NewOrchestrator([]model.SourceEnumerator{broken, partial, healthy}, Stages{Filter: earlyCareer(), Store: store}, Options{}, nil, discardLogger()).
		RunOnce(context.Background())

	assert.Equal(t, 2, sum.SourceErrs)
	assert.Equal(t, 2, sum.Processed)
	require.Len(t, sum.Sources, 3)
	assert.Equal(t, "broken", sum.Sources[0].Source)
	assert.ErrorIs(t, sum.Sources[0].Err, model.ErrSourceUnavailable)
}

func TestRunOnce_ConcurrentKindsKeepSourceOrder(t *testing.T) {
	a := &fakeSource{name: "api", kind: model.KindStructured, cands: []model.Candidate{structured("https://x/1", "Junior Developer", "Remote")}}
	b := &fakeSource{name: "page", kind: model.KindRendered, cands: []model.Candidate{structured("https://x/2", "Junior Developer", "Remote")}}
	c := &fakeSource{name: "api2", kind: model.KindStructured, cands: []model.Candidate{structured("https://x/3", "Junior Developer", "Remote")}}
	store := newMemStore()

	o := NewOrchestrator([]model.SourceEnumerator{a, b, c}, Stages{Filter: earlyCareer(), Store: store}, Options{Concurrent: true}, nil, discardLogger())
	assert.Equal(t, [][]int{{0, 2}, {1}}, o.partition())

	sum := o.RunOnce(context.Background())
	assert.Equal(t, 3, sum.Processed)
	require.Len(t, sum.Sources, 3)
	assert.Equal(t, []string{"api", "page", "api2"}, []string{sum.Sources[0].Source, sum.Sources[1].Source, sum.Sources[2].Source})
}

func TestRunOnce_SourceDelaySpacesSources(t *testing.T) {
	srcs := []model.SourceEnumerator{
		&fakeSource{name: "a", kind: model.KindStructured},
		&fakeSource{name: "b", kind: model.KindStructured},
	}
	o := NewOrchestrator(srcs, Stages{Filter: earlyCareer(), Store: newMemStore()}, Options{SourceDelay: 100 * time.Millisecond}, nil, discardLogger())

	start := time.Now()
	o.RunOnce(context.Background())
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

// timedSource sleeps for d while enumerating and records when it started and ended.
type timedSource struct {
	fakeSource
	d          time.Duration
	start, end time.Time
}

func (s *timedSource) Enumerate(ctx context.Context) iter.Seq2[model.Candidate, error] {
	return func(yield func(model.Candidate, error) bool) {
		s.start = time.Now()
		defer func() { s.end = time.Now() }()
		time.Sleep(s.d)
		for c, err := range s.fakeSource.Enumerate(ctx) {
			if !yield(c, err) {
				return
			}
		}
	}
}

func TestRunOnce_SourceDelayFollowsSlowSource(t *testing.T) {
	a := &timedSource{fakeSource: fakeSource{name: "a", kind: model.KindStructured}, d: 300 * time.Millisecond}
	b := &timedSource{fakeSource: fakeSource{name: "b", kind: model.KindStructured}}
	o := NewOrchestrator([]model.SourceEnumerator{a, b}, Stages{Filter: earlyCareer(), Store: newMemStore()},
		Options{SourceDelay: 200 * time.Millisecond}, nil, discardLogger())

	o.RunOnce(context.Background())
	assert.GreaterOrEqual(t, b.start.Sub(a.end), 180*time.Millisecond, "next source must wait the delay after a slow source ends")
}

// slowAcquirer takes d per page and records when each call started and ended.
type slowAcquirer struct {
	d      time.Duration
	starts []time.Time
	ends   []time.Time
}

func (a *slowAcquirer) Acquire(_ context.Context, url string) (model.ExtractionResult, error) {
	a.starts = append(a.starts, time.Now())
	time.Sleep(a.d)
	a.ends = append(a.ends, time.Now())
	return model.ExtractionResult{URL: url, Text: "page"}, nil
}

func TestRun_CandidateDelayFollowsSlowAcquisition(t *testing.T) {
	src := &fakeSource{name: "listing/test", kind: model.KindRendered, cands: []model.Candidate{
		{URL: "https://x/1"}, {URL: "https://x/2"},
	}}
	acq := &slowAcquirer{d: 150 * time.Millisecond}
	ext := &mapExtractor{fields: map[string]model.JobFields{"page": {Title: model.Str("Junior Developer"), Location: model.Str("Remote")}}}

	st := NewSourcePipeline(Stages{Acquirer: acq, Extractor: ext, Filter: earlyCareer(), Store: newMemStore()}, 100*time.Millisecond, discardLogger()).
		Run(context.Background(), src)

	require.Equal(t, 2, st.Candidates)
	require.Len(t, acq.starts, 2)
	assert.GreaterOrEqual(t, acq.starts[1].Sub(acq.ends[0]), 80*time.Millisecond)
}

func TestProcess_LogsCandidateMetadata(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	updated := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	c := structured("https://x/1", "Junior Developer", "Remote")
	c.Department = "Engineering"
	c.UpdatedAt = &updated

	sp := NewSourcePipeline(Stages{Filter: earlyCareer(), Store: newMemStore()}, 0, logger)
	outcome, _ := sp.Process(context.Background(), c, logger)

	assert.Equal(t, OutcomeProcessed, outcome)
	assert.Contains(t, buf.String(), "department=Engineering")
	assert.Contains(t, buf.String(), "updated_at=2026-02-13T10:00:00Z")
}

func TestURLSource(t *testing.T) {
	s := NewURLSource("manual", []string{"https://x/1", "https://x/2"}, "Acme")
	var urls []string
	for c, err := range s.Enumerate(context.Background()) {
		require.NoError(t, err)
		assert.Equal(t, "Acme", c.Company)
		urls = append(urls, c.URL)
	}
	assert.Equal(t, []string{"https://x/1", "https://x/2"}, urls)
	assert.Equal(t, model.KindRendered, s.Kind())
}
