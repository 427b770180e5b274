package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobtrail/internal/model"
	"github.com/amishk599/jobtrail/internal/ratelimit"
)

// Options controls pacing and concurrency of a run.
type Options struct {
	CandidateDelay time.Duration
	SourceDelay    time.Duration
	// Concurrent runs one worker per SourceKind instead of a single sequential pass.
	Concurrent bool
}

// Summary aggregates a whole run.
type Summary struct {
	RunID      string
	Started    time.Time
	Duration   time.Duration
	Sources    []SourceStats
	Candidates int
	Processed  int
	Duplicates int
	Filtered   int
	Failed     int
	SourceErrs int
	New        []model.JobPosting
}

// Skipped counts duplicates and filtered candidates together.
func (s Summary) Skipped() int { return s.Duplicates + s.Filtered }

func (s *Summary) add(st SourceStats) {
	s.Sources = append(s.Sources, st)
	s.Candidates += st.Candidates
	s.Processed += st.Processed
	s.Duplicates += st.Duplicates
	s.Filtered += st.Filtered
	s.Failed += st.Failed
	if st.Err != nil {
		s.SourceErrs++
	}
	s.New = append(s.New, st.New...)
}

// Orchestrator owns the sources and stages for a run. All dependencies are
// built once by the caller and shared by every run.
type Orchestrator struct {
	sources  []model.SourceEnumerator
	stages   Stages
	opts     Options
	notifier model.Notifier
	logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator. notifier may be nil.
func NewOrchestrator(sources []model.SourceEnumerator, stages Stages, opts Options, notifier model.Notifier, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		sources:  sources,
		stages:   stages,
		opts:     opts,
		notifier: notifier,
		logger:   logger,
	}
}

// RunOnce processes every source once and returns the summary. No source or
// candidate failure aborts the run.
func (o *Orchestrator) RunOnce(ctx context.Context) Summary {
	runID := uuid.NewString()
	logger := o.logger.With("run_id", runID)
	started := time.Now()

	logger.Info("run started", "sources", len(o.sources), "concurrent", o.opts.Concurrent)

	results := make([]SourceStats, len(o.sources))
	groups := o.partition()

	g, gctx := errgroup.WithContext(ctx)
	for _, idx := range groups {
		g.Go(func() error {
			o.work(gctx, idx, results, logger)
			return nil
		})
	}
	_ = g.Wait()

	sum := Summary{RunID: runID, Started: started}
	for _, st := range results {
		sum.add(st)
	}
	sum.Duration = time.Since(started)

	logger.Info("run finished",
		"candidates", sum.Candidates,
		"processed", sum.Processed,
		"skipped", sum.Skipped(),
		"duplicates", sum.Duplicates,
		"filtered", sum.Filtered,
		"failed", sum.Failed,
		"source_errors", sum.SourceErrs,
		"duration", sum.Duration.Round(time.Millisecond),
	)

	if o.notifier != nil && len(sum.New) > 0 {
		if err := o.notifier.Notify(sum.New); err != nil {
			logger.Error("notify failed", "error", err)
		}
	}
	return sum
}

// partition returns source indices per worker: one group in sequential mode,
// otherwise one group per kind in first-seen order.
func (o *Orchestrator) partition() [][]int {
	if !o.opts.Concurrent {
		all := make([]int, len(o.sources))
		for i := range all {
			all[i] = i
		}
		return [][]int{all}
	}

	var (
		order  []model.SourceKind
		byKind = make(map[model.SourceKind][]int)
	)
	for i, src := range o.sources {
		k := src.Kind()
		if _, ok := byKind[k]; !ok {
			order = append(order, k)
		}
		byKind[k] = append(byKind[k], i)
	}
	groups := make([][]int, 0, len(order))
	for _, k := range order {
		groups = append(groups, byKind[k])
	}
	return groups
}

// work runs the given sources in order on a private pipeline. Each index is
// written by exactly one worker.
func (o *Orchestrator) work(ctx context.Context, idx []int, results []SourceStats, logger *slog.Logger) {
	sp := NewSourcePipeline(o.stages, o.opts.CandidateDelay, logger)
	pacer := ratelimit.NewPacer(o.opts.SourceDelay)

	for _, i := range idx {
		src := o.sources[i]
		if err := pacer.Wait(ctx); err != nil {
			results[i] = SourceStats{Source: src.Name(), Kind: src.Kind(), Err: err}
			continue
		}
		results[i] = sp.Run(ctx, src)
		pacer.Done()
	}
}
