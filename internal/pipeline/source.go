// Package pipeline drives candidates from enumeration through acquisition,
// extraction, filtering and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobtrail/internal/model"
	"github.com/amishk599/jobtrail/internal/ratelimit"
)

// Stages are the collaborators a candidate passes through. Acquirer and
// Extractor may be nil when every source is structured.
type Stages struct {
	Acquirer  model.ContentAcquirer
	Extractor model.FieldExtractor
	Filter    model.RelevanceFilter
	Store     model.PostingStore
}

// Outcome is the result of pushing one candidate through the stages.
type Outcome int

const (
	OutcomeProcessed Outcome = iota
	OutcomeDuplicate
	OutcomeFiltered
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeProcessed:
		return "processed"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeFiltered:
		return "filtered"
	default:
		return "failed"
	}
}

// SourceStats counts candidate outcomes for one source.
type SourceStats struct {
	Source     string
	Kind       model.SourceKind
	Candidates int
	Processed  int
	Duplicates int
	Filtered   int
	Failed     int
	Err        error // enumeration failure; candidates before it still count
	New        []model.JobPosting
}

// Skipped counts duplicates and filtered candidates together.
func (s SourceStats) Skipped() int { return s.Duplicates + s.Filtered }

func (s *SourceStats) record(o Outcome, p model.JobPosting) {
	s.Candidates++
	switch o {
	case OutcomeProcessed:
		s.Processed++
		s.New = append(s.New, p)
	case OutcomeDuplicate:
		s.Duplicates++
	case OutcomeFiltered:
		s.Filtered++
	case OutcomeFailed:
		s.Failed++
	}
}

// SourcePipeline processes one source at a time, one candidate at a time.
// It is not safe for concurrent use; the orchestrator gives each worker its own.
type SourcePipeline struct {
	stages Stages
	pacer  *ratelimit.Pacer
	now    func() time.Time
	logger *slog.Logger
}

// NewSourcePipeline creates a pipeline that waits candidateDelay after each
// candidate that got past the duplicate check before starting the next one.
func NewSourcePipeline(stages Stages, candidateDelay time.Duration, logger *slog.Logger) *SourcePipeline {
	return &SourcePipeline{
		stages: stages,
		pacer:  ratelimit.NewPacer(candidateDelay),
		now:    time.Now,
		logger: logger,
	}
}

// Run enumerates src and processes every candidate. A candidate failure
// never stops the source; an enumeration error ends it and is kept in Err.
func (p *SourcePipeline) Run(ctx context.Context, src model.SourceEnumerator) SourceStats {
	stats := SourceStats{Source: src.Name(), Kind: src.Kind()}
	logger := p.logger.With("source", src.Name())

	for c, err := range src.Enumerate(ctx) {
		if err != nil {
			stats.Err = err
			logger.Error("source enumeration failed", "error", err)
			break
		}
		outcome, posting := p.Process(ctx, c, logger)
		stats.record(outcome, posting)

		if ctx.Err() != nil {
			stats.Err = fmt.Errorf("%s: %w", src.Name(), ctx.Err())
			break
		}
	}

	logger.Info("source done",
		"candidates", stats.Candidates,
		"processed", stats.Processed,
		"duplicates", stats.Duplicates,
		"filtered", stats.Filtered,
		"failed", stats.Failed,
	)
	return stats
}

// Process runs a single candidate through dedup, acquire, extract, filter and
// persist. The posting is only meaningful for OutcomeProcessed.
func (p *SourcePipeline) Process(ctx context.Context, c model.Candidate, logger *slog.Logger) (Outcome, model.JobPosting) {
	logger = logger.With("url", c.URL)

	exists, err := p.stages.Store.Exists(ctx, c.URL)
	if err != nil {
		// The store's unique key still catches duplicates at persist time.
		logger.Warn("existence check failed", "stage", "dedup", "error", err)
	}
	if exists {
		logger.Debug("already stored", "stage", "dedup")
		return OutcomeDuplicate, model.JobPosting{}
	}

	if err := p.pacer.Wait(ctx); err != nil {
		logger.Warn("candidate skipped", "stage", "pace", "error", err)
		return OutcomeFailed, model.JobPosting{}
	}
	defer p.pacer.Done()

	if c.Department != "" || c.UpdatedAt != nil {
		attrs := []any{"stage", "enumerate", "department", c.Department}
		if c.UpdatedAt != nil {
			attrs = append(attrs, "updated_at", c.UpdatedAt.Format(time.RFC3339))
		}
		logger.Debug("candidate metadata", attrs...)
	}

	fields, err := p.fields(ctx, c, logger)
	if err != nil {
		return OutcomeFailed, model.JobPosting{}
	}

	if !p.stages.Filter.Match(fields) {
		logger.Debug("not relevant", "stage", "filter", "title", model.Value(fields.Title), "location", model.Value(fields.Location))
		return OutcomeFiltered, model.JobPosting{}
	}

	posting := fields.ToPosting(c.URL, c.Company, p.now())
	res, err := p.stages.Store.Persist(ctx, posting)
	if err != nil {
		cause := model.CauseUnknown
		var pe *model.PersistError
		if errors.As(err, &pe) {
			cause = pe.Cause
		}
		logger.Error("persist failed", "stage", "persist", "cause", cause, "error", err)
		return OutcomeFailed, model.JobPosting{}
	}
	if res == model.Duplicate {
		logger.Debug("already stored", "stage", "persist")
		return OutcomeDuplicate, model.JobPosting{}
	}

	logger.Info("new posting", "title", posting.Title, "company", posting.Company, "location", posting.Location)
	return OutcomeProcessed, posting
}

// fields returns the candidate's structured fields, or acquires and extracts
// them from the posting page.
func (p *SourcePipeline) fields(ctx context.Context, c model.Candidate, logger *slog.Logger) (model.JobFields, error) {
	if c.Fields != nil {
		return *c.Fields, nil
	}
	if p.stages.Acquirer == nil || p.stages.Extractor == nil {
		err := errors.New("no acquirer or extractor configured for unstructured candidate")
		logger.Error("candidate failed", "stage", "acquire", "error", err)
		return model.JobFields{}, err
	}

	res, err := p.stages.Acquirer.Acquire(ctx, c.URL)
	if err != nil {
		logger.Warn("candidate failed", "stage", "acquire", "error", err)
		return model.JobFields{}, err
	}

	fields, err := p.stages.Extractor.Extract(ctx, res.Text, c.URL)
	if err != nil {
		var pe *model.ParseError
		if errors.As(err, &pe) {
			logger.Warn("candidate failed", "stage", "extract", "error", err, "raw_len", len(pe.Raw))
		} else {
			logger.Warn("candidate failed", "stage", "extract", "error", err)
		}
		return model.JobFields{}, err
	}
	return fields, nil
}
