package model

import (
	"context"
	"iter"
	"strings"
	"time"
)

// Status tracks where the user is with an application. The core only ever
// writes StatusNotApplied; later transitions come from the review UI.
type Status string

const (
	StatusNotApplied   Status = "Not Applied"
	StatusApplied      Status = "Applied"
	StatusInterviewing Status = "Interviewing"
	StatusOffer        Status = "Offer"
)

var statusOrder = []Status{StatusNotApplied, StatusApplied, StatusInterviewing, StatusOffer}

// ParseStatus accepts the stored label or a loose spelling ("not_applied",
// "interviewing"). Unknown values map to StatusNotApplied and ok=false.
func ParseStatus(s string) (Status, bool) {
	key := strings.ToLower(strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(s)))
	for _, st := range statusOrder {
		if strings.ToLower(string(st)) == key {
			return st, true
		}
	}
	return StatusNotApplied, false
}

// Next cycles through the application stages, wrapping after Offer.
func (s Status) Next() Status {
	for i, st := range statusOrder {
		if st == s {
			return statusOrder[(i+1)%len(statusOrder)]
		}
	}
	return StatusNotApplied
}

// JobPosting is the persisted record. URL is the identity key.
type JobPosting struct {
	Title     string
	Company   string
	Location  string
	Salary    string
	JobType   string
	URL       string
	Status    Status
	DateAdded time.Time
}

// JobFields is the structured result of extraction or of a structured API
// listing. A nil pointer means the value was explicitly not found.
type JobFields struct {
	Title    *string
	Company  *string
	Location *string
	Salary   *string
	JobType  *string
}

// Str returns a pointer to s, or nil if s is blank.
func Str(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// Value dereferences a field pointer, treating nil as the empty string.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// ToPosting builds a new record from extracted fields. fallbackCompany fills
// in the company when the fields have none.
func (f JobFields) ToPosting(url, fallbackCompany string, now time.Time) JobPosting {
	company := Value(f.Company)
	if company == "" {
		company = fallbackCompany
	}
	return JobPosting{
		Title:     Value(f.Title),
		Company:   company,
		Location:  Value(f.Location),
		Salary:    Value(f.Salary),
		JobType:   Value(f.JobType),
		URL:       url,
		Status:    StatusNotApplied,
		DateAdded: now,
	}
}

// SourceKind separates sources that return structured data from sources that
// need a rendered page. The orchestrator may run one worker per kind.
type SourceKind string

const (
	KindStructured SourceKind = "structured"
	KindRendered   SourceKind = "rendered"
)

// CandidateSource identifies where candidates come from: a platform with a
// company board token, or a listing page URL.
type CandidateSource struct {
	Name     string
	Platform string
	Company  string // board token or company display name
	URL      string // listing page for rendered sources
}

// Candidate is one posting URL emitted by an enumerator. Structured sources
// fill Fields directly; rendered sources leave it nil.
type Candidate struct {
	URL        string
	Company    string // display name hint
	Department string
	UpdatedAt  *time.Time
	Fields     *JobFields
}

// ExtractionResult is normalized page text for a single URL.
type ExtractionResult struct {
	URL  string
	Text string
}

// PersistResult reports whether Persist stored a new row.
type PersistResult int

const (
	Inserted PersistResult = iota
	Duplicate
)

func (r PersistResult) String() string {
	if r == Duplicate {
		return "duplicate"
	}
	return "inserted"
}

// SourceEnumerator yields candidates for one source. Errors yielded before
// any candidate mean the source is unavailable.
type SourceEnumerator interface {
	Name() string
	Kind() SourceKind
	Enumerate(ctx context.Context) iter.Seq2[Candidate, error]
}

// ContentAcquirer turns a posting URL into normalized text.
type ContentAcquirer interface {
	Acquire(ctx context.Context, url string) (ExtractionResult, error)
}

// FieldExtractor pulls structured fields out of page text.
type FieldExtractor interface {
	Extract(ctx context.Context, text, sourceURL string) (JobFields, error)
}

// RelevanceFilter decides whether extracted fields are worth keeping.
type RelevanceFilter interface {
	Match(fields JobFields) bool
}

// PostingStore is both the deduplicator and the persister.
type PostingStore interface {
	Exists(ctx context.Context, url string) (bool, error)
	Persist(ctx context.Context, p JobPosting) (PersistResult, error)
	List(ctx context.Context) ([]JobPosting, error)
	UpdateStatus(ctx context.Context, url string, status Status) error
	Close() error
}

// Notifier reports newly stored postings.
type Notifier interface {
	Notify(postings []JobPosting) error
}
