package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	supabase "github.com/nedpals/supabase-go"

	"github.com/amishk599/jobtrail/internal/model"
)

// supabaseRow mirrors the hosted tracker table, whose columns are title-cased.
type supabaseRow struct {
	Title     string  `json:"Title"`
	Company   string  `json:"Company"`
	Location  string  `json:"Location"`
	Salary    *string `json:"Salary"`
	Type      *string `json:"Type"`
	URL       string  `json:"URL"`
	Status    string  `json:"Status"`
	DateAdded string  `json:"Date Added"`
}

// SupabaseStore persists postings through the Supabase REST API.
type SupabaseStore struct {
	client *supabase.Client
	table  string
}

var _ model.PostingStore = (*SupabaseStore)(nil)

func NewSupabaseStore(url, key, table string) (*SupabaseStore, error) {
	if url == "" || key == "" {
		return nil, fmt.Errorf("supabase url and key must be provided")
	}
	if table == "" {
		table = "job_applications"
	}
	return &SupabaseStore{client: supabase.CreateClient(url, key), table: table}, nil
}

// Exists treats any returned row as a match.
func (s *SupabaseStore) Exists(_ context.Context, url string) (bool, error) {
	var rows []supabaseRow
	if err := s.client.DB.From(s.table).Select("URL").Eq("URL", url).Execute(&rows); err != nil {
		return false, fmt.Errorf("checking existence of %s: %w", url, err)
	}
	return len(rows) > 0, nil
}

func (s *SupabaseStore) Persist(_ context.Context, p model.JobPosting) (model.PersistResult, error) {
	if p.Status == "" {
		p.Status = model.StatusNotApplied
	}
	if p.DateAdded.IsZero() {
		p.DateAdded = time.Now()
	}

	row := supabaseRow{
		Title:     p.Title,
		Company:   p.Company,
		Location:  p.Location,
		Salary:    model.Str(p.Salary),
		Type:      model.Str(p.JobType),
		URL:       p.URL,
		Status:    string(p.Status),
		DateAdded: p.DateAdded.UTC().Format(time.RFC3339),
	}

	var inserted []supabaseRow
	if err := s.client.DB.From(s.table).Insert(row).Execute(&inserted); err != nil {
		cause, dup := classifySupabase(err)
		if dup {
			return model.Duplicate, nil
		}
		return 0, &model.PersistError{Cause: cause, Err: fmt.Errorf("inserting %s: %w", p.URL, err)}
	}
	return model.Inserted, nil
}

func (s *SupabaseStore) List(_ context.Context) ([]model.JobPosting, error) {
	var rows []supabaseRow
	if err := s.client.DB.From(s.table).Select("*").Execute(&rows); err != nil {
		return nil, fmt.Errorf("listing postings: %w", err)
	}

	out := make([]model.JobPosting, 0, len(rows))
	for _, r := range rows {
		status, _ := model.ParseStatus(r.Status)
		added, _ := time.Parse(time.RFC3339, r.DateAdded)
		out = append(out, model.JobPosting{
			Title:     r.Title,
			Company:   r.Company,
			Location:  r.Location,
			Salary:    model.Value(r.Salary),
			JobType:   model.Value(r.Type),
			URL:       r.URL,
			Status:    status,
			DateAdded: added,
		})
	}
	return out, nil
}

func (s *SupabaseStore) UpdateStatus(_ context.Context, url string, status model.Status) error {
	var updated []supabaseRow
	err := s.client.DB.From(s.table).
		Update(map[string]string{"Status": string(status)}).
		Eq("URL", url).
		Execute(&updated)
	if err != nil {
		return fmt.Errorf("updating status for %s: %w", url, err)
	}
	if len(updated) == 0 {
		return fmt.Errorf("updating status for %s: %w", url, ErrNotFound)
	}
	return nil
}

func (s *SupabaseStore) Close() error { return nil }

// classifySupabase inspects the PostgREST error text, which carries the
// Postgres code or message but no typed error.
func classifySupabase(err error) (cause model.PersistCause, dup bool) {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "23505"), strings.Contains(msg, "duplicate key"):
		return "", true
	case strings.Contains(msg, "42501"), strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "row-level security"), strings.Contains(msg, "jwt"):
		return model.CausePermission, false
	case strings.Contains(msg, "22p02"), strings.Contains(msg, "23502"),
		strings.Contains(msg, "invalid input"), strings.Contains(msg, "violates not-null"):
		return model.CauseMalformed, false
	}
	return model.CauseUnknown, false
}
