package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/jobtrail/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePosting(url string) model.JobPosting {
	return model.JobPosting{
		Title:     "Software Engineer I",
		Company:   "Acme",
		Location:  "Remote",
		JobType:   "Full-time",
		URL:       url,
		Status:    model.StatusNotApplied,
		DateAdded: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPersistThenExists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.Persist(ctx, samplePosting("https://example.com/jobs/1"))
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if res != model.Inserted {
		t.Errorf("Persist result = %v, want inserted", res)
	}

	ok, err := s.Exists(ctx, "https://example.com/jobs/1")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("expected Exists to return true after Persist")
	}
}

func TestExistsUnknownReturnsFalse(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.Exists(context.Background(), "https://example.com/nope")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("expected Exists to return false for unknown URL")
	}
}

func TestPersistDuplicateKeepsOneRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := samplePosting("https://example.com/jobs/2")
	if _, err := s.Persist(ctx, first); err != nil {
		t.Fatalf("first Persist: %v", err)
	}

	second := first
	second.Title = "Changed Title"
	res, err := s.Persist(ctx, second)
	if err != nil {
		t.Fatalf("second Persist (duplicate): %v", err)
	}
	if res != model.Duplicate {
		t.Errorf("second Persist result = %v, want duplicate", res)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("List returned %d rows, want 1", len(all))
	}
	if all[0].Title != "Software Engineer I" {
		t.Errorf("Title = %q, duplicate write must not overwrite the stored row", all[0].Title)
	}
}

func TestPersistDefaultsStatusAndKeepsEmptyOptionalFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := samplePosting("https://example.com/jobs/3")
	p.Status = ""
	p.JobType = ""
	if _, err := s.Persist(ctx, p); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("List returned %d rows, want 1", len(all))
	}
	got := all[0]
	if got.Status != model.StatusNotApplied {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusNotApplied)
	}
	if got.Salary != "" || got.JobType != "" {
		t.Errorf("Salary = %q JobType = %q, want empty", got.Salary, got.JobType)
	}
	if got.Company != "Acme" || got.Location != "Remote" {
		t.Errorf("posting = %+v", got)
	}
}

func TestUpdateStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Persist(ctx, samplePosting("https://example.com/jobs/4")); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if err := s.UpdateStatus(ctx, "https://example.com/jobs/4", model.StatusInterviewing); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if all[0].Status != model.StatusInterviewing {
		t.Errorf("Status = %q, want %q", all[0].Status, model.StatusInterviewing)
	}

	err = s.UpdateStatus(ctx, "https://example.com/missing", model.StatusApplied)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStatus on missing URL: err = %v, want ErrNotFound", err)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s1, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if _, err := s1.Persist(ctx, samplePosting("https://example.com/jobs/5")); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	s1.Close()

	s2, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	ok, err := s2.Exists(ctx, "https://example.com/jobs/5")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("posting lost after reopening the database")
	}
}

func TestNopStore(t *testing.T) {
	s := NewNopStore()
	ctx := context.Background()

	if _, err := s.Persist(ctx, samplePosting("https://example.com/jobs/6")); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	ok, err := s.Exists(ctx, "https://example.com/jobs/6")
	if err != nil || ok {
		t.Errorf("Exists = %v, %v; want false, nil", ok, err)
	}
}
