package store

import (
	"context"

	"github.com/amishk599/jobtrail/internal/model"
)

// NopStore is used in dry-run mode. It reports nothing as stored and accepts
// every write without keeping it, so each run sees every posting as new.
type NopStore struct{}

var _ model.PostingStore = NopStore{}

func NewNopStore() NopStore { return NopStore{} }

func (NopStore) Exists(context.Context, string) (bool, error) { return false, nil }
func (NopStore) Persist(context.Context, model.JobPosting) (model.PersistResult, error) {
	return model.Inserted, nil
}
func (NopStore) List(context.Context) ([]model.JobPosting, error)         { return nil, nil }
func (NopStore) UpdateStatus(context.Context, string, model.Status) error { return nil }
func (NopStore) Close() error                                             { return nil }
