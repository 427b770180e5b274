package pipeline

import (
	"context"
	"iter"

	"github.com/amishk599/jobtrail/internal/model"
)

// URLSource yields a fixed list of posting URLs, for postings added by hand.
type URLSource struct {
	name    string
	urls    []string
	company string
}

var _ model.SourceEnumerator = (*URLSource)(nil)

func NewURLSource(name string, urls []string, company string) *URLSource {
	return &URLSource{name: name, urls: urls, company: company}
}

func (s *URLSource) Name() string           { return s.name }
func (s *URLSource) Kind() model.SourceKind { return model.KindRendered }

func (s *URLSource) Enumerate(context.Context) iter.Seq2[model.Candidate, error] {
	return func(yield func(model.Candidate, error) bool) {
		for _, u := range s.urls {
			if !yield(model.Candidate{URL: u, Company: s.company}, nil) {
				return
			}
		}
	}
}
