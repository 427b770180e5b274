package filter

import (
	"strings"

	"github.com/amishk599/jobtrail/internal/config"
	"github.com/amishk599/jobtrail/internal/model"
)

// Predicate is a single relevance rule. Predicates are combined with All.
type Predicate interface {
	Match(fields model.JobFields) bool
}

// PredicateFunc adapts a plain function to Predicate.
type PredicateFunc func(fields model.JobFields) bool

func (f PredicateFunc) Match(fields model.JobFields) bool { return f(fields) }

// All matches only when every predicate matches. An empty All matches everything.
type All []Predicate

var _ model.RelevanceFilter = All(nil)

func (a All) Match(fields model.JobFields) bool {
	for _, p := range a {
		if !p.Match(fields) {
			return false
		}
	}
	return true
}

// TitlePresent rejects postings with no title.
var TitlePresent = PredicateFunc(func(f model.JobFields) bool {
	return strings.TrimSpace(model.Value(f.Title)) != ""
})

// New builds the filter for the configured mode: role level plus geography
// for "early_career", or the keyword rules for "keywords".
func New(cfg config.FilterConfig) All {
	if cfg.Mode == config.FilterModeKeywords {
		return All{TitlePresent, NewKeywordPredicate(cfg.IncludeKeywords, cfg.ExcludeKeywords, cfg.Locations)}
	}
	locations := cfg.Locations
	if len(locations) == 0 {
		locations = DefaultLocations
	}
	return All{TitlePresent, RoleLevel{}, NewGeography(locations)}
}

// IsRelevant reports whether fields pass the filter described by cfg.
// It has no side effects and depends only on its arguments.
func IsRelevant(fields model.JobFields, cfg config.FilterConfig) bool {
	return New(cfg).Match(fields)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
