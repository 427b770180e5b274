package filter

import (
	"strings"

	"github.com/amishk599/jobtrail/internal/model"
)

var keywordBasicRoles = []string{"engineer", "developer", "analyst", "specialist"}

// KeywordPredicate is the configurable alternative to RoleLevel+Geography.
// Each list is optional; an empty list turns its check off.
type KeywordPredicate struct {
	include   []string
	exclude   []string
	locations []string
}

// NewKeywordPredicate returns a predicate over title keywords and location substrings.
func NewKeywordPredicate(include, exclude, locations []string) *KeywordPredicate {
	return &KeywordPredicate{include: include, exclude: exclude, locations: locations}
}

func (k *KeywordPredicate) Match(f model.JobFields) bool {
	title := strings.ToLower(model.Value(f.Title))

	if containsAny(title, k.exclude) {
		return false
	}

	if len(k.include) > 0 && !containsAny(title, k.include) && !containsAny(title, keywordBasicRoles) {
		return false
	}

	if len(k.locations) > 0 && !containsAny(strings.ToLower(model.Value(f.Location)), k.locations) {
		return false
	}

	return true
}
