package filter

import (
	"regexp"
	"strings"

	"github.com/amishk599/jobtrail/internal/model"
)

var (
	seniorMarkers = []string{
		"senior", "sr.", "lead", "staff", "principal", "manager", "director",
		"architect", "vp", "head of", "chief", "executive",
	}
	earlyCareerKeywords = []string{
		"intern", "internship", "new grad", "new graduate", "associate", "junior",
		"entry level", "entry-level", "rotational", "co-op", "fellow", "apprentice",
	}
	basicRoles = []string{"engineer", "developer", "analyst", "specialist", "coordinator"}

	levelToken     = regexp.MustCompile(`\b(i|ii|iii|1|2|3)\b`)
	highExperience = regexp.MustCompile(`\b(5|6|7|8|9|10)\+?\s*(years?|yrs?)\b`)
)

// RoleLevel accepts early-career titles and rejects senior ones.
//
// Order matters: a senior marker rejects even if an early-career keyword is
// also present ("Senior Associate"), and a level token only counts when no
// senior marker was found.
type RoleLevel struct{}

func (RoleLevel) Match(f model.JobFields) bool {
	title := strings.ToLower(model.Value(f.Title))
	if title == "" {
		return false
	}
	if containsAny(title, seniorMarkers) {
		return false
	}
	if containsAny(title, earlyCareerKeywords) {
		return true
	}
	if levelToken.MatchString(title) {
		return true
	}
	if containsAny(title, basicRoles) {
		return !highExperience.MatchString(title)
	}
	return false
}
