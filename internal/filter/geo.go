package filter

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/amishk599/jobtrail/internal/model"
)

// DefaultLocations is the allow-list used when no locations are configured:
// United States identifiers and major US metro names.
var DefaultLocations = []string{
	"united states", "united states of america", "usa", "us", "remote",
	"new york", "san francisco", "seattle", "austin", "boston", "chicago",
	"los angeles", "atlanta", "dallas", "houston", "miami", "denver",
	"phoenix", "philadelphia", "washington", "dc", "nashville", "portland",
	"san diego", "minneapolis", "detroit", "cleveland", "pittsburgh",
	"charlotte", "raleigh", "orlando", "tampa", "jacksonville", "columbus",
}

// Geography accepts remote postings and postings whose location names an
// allow-listed place as a whole word ("us" matches "Remote, US" but not "Columbus").
type Geography struct {
	patterns []*regexp.Regexp
}

// NewGeography compiles the allow-list. Entries are compared case- and
// accent-insensitively.
func NewGeography(allow []string) *Geography {
	g := &Geography{}
	for _, loc := range allow {
		loc = fold(loc)
		if loc == "" {
			continue
		}
		// Whole words on purpose: a plain substring test lets "us" match "Australia".
		g.patterns = append(g.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(loc)+`\b`))
	}
	return g
}

func (g *Geography) Match(f model.JobFields) bool {
	loc := fold(model.Value(f.Location))
	if loc == "" {
		return false
	}
	if strings.Contains(loc, "remote") {
		return true
	}
	for _, re := range g.patterns {
		if re.MatchString(loc) {
			return true
		}
	}
	return false
}

// fold lower-cases s and strips combining marks so "São Paulo" and
// "Sao Paulo" compare equal. transform.Chain is stateful, so each call builds its own.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
