package acquire

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/amishk599/jobtrail/internal/render"
)

// DefaultContentSelectors lists content containers from most to least
// specific. Job-description classes come before generic layout containers.
var DefaultContentSelectors = []string{
	`[class*="job-description"]`,
	`[class*="job-details"]`,
	`[class*="position-description"]`,
	`[class*="role-description"]`,
	`[class*="career-description"]`,
	`main`,
	`article`,
	`[role="main"]`,
	`.content`,
	`#content`,
	`.job-content`,
	`.position-content`,
	`.description`,
	`[class*="description"]`,
}

// ContentProbe is one strategy for locating the posting text on a rendered page.
// ok=false means the strategy found nothing usable and the next one should run.
type ContentProbe interface {
	Name() string
	Probe(page render.Page) (text string, ok bool, err error)
}

// SelectorProbe takes the first element matching Selector whose visible text
// is longer than MinChars runes.
type SelectorProbe struct {
	Selector string
	MinChars int
}

func (p SelectorProbe) Name() string { return "selector " + p.Selector }

func (p SelectorProbe) Probe(page render.Page) (string, bool, error) {
	texts, err := page.TextsOf(p.Selector)
	if err != nil {
		return "", false, err
	}
	for _, t := range texts {
		if utf8.RuneCountInString(strings.TrimSpace(t)) > p.MinChars {
			return t, true, nil
		}
	}
	return "", false, nil
}

// WholePageProbe returns the visible text of the entire page.
type WholePageProbe struct{}

func (WholePageProbe) Name() string { return "whole page" }

func (WholePageProbe) Probe(page render.Page) (string, bool, error) {
	t, err := page.BodyText()
	if err != nil {
		return "", false, err
	}
	if strings.TrimSpace(t) == "" {
		return "", false, errors.New("page has no visible text")
	}
	return t, true, nil
}

// DefaultProbes returns one SelectorProbe per selector followed by WholePageProbe.
func DefaultProbes(selectors []string, minChars int) []ContentProbe {
	probes := make([]ContentProbe, 0, len(selectors)+1)
	for _, sel := range selectors {
		probes = append(probes, SelectorProbe{Selector: sel, MinChars: minChars})
	}
	return append(probes, WholePageProbe{})
}
