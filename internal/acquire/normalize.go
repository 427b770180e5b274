package acquire

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	multiSpace = regexp.MustCompile(` {2,}`)
	lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Normalize collapses page text into one fragment per line. Compatibility
// forms (non-breaking and em spaces, full-width letters) are folded first,
// then each line is trimmed and split on runs of two or more spaces, and
// empty fragments are dropped. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	s = lineBreaks.Replace(norm.NFKC.String(s))

	var out []string
	for _, line := range strings.Split(s, "\n") {
		for _, frag := range multiSpace.Split(strings.TrimSpace(line), -1) {
			if frag = strings.TrimSpace(frag); frag != "" {
				out = append(out, frag)
			}
		}
	}
	return strings.Join(out, "\n")
}
