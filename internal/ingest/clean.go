package ingest

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`[ \t]+`)
var blankLineRun = regexp.MustCompile(`\n{3,}`)

// clean collapses runs of horizontal whitespace and excess blank lines,
// and drops control characters other than \n and \t.
func clean(markdown string) string {
	var b strings.Builder
	b.Grow(len(markdown))
	for _, r := range markdown {
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	out := whitespaceRun.ReplaceAllString(b.String(), " ")
	out = blankLineRun.ReplaceAllString(out, "\n\n")
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
