package service

import (
	"regexp"
	"strings"
)

var (
	clauseKeyword = regexp.MustCompile(`(?i)\s*\b(ORDER\s+BY|GROUP\s+BY|FROM|WHERE|HAVING)\b`)
	selectKeyword = regexp.MustCompile(`(?i)\bSELECT\b`)
	innerSpace    = regexp.MustCompile(`\s+`)
)

// FormatSQL starts FROM, WHERE, ORDER BY, GROUP BY and HAVING on a new line
// and upper-cases them along with SELECT. It works on raw text, so keywords
// inside string literals and comments are rewritten too. Applying it twice
// gives the same result as applying it once.
func FormatSQL(text string) string {
	out := selectKeyword.ReplaceAllString(text, "SELECT")

	var b strings.Builder
	last := 0
	for _, m := range clauseKeyword.FindAllStringSubmatchIndex(out, -1) {
		b.WriteString(out[last:m[0]])
		kw := innerSpace.ReplaceAllString(strings.ToUpper(out[m[2]:m[3]]), " ")
		if m[0] > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(kw)
		last = m[1]
	}
	b.WriteString(out[last:])
	return b.String()
}
