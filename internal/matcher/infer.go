package matcher

import (
	"regexp"
	"strings"

	"github.com/oumizumi/Kairo-sub002/internal/curriculum"
)

var yearPatterns = []struct {
	re   *regexp.Regexp
	year int
}{
	{regexp.MustCompile(`\b(first|1st)[\s-]+year\b|\b(year|yr)\s*(1|one)\b|\by1\b`), 1},
	{regexp.MustCompile(`\b(second|2nd)[\s-]+year\b|\b(year|yr)\s*(2|two)\b|\by2\b`), 2},
	{regexp.MustCompile(`\b(third|3rd)[\s-]+year\b|\b(year|yr)\s*(3|three)\b|\by3\b`), 3},
	{regexp.MustCompile(`\b(fourth|4th|final|senior)[\s-]+year\b|\b(year|yr)\s*(4|four)\b|\by4\b`), 4},
	{regexp.MustCompile(`\b(fifth|5th)[\s-]+year\b|\b(year|yr)\s*(5|five)\b`), 5},
}

// InferYear finds the study year mentioned in text.
func InferYear(text string) (int, bool) {
	lower := strings.ToLower(text)
	for _, p := range yearPatterns {
		if p.re.MatchString(lower) {
			return p.year, true
		}
	}
	return 0, false
}

var termPatterns = []struct {
	re   *regexp.Regexp
	term string
}{
	{regexp.MustCompile(`\b(fall|autumn|september|sept)\b`), curriculum.TermFall},
	{regexp.MustCompile(`\b(winter|january|jan)\b`), curriculum.TermWinter},
	{regexp.MustCompile(`\b(summer|spring|may|june|july)\b`), curriculum.TermSummer},
}

// InferTerm finds the term mentioned in text.
func InferTerm(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, p := range termPatterns {
		if p.re.MatchString(lower) {
			return p.term, true
		}
	}
	return "", false
}
