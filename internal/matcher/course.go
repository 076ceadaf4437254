package matcher

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var courseCodePattern = regexp.MustCompile(`(?i)\b([a-z]{3,4})\s?(\d{4}[a-z]?)\b`)

// words that look like a subject prefix in "fall 2025" or "year 2024"
var notSubjects = map[string]struct{}{
	"YEAR": {}, "FALL": {}, "TERM": {}, "FROM": {}, "INTO": {}, "WITH": {}, "SINCE": {}, "THE": {}, "AND": {},
}

// NormalizeCourseCode removes whitespace and upper-cases ("csi 2110" → "CSI2110").
func NormalizeCourseCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}

// ExtractCourseCodes returns the distinct course codes mentioned in text, in order.
func ExtractCourseCodes(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range courseCodePattern.FindAllStringSubmatch(text, -1) {
		subject := strings.ToUpper(m[1])
		if _, ok := notSubjects[subject]; ok {
			continue
		}
		code := subject + strings.ToUpper(m[2])
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// SplitCourseCode splits a code into its subject letters and catalogue number.
// number is -1 when the code carries no digits.
func SplitCourseCode(code string) (subject string, number int) {
	norm := NormalizeCourseCode(code)
	i := 0
	for i < len(norm) && norm[i] >= 'A' && norm[i] <= 'Z' {
		i++
	}
	subject = norm[:i]
	j := i
	for j < len(norm) && norm[j] >= '0' && norm[j] <= '9' {
		j++
	}
	if j == i {
		return subject, -1
	}
	number, _ = strconv.Atoi(norm[i:j])
	return subject, number
}

// SimilarCourseCodes suggests up to limit available codes close to code:
// same subject ordered by catalogue-number distance, otherwise codes sharing
// the three-letter category prefix.
func SimilarCourseCodes(code string, available []string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	target := NormalizeCourseCode(code)
	subject, number := SplitCourseCode(target)
	if subject == "" {
		return nil
	}

	type candidate struct {
		code string
		dist int
	}
	var same []candidate
	for _, a := range available {
		a = NormalizeCourseCode(a)
		if a == target {
			continue
		}
		s, n := SplitCourseCode(a)
		if s != subject {
			continue
		}
		d := 1 << 30
		if number >= 0 && n >= 0 {
			d = abs(n - number)
		}
		same = append(same, candidate{a, d})
	}
	sort.SliceStable(same, func(i, j int) bool {
		if same[i].dist != same[j].dist {
			return same[i].dist < same[j].dist
		}
		return same[i].code < same[j].code
	})

	out := make([]string, 0, limit)
	for _, c := range same {
		if len(out) == limit {
			return out
		}
		out = append(out, c.code)
	}
	if len(out) > 0 {
		return out
	}

	category := prefix(subject, 3)
	var related []string
	for _, a := range available {
		a = NormalizeCourseCode(a)
		if a != target && strings.HasPrefix(a, category) {
			related = append(related, a)
		}
	}
	sort.Strings(related)
	if len(related) > limit {
		related = related[:limit]
	}
	return related
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
