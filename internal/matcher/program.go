// Package matcher maps free-text phrases to programs, course codes, study
// years and terms.
package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/oumizumi/Kairo-sub002/internal/curriculum"
)

// exactScore is returned by ScoreProgram for exact name or code matches.
const exactScore = 1000

var stopwords = map[string]struct{}{
	"in": {}, "of": {}, "and": {}, "with": {}, "the": {}, "for": {}, "to": {}, "a": {}, "an": {},
	"year": {}, "yr": {}, "fall": {}, "winter": {}, "summer": {}, "spring": {}, "term": {},
	"co": {}, "coop": {}, "co-op": {}, "program": {}, "programme": {}, "degree": {},
	"bachelor": {}, "bachelors": {}, "honours": {}, "honors": {}, "major": {}, "minor": {},
	"my": {}, "me": {}, "make": {}, "schedule": {}, "generate": {}, "build": {}, "create": {},
	"plan": {}, "timetable": {}, "please": {}, "want": {}, "need": {}, "give": {}, "courses": {},
	"course": {}, "first": {}, "second": {}, "third": {}, "fourth": {}, "final": {}, "student": {},
}

// Match is a scored program candidate.
type Match struct {
	Program    curriculum.Program
	Score      float64
	Hits       int
	MultiBonus bool
}

// FindBestProgramMatch resolves query to a program name. ok is false when
// nothing scores above zero; callers should ask the user to clarify.
func FindBestProgramMatch(query string, programs []curriculum.Program) (string, bool) {
	m, ok := BestProgram(query, programs)
	if !ok {
		return "", false
	}
	return m.Program.Name, true
}

// BestProgram returns the highest scoring program for query.
func BestProgram(query string, programs []curriculum.Program) (Match, bool) {
	q := strings.TrimSpace(query)
	if q == "" || len(programs) == 0 {
		return Match{}, false
	}

	// 1. exact name
	for _, p := range programs {
		if strings.EqualFold(fold(p.Name), fold(q)) {
			return Match{Program: p, Score: exactScore}, true
		}
	}
	// 2. exact code
	for _, p := range programs {
		if p.Code != "" && strings.EqualFold(p.Code, q) {
			return Match{Program: p, Score: exactScore}, true
		}
	}

	terms := queryTerms(q)
	if len(terms) == 0 {
		return Match{}, false
	}

	var best Match
	found := false
	for _, p := range programs {
		m := scoreTerms(terms, p)
		if m.Score <= 0 {
			continue
		}
		if !found || m.Score > best.Score || (m.Score == best.Score && m.MultiBonus && !best.MultiBonus) {
			best = m
			found = true
		}
	}
	return best, found
}

// ScoreProgram scores query against one program.
func ScoreProgram(query string, p curriculum.Program) float64 {
	q := strings.TrimSpace(query)
	if q == "" {
		return 0
	}
	if strings.EqualFold(fold(p.Name), fold(q)) || (p.Code != "" && strings.EqualFold(p.Code, q)) {
		return exactScore
	}
	return scoreTerms(queryTerms(q), p).Score
}

func scoreTerms(terms []string, p curriculum.Program) Match {
	aliases := Aliases(p)
	nameTokens := toSet(Tokenize(p.Name))
	metaTokens := toSet(append(Tokenize(p.Faculty), Tokenize(p.Degree)...))

	m := Match{Program: p}
	for _, t := range terms {
		if _, ok := aliases[t]; ok {
			m.Hits++
		}
		if _, ok := metaTokens[t]; ok {
			m.Score += 0.5
		}
		if _, ok := nameTokens[t]; ok && len(t) >= 4 {
			m.Score += 5
		}
	}
	m.Score += float64(m.Hits)
	if m.Hits >= 2 {
		m.MultiBonus = true
		m.Score++
	}
	return m
}

// queryTerms returns the distinct significant tokens of query plus its
// whitespace-separated words and word pairs, so "cs/math", "cs math" and
// two-letter acronyms can meet the alias set.
func queryTerms(query string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := stopwords[s]; ok {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, t := range Tokenize(query) {
		add(t)
	}
	words := strings.Fields(strings.ToLower(fold(query)))
	for i, w := range words {
		w = strings.Trim(w, ".,;:!?\"'()")
		if len(w) >= 2 && !isNumeric(w) {
			add(w)
		}
		if i+1 < len(words) {
			next := strings.Trim(words[i+1], ".,;:!?\"'()")
			if _, stop := stopwords[w]; !stop && next != "" {
				if _, stop := stopwords[next]; !stop {
					add(w + " " + next)
				}
			}
		}
	}
	return out
}

// Tokenize splits on non-alphanumerics, strips diacritics and drops tokens
// shorter than three characters or in the stopword set.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(fold(s)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, ok := stopwords[f]; ok {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Aliases derives the alias set of a program from the structure of its name and code.
func Aliases(p curriculum.Program) map[string]struct{} {
	set := make(map[string]struct{})
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			set[s] = struct{}{}
		}
	}

	tokens := Tokenize(p.Name)

	// name tokens and their short prefixes
	for _, t := range tokens {
		add(t)
		if len(t) >= 5 {
			add(t[:3])
			add(t[:4])
		}
	}

	// whole-name and adjacent-pair acronyms
	if len(tokens) >= 2 {
		add(acronym(tokens))
		for i := 0; i+1 < len(tokens); i++ {
			add(acronym(tokens[i : i+2]))
			// "softeng", "compsci"
			add(shortForm(tokens[i]) + prefix(tokens[i+1], 3))
			add(shortForm(tokens[i]) + prefix(tokens[i+1], 4))
		}
	}

	// sub-phrase acronyms and joint-program concatenations
	parts := subPhrases(p.Name)
	if len(parts) >= 2 {
		forms := make([][]string, len(parts))
		for i, part := range parts {
			pt := Tokenize(part)
			if len(pt) == 0 {
				continue
			}
			if len(pt) >= 2 {
				add(acronym(pt))
				forms[i] = append(forms[i], acronym(pt))
			}
			forms[i] = append(forms[i], shortForm(pt[0]), pt[0])
		}
		for i := 0; i+1 < len(parts); i++ {
			for _, a := range forms[i] {
				for _, b := range forms[i+1] {
					add(a + b)
					add(a + " " + b)
					add(a + "+" + b)
					add(a + "/" + b)
				}
			}
		}
	}

	// program code and its parts
	if code := strings.ToLower(strings.TrimSpace(p.Code)); code != "" {
		add(code)
		for _, part := range strings.FieldsFunc(code, func(r rune) bool { return r == '/' || r == '+' }) {
			add(part)
		}
	}
	return set
}

func subPhrases(name string) []string {
	lower := " " + strings.ToLower(fold(name)) + " "
	lower = strings.NewReplacer(" and ", "|", "&", "|", "+", "|", ",", "|").Replace(lower)
	var out []string
	for _, p := range strings.Split(lower, "|") {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func acronym(tokens []string) string {
	var b strings.Builder
	for _, t := range tokens {
		r := []rune(t)
		if len(r) > 0 {
			b.WriteRune(r[0])
		}
	}
	return b.String()
}

// shortForm is the four-letter prefix of long tokens ("mathematics" → "math").
func shortForm(t string) string {
	if len(t) >= 5 {
		return prefix(t, 4)
	}
	return t
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// fold strips diacritics ("Génie" → "Genie").
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func toSet(list []string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, s := range list {
		set[s] = struct{}{}
	}
	return set
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
