package planner

import (
	"sort"
	"strings"
	"sync"
)

// GenerationSession carries the state that makes repeated generations for one
// user vary: the iteration counter, the course colors of the current run and
// the sections already proposed per course. A session serializes the calls
// that use it.
type GenerationSession struct {
	mu sync.Mutex

	iteration  int
	themes     map[string]string
	usedThemes map[string]struct{}
	sections   map[string]map[string]struct{} // course → section ids
	combos     map[string]map[string]struct{} // course → selection keys
}

// NewGenerationSession creates an empty session.
func NewGenerationSession() *GenerationSession {
	s := &GenerationSession{}
	s.reset()
	return s
}

// Begin starts a generation run: theme state is cleared and the iteration
// counter advances. It returns the new iteration.
func (s *GenerationSession) Begin() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.begin()
}

// Iteration returns the number of runs started so far.
func (s *GenerationSession) Iteration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iteration
}

// Reset forgets everything, including previously proposed sections.
func (s *GenerationSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// PreviousSections returns the section ids proposed for course in earlier runs.
func (s *GenerationSession) PreviousSections(course string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sections[course]))
	for id := range s.sections[course] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *GenerationSession) reset() {
	s.iteration = 0
	s.themes = make(map[string]string)
	s.usedThemes = make(map[string]struct{})
	s.sections = make(map[string]map[string]struct{})
	s.combos = make(map[string]map[string]struct{})
}

func (s *GenerationSession) begin() int {
	s.iteration++
	s.themes = make(map[string]string)
	s.usedThemes = make(map[string]struct{})
	return s.iteration
}

// themeFor assigns course a color not used yet in this run while the palette lasts.
func (s *GenerationSession) themeFor(course string) string {
	if t, ok := s.themes[course]; ok {
		return t
	}
	available := make([]string, 0, len(Themes))
	for _, t := range Themes {
		if _, used := s.usedThemes[t]; !used {
			available = append(available, t)
		}
	}
	if len(available) == 0 {
		available = Themes
	}
	t := pickTheme(course, s.iteration, available)
	s.themes[course] = t
	s.usedThemes[t] = struct{}{}
	return t
}

func (s *GenerationSession) used(course string) (sections, combos map[string]struct{}) {
	return s.sections[course], s.combos[course]
}

func (s *GenerationSession) record(course string, c *candidate) {
	if s.sections[course] == nil {
		s.sections[course] = make(map[string]struct{})
		s.combos[course] = make(map[string]struct{})
	}
	for _, sec := range c.components {
		s.sections[course][sec.Section] = struct{}{}
	}
	s.combos[course][c.key()] = struct{}{}
}

func comboKey(ids []string) string {
	return strings.Join(ids, "+")
}
