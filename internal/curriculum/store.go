package curriculum

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/oumizumi/Kairo-sub002/internal/datasource"
)

const indexKey = "index"

// Store fetches curriculum documents once and keeps them for the life of the process.
type Store struct {
	src       datasource.Source
	indexPath string
	dir       string
	cache     *gocache.Cache
	group     singleflight.Group
	logger    *zap.Logger
}

// NewStore creates a Store reading indexPath and curriculum files below dir.
func NewStore(src datasource.Source, indexPath, dir string, logger *zap.Logger) *Store {
	return &Store{
		src:       src,
		indexPath: indexPath,
		dir:       dir,
		cache:     gocache.New(gocache.NoExpiration, 0),
		logger:    logger,
	}
}

// LoadProgramIndex returns the program index, fetching it on first use.
// Concurrent first callers share one fetch.
func (s *Store) LoadProgramIndex(ctx context.Context) ([]Program, error) {
	if v, ok := s.cache.Get(indexKey); ok {
		return v.([]Program), nil
	}

	v, err, _ := s.group.Do(indexKey, func() (interface{}, error) {
		if v, ok := s.cache.Get(indexKey); ok {
			return v, nil
		}
		body, _, err := s.src.Fetch(ctx, s.indexPath)
		if err != nil {
			return nil, &IndexLoadError{Path: s.indexPath, Err: err}
		}
		var doc struct {
			Programs *[]Program `json:"programs"`
		}
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, &IndexLoadError{Path: s.indexPath, Err: err}
		}
		if doc.Programs == nil {
			return nil, &IndexLoadError{Path: s.indexPath, Err: errors.New("missing programs array")}
		}
		programs := *doc.Programs
		s.cache.Set(indexKey, programs, gocache.NoExpiration)
		s.logger.Info("program index loaded", zap.Int("programs", len(programs)))
		return programs, nil
	})
	if err != nil {
		s.logger.Error("load program index failed", zap.Error(err))
		return nil, err
	}
	return v.([]Program), nil
}

// LoadCurriculumData returns the normalized curriculum stored in file.
func (s *Store) LoadCurriculumData(ctx context.Context, file string) (*CurriculumSequence, error) {
	file = strings.TrimSpace(file)
	if file == "" {
		return nil, &CurriculumLoadError{File: file, Err: errors.New("program has no curriculum file")}
	}
	key := "curriculum:" + file
	if v, ok := s.cache.Get(key); ok {
		return v.(*CurriculumSequence), nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
		body, _, err := s.src.Fetch(ctx, path.Join(s.dir, file))
		if err != nil {
			return nil, &CurriculumLoadError{File: file, Err: err}
		}
		if !json.Valid(body) {
			return nil, &CurriculumLoadError{File: file, Err: errors.New("invalid JSON")}
		}
		seq := NormalizeCurriculum(body)
		s.cache.Set(key, &seq, gocache.NoExpiration)
		return &seq, nil
	})
	if err != nil {
		s.logger.Error("load curriculum failed", zap.String("file", file), zap.Error(err))
		return nil, err
	}
	return v.(*CurriculumSequence), nil
}

// ProgramByName finds a program by case-insensitive name.
func (s *Store) ProgramByName(ctx context.Context, name string) (*Program, error) {
	programs, err := s.LoadProgramIndex(ctx)
	if err != nil {
		return nil, err
	}
	for i := range programs {
		if strings.EqualFold(programs[i].Name, strings.TrimSpace(name)) {
			p := programs[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("program %q: %w", name, datasource.ErrNotFound)
}

// ProgramByID finds a program by id.
func (s *Store) ProgramByID(ctx context.Context, id string) (*Program, error) {
	programs, err := s.LoadProgramIndex(ctx)
	if err != nil {
		return nil, err
	}
	for i := range programs {
		if programs[i].ID == id {
			p := programs[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("program %q: %w", id, datasource.ErrNotFound)
}

// RequiredCourses returns the course list of one term of one study year.
func (s *Store) RequiredCourses(ctx context.Context, p Program, year int, term string) ([]CourseSequenceItem, error) {
	seq, err := s.LoadCurriculumData(ctx, p.File)
	if err != nil {
		return nil, err
	}
	ys, ok := seq.Year(year)
	if !ok {
		return nil, fmt.Errorf("%s year %d: %w", p.Name, year, ErrYearNotFound)
	}
	ts, ok := ys.Term(term)
	if !ok {
		return nil, fmt.Errorf("%s year %d %s: %w", p.Name, year, term, ErrTermNotFound)
	}
	return append([]CourseSequenceItem(nil), ts.Courses...), nil
}

// TermsForYear returns the terms a study year defines, in calendar order.
func (s *Store) TermsForYear(ctx context.Context, p Program, year int) ([]string, error) {
	seq, err := s.LoadCurriculumData(ctx, p.File)
	if err != nil {
		return nil, err
	}
	ys, ok := seq.Year(year)
	if !ok {
		return nil, fmt.Errorf("%s year %d: %w", p.Name, year, ErrYearNotFound)
	}
	terms := make([]string, 0, len(ys.Terms))
	for _, t := range ys.Terms {
		terms = append(terms, t.Term)
	}
	return terms, nil
}
