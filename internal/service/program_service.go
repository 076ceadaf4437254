package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/oumizumi/Kairo-sub002/internal/curriculum"
	"github.com/oumizumi/Kairo-sub002/internal/datasource"
	"github.com/oumizumi/Kairo-sub002/internal/dto"
	"github.com/oumizumi/Kairo-sub002/internal/matcher"
	"github.com/oumizumi/Kairo-sub002/internal/offering"
	"github.com/oumizumi/Kairo-sub002/internal/planner"
)

var (
	ErrProgramNotFound   = errors.New("program not found")
	ErrProgramNotMatched = errors.New("no program matches the query")
	ErrTermNotOffered    = errors.New("no section data for this term")
	ErrCourseNotOffered  = errors.New("course is not offered in this term")
)

// ProgramService read-only program and section data
type ProgramService interface {
	List(ctx context.Context) ([]curriculum.Program, error)
	Match(ctx context.Context, query string) (*dto.ProgramMatchResponse, error)
	Curriculum(ctx context.Context, id string) (*dto.CurriculumResponse, error)
	// Offering returns the section groups of one course in a term.
	Offering(ctx context.Context, term, code string) (*offering.CourseGrouped, error)
}

type programService struct {
	curriculum CurriculumSource
	offerings  planner.Offerings
	logger     *zap.Logger
}

// NewProgramService creates a ProgramService
func NewProgramService(cur CurriculumSource, off planner.Offerings, logger *zap.Logger) ProgramService {
	return &programService{curriculum: cur, offerings: off, logger: logger}
}

func (s *programService) List(ctx context.Context) ([]curriculum.Program, error) {
	programs, err := s.curriculum.LoadProgramIndex(ctx)
	if err != nil {
		return nil, ErrCurriculumUnavailable
	}
	return programs, nil
}

func (s *programService) Match(ctx context.Context, query string) (*dto.ProgramMatchResponse, error) {
	programs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	m, ok := matcher.BestProgram(query, programs)
	if !ok {
		return nil, ErrProgramNotMatched
	}
	p := m.Program
	return &dto.ProgramMatchResponse{
		Query:   query,
		Program: &p,
		Score:   m.Score,
		Hits:    m.Hits,
	}, nil
}

func (s *programService) Curriculum(ctx context.Context, id string) (*dto.CurriculumResponse, error) {
	p, err := s.curriculum.ProgramByID(ctx, id)
	if err != nil {
		if errors.Is(err, datasource.ErrNotFound) {
			return nil, ErrProgramNotFound
		}
		return nil, ErrCurriculumUnavailable
	}
	seq, err := s.curriculum.LoadCurriculumData(ctx, p.File)
	if err != nil {
		return nil, ErrCurriculumUnavailable
	}
	return &dto.CurriculumResponse{Program: *p, Sequence: seq}, nil
}

func (s *programService) Offering(ctx context.Context, term, code string) (*offering.CourseGrouped, error) {
	canonical, ok := curriculum.CanonicalTerm(term)
	if !ok {
		canonical = term
	}
	off, err := s.offerings.Term(ctx, canonical)
	if err != nil {
		if errors.Is(err, offering.ErrTermNotFound) {
			return nil, ErrTermNotOffered
		}
		s.logger.Error("load term offerings failed", zap.String("term", term), zap.Error(err))
		return nil, err
	}
	course, ok := off.Course(matcher.NormalizeCourseCode(code))
	if !ok {
		return nil, fmt.Errorf("%s in %s: %w", code, off.Key, ErrCourseNotOffered)
	}
	return course, nil
}
