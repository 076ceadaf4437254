package dto

import "github.com/oumizumi/Kairo-sub002/internal/curriculum"

// ── programs & offerings ──

// ProgramMatchQuery GET /api/programs/match/
type ProgramMatchQuery struct {
	Q string `form:"q" binding:"required,max=200"`
}

// ProgramMatchResponse best fuzzy match
type ProgramMatchResponse struct {
	Query   string              `json:"query"`
	Program *curriculum.Program `json:"program"`
	Score   float64             `json:"score"`
	Hits    int                 `json:"hits"`
}

// CurriculumResponse a program with its normalized sequence
type CurriculumResponse struct {
	Program  curriculum.Program             `json:"program"`
	Sequence *curriculum.CurriculumSequence `json:"curriculum"`
}
