package curriculum

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const yearsDoc = `{
  "programId": "seg",
  "programName": "Software Engineering",
  "years": [
    {"year": 2, "terms": [
      {"term": "Winter", "courses": ["SEG 2106 | Software Construction"]},
      {"term": "Fall", "courses": ["CSI2110 | Data Structures and Algorithms", {"code": "seg2105", "title": "Intro to SE"}]}
    ]},
    {"year": 1, "terms": [{"term": "Fall", "courses": ["ITI1100", "Elective | Any 1000-level course"]}]}
  ]
}`

const seasonKeyDoc = `{
  "years": [
    {"year": 1, "Fall": ["MAT1320 | Calculus I"], "Winter": ["MAT1322 | Calculus II"], "Summer": []}
  ]
}`

const requirementsDoc = `{
  "requirements": [
    {"year": "1st Year", "Fall": ["MAT 1341 | Linear Algebra"], "Winter": [], "Spring/Summer": ["PHY1121"]},
    {"year": "2nd Year", "Fall": ["Free elective"]},
    {"year": "1st Year", "Fall": ["MAT1341 | Linear Algebra", "CHM1311"]}
  ],
  "notes": "Co-op terms not shown"
}`

func TestNormalizeCurriculum_YearsFormat(t *testing.T) {
	got := NormalizeCurriculum([]byte(yearsDoc))

	want := CurriculumSequence{
		ProgramID:   "seg",
		ProgramName: "Software Engineering",
		Years: []YearSequence{
			{Year: 1, Terms: []TermSequence{
				{Term: "Fall", Courses: []CourseSequenceItem{
					{Code: "ITI1100"},
					{Code: "ELECTIVE", Title: "Any 1000-level course", IsElective: true},
				}},
			}},
			{Year: 2, Terms: []TermSequence{
				{Term: "Fall", Courses: []CourseSequenceItem{
					{Code: "CSI2110", Title: "Data Structures and Algorithms"},
					{Code: "SEG2105", Title: "Intro to SE"},
				}},
				{Term: "Winter", Courses: []CourseSequenceItem{
					{Code: "SEG2106", Title: "Software Construction"},
				}},
			}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NormalizeCurriculum mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeCurriculum_SeasonKeys(t *testing.T) {
	got := NormalizeCurriculum([]byte(seasonKeyDoc))
	if len(got.Years) != 1 || len(got.Years[0].Terms) != 2 {
		t.Fatalf("expected one year with two terms, got %+v", got.Years)
	}
	if got.Years[0].Terms[0].Term != "Fall" || got.Years[0].Terms[1].Term != "Winter" {
		t.Errorf("unexpected term order %+v", got.Years[0].Terms)
	}
}

func TestNormalizeCurriculum_Requirements(t *testing.T) {
	got := NormalizeCurriculum([]byte(requirementsDoc))

	want := CurriculumSequence{
		Notes: []string{"Co-op terms not shown"},
		Years: []YearSequence{
			{Year: 1, Terms: []TermSequence{
				{Term: "Fall", Courses: []CourseSequenceItem{
					{Code: "MAT1341", Title: "Linear Algebra"},
					{Code: "CHM1311"},
				}},
				{Term: "Summer", Courses: []CourseSequenceItem{{Code: "PHY1121"}}},
			}},
			{Year: 2, Terms: []TermSequence{
				{Term: "Fall", Courses: []CourseSequenceItem{{Code: "FREEELECTIVE", IsElective: true}}},
			}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("NormalizeCurriculum mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeCurriculum_Unrecognized(t *testing.T) {
	for _, raw := range []string{``, `not json`, `[]`, `{"foo": 1}`, `{"years": "nope"}`} {
		got := NormalizeCurriculum([]byte(raw))
		if got.Years == nil || len(got.Years) != 0 {
			t.Errorf("%q: expected empty non-nil years, got %#v", raw, got.Years)
		}
	}
}

func TestNormalizeCurriculum_Idempotent(t *testing.T) {
	for name, doc := range map[string]string{
		"years":        yearsDoc,
		"season keys":  seasonKeyDoc,
		"requirements": requirementsDoc,
	} {
		t.Run(name, func(t *testing.T) {
			first := NormalizeCurriculum([]byte(doc))
			encoded, err := json.Marshal(first)
			if err != nil {
				t.Fatal(err)
			}
			second := NormalizeCurriculum(encoded)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("second normalization changed the result (-first +second):\n%s", diff)
			}
		})
	}
}

func TestCanonicalTerm(t *testing.T) {
	tests := map[string]string{
		"fall": "Fall", "Autumn": "Fall", "WINTER": "Winter",
		"Spring/Summer": "Summer", "spring": "Summer", "summer": "Summer",
	}
	for in, want := range tests {
		if got, ok := CanonicalTerm(in); !ok || got != want {
			t.Errorf("CanonicalTerm(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := CanonicalTerm("co-op"); ok {
		t.Error("expected unknown season to be rejected")
	}
}
