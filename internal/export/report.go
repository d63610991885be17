package export

import (
	"sort"
	"time"

	"github.com/fyrsmithlabs/assessd/internal/assessment"
	"github.com/fyrsmithlabs/assessd/internal/store"
	api "github.com/fyrsmithlabs/assessd/pkg/api/v1"
)

// Report is everything an export renders.
type Report struct {
	AssessmentID   string
	CreatedAt      time.Time
	StandardCode   string
	Sections       []Section
	TotalQuestions int
	RequiredCount  int
	AnsweredCount  int
}

// Section holds the questions of one clause.
type Section struct {
	ClauseRef   string
	ClauseTitle string
	Items       []Item
	Answered    int
}

// Item is one question with its answer, if any.
type Item struct {
	QuestionID       string
	Text             string
	Answer           *api.Value
	Required         bool
	EvidenceRequired bool
	Appendix         string
	Category         string
	CategoryCode     string
	CategoryName     string
}

// DisplayAnswer renders the answer, or blank when there is none.
func (i Item) DisplayAnswer(blank string) string {
	if i.Answer == nil || i.Answer.IsZero() {
		return blank
	}
	return i.Answer.String()
}

// Flags lists the markers printed under a question.
func (i Item) Flags() []string {
	var flags []string
	if i.Required {
		flags = append(flags, "Required")
	}
	if i.EvidenceRequired {
		flags = append(flags, "Evidence Required")
	}
	if i.CategoryCode != "" {
		flags = append(flags, "Category: "+i.CategoryCode)
	}
	return flags
}

const unknownStandard = "Unknown"

// BuildReport groups questions by clause in report order and attaches
// saved answers.
func BuildReport(a *store.Assessment, questions []store.Question, saved map[string]api.Value) *Report {
	r := &Report{
		AssessmentID: a.ID,
		CreatedAt:    a.CreatedAt,
		StandardCode: unknownStandard,
	}
	if a.Standard != nil && a.Standard.Code != "" {
		r.StandardCode = a.Standard.Code
	}

	index := make(map[string]int)
	for _, q := range questions {
		ref, title := "UNSPEC", "Unspecified"
		if q.Clause != nil {
			ref, title = q.Clause.Ref, q.Clause.Title
		}
		n, ok := index[ref]
		if !ok {
			n = len(r.Sections)
			index[ref] = n
			r.Sections = append(r.Sections, Section{ClauseRef: ref, ClauseTitle: title})
		}

		item := Item{
			QuestionID:       q.QuestionID,
			Text:             q.Text,
			Required:         q.Required,
			EvidenceRequired: q.EvidenceRequired,
			Appendix:         deref(q.Appendix),
			Category:         deref(q.Category),
			CategoryCode:     deref(q.CategoryCode),
			CategoryName:     deref(q.CategoryName),
		}
		if v, ok := saved[q.QuestionID]; ok {
			v := v
			item.Answer = &v
			r.Sections[n].Answered++
			r.AnsweredCount++
		}
		if q.Required {
			r.RequiredCount++
		}
		r.Sections[n].Items = append(r.Sections[n].Items, item)
		r.TotalQuestions++
	}

	sort.SliceStable(r.Sections, func(i, j int) bool {
		return assessment.CompareClauseRefs(r.Sections[i].ClauseRef, r.Sections[j].ClauseRef) < 0
	})
	return r
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
