package importer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestMapHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    HeaderMap
	}{
		{
			name:    "canonical names",
			headers: []string{"question_id", "clause_ref", "text", "response_type", "required", "evidence_required", "appendix", "weight", "help_text"},
			want: HeaderMap{
				FieldQuestionID: 0, FieldClauseRef: 1, FieldText: 2, FieldResponseType: 3,
				FieldRequired: 4, FieldEvidenceRequired: 5, FieldAppendix: 6, FieldWeight: 7, FieldHelpText: 8,
			},
		},
		{
			name:    "synonyms with case and padding",
			headers: []string{" QID ", "Citation", "Prompt", "TYPE", "Mandatory", "requires_evidence", "Scope", "score_weight", "Guidance"},
			want: HeaderMap{
				FieldQuestionID: 0, FieldClauseRef: 1, FieldText: 2, FieldResponseType: 3,
				FieldRequired: 4, FieldEvidenceRequired: 5, FieldAppendix: 6, FieldWeight: 7, FieldHelpText: 8,
			},
		},
		{
			name:    "first matching column wins",
			headers: []string{"id", "question_id", "clause", "requirement", "question", "text"},
			want: HeaderMap{
				FieldQuestionID: 0, FieldClauseRef: 2, FieldText: 4,
			},
		},
		{
			name:    "unknown headers stay unmapped",
			headers: []string{"foo", "bar", "type"},
			want:    HeaderMap{FieldResponseType: 2},
		},
		{
			name:    "bom on first header",
			headers: []string{"\ufeffquestion_id", "clause"},
			want:    HeaderMap{FieldQuestionID: 0, FieldClauseRef: 1},
		},
		{
			name:    "category columns",
			headers: []string{"category", "category_code", "category_name"},
			want:    HeaderMap{FieldCategory: 0, FieldCategoryCode: 1, FieldCategoryName: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, MapHeaders(tt.headers)); diff != "" {
				t.Errorf("MapHeaders() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHeaderSynonyms_NoOverlap(t *testing.T) {
	owner := map[string]Field{}
	for field, synonyms := range HeaderSynonyms {
		for _, s := range synonyms {
			if prev, ok := owner[s]; ok {
				t.Errorf("synonym %q claimed by both %s and %s", s, prev, field)
			}
			owner[s] = field
		}
	}
}

func TestHeaderMap_Has(t *testing.T) {
	m := HeaderMap{FieldText: 0}
	assert.True(t, m.Has(FieldText))
	assert.False(t, m.Has(FieldWeight))
}
