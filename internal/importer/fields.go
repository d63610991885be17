package importer

import "strings"

// Field is a canonical question attribute a CSV column can map to.
type Field string

// Canonical fields.
const (
	FieldQuestionID       Field = "questionId"
	FieldClauseRef        Field = "clauseRef"
	FieldText             Field = "text"
	FieldResponseType     Field = "responseType"
	FieldRequired         Field = "required"
	FieldEvidenceRequired Field = "evidenceRequired"
	FieldAppendix         Field = "appendix"
	FieldWeight           Field = "weight"
	FieldHelpText         Field = "helpText"
	FieldCategory         Field = "category"
	FieldCategoryCode     Field = "categoryCode"
	FieldCategoryName     Field = "categoryName"
)

// RequiredFields must be present and non-blank for a row to be imported.
var RequiredFields = []Field{FieldQuestionID, FieldClauseRef, FieldText, FieldResponseType}

// HeaderSynonyms lists the accepted header names for each field, compared
// after trimming and lowercasing.
var HeaderSynonyms = map[Field][]string{
	FieldQuestionID:       {"question_id", "id", "qid", "q_id"},
	FieldClauseRef:        {"clause_ref", "clause", "requirement", "citation"},
	FieldText:             {"text", "question", "prompt"},
	FieldResponseType:     {"response_type", "type"},
	FieldRequired:         {"required", "is_required", "mandatory"},
	FieldEvidenceRequired: {"evidence_required", "requires_evidence"},
	FieldAppendix:         {"appendix", "scope"},
	FieldWeight:           {"weight", "score_weight"},
	FieldHelpText:         {"help_text", "guidance"},
	FieldCategory:         {"category"},
	FieldCategoryCode:     {"category_code"},
	FieldCategoryName:     {"category_name"},
}

// HeaderMap maps each resolved field to its column index. Unmapped fields
// are absent.
type HeaderMap map[Field]int

const utf8BOM = "\ufeff"

// MapHeaders resolves a header row against HeaderSynonyms. For each field
// the first matching column wins.
func MapHeaders(headers []string) HeaderMap {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	m := make(HeaderMap, len(HeaderSynonyms))
	for field, synonyms := range HeaderSynonyms {
		for i, h := range normalized {
			if contains(synonyms, h) {
				m[field] = i
				break
			}
		}
	}
	return m
}

// Has reports whether field was mapped.
func (m HeaderMap) Has(field Field) bool {
	_, ok := m[field]
	return ok
}

// cell returns the trimmed value of field in record, or "" when the field
// is unmapped or the record is short.
func (m HeaderMap) cell(record []string, field Field) string {
	i, ok := m[field]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
