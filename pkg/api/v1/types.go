// Package v1 holds the JSON wire types shared by the assessd server and its
// clients.
package v1

import "time"

// MaxBatchSize bounds the number of answers in one batch request.
const MaxBatchSize = 100

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// OKResponse is returned by GET /api/health.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string             `json:"error"`
	Message string             `json:"message,omitempty"`
	Details []*ValidationError `json:"details,omitempty"`
	Logs    []string           `json:"logs,omitempty"`
}

// ImportSummary carries the counters of an import run.
type ImportSummary struct {
	Delimiter     string `json:"delimiter"`
	Imported      int    `json:"imported"`
	Skipped       int    `json:"skipped"`
	Duplicates    int    `json:"duplicates"`
	TotalDataRows int    `json:"totalDataRows"`
}

// ImportResponse is returned by POST /api/admin/import-questions.
type ImportResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Logs    []string          `json:"logs"`
	Report  *ImportSummary    `json:"report,omitempty"`
	Cover   *CoverageResponse `json:"coverage,omitempty"`
}

// CoverageResponse is returned by GET /api/admin/import-questions/coverage.
type CoverageResponse struct {
	Coverage map[string]int `json:"coverage"`
	Other    int            `json:"other"`
	Total    int            `json:"total"`
}

// CreateAssessmentRequest is the body of POST /api/assessments.
type CreateAssessmentRequest struct {
	StdCode string `json:"stdCode,omitempty"`
}

// AssessmentResponse describes a created assessment.
type AssessmentResponse struct {
	ID        string    `json:"id"`
	StdID     uint      `json:"stdId"`
	CreatedAt time.Time `json:"createdAt"`
}

// QuestionView is one question in the assessment listing, with its saved
// answer if any.
type QuestionView struct {
	ID               uint    `json:"id"`
	QuestionID       string  `json:"questionId"`
	Text             string  `json:"text"`
	Required         bool    `json:"required"`
	EvidenceRequired bool    `json:"evidenceRequired"`
	ResponseType     string  `json:"responseType"`
	Appendix         *string `json:"appendix"`
	Weight           float64 `json:"weight"`
	HelpText         *string `json:"helpText"`
	Category         *string `json:"category"`
	CategoryCode     *string `json:"category_code"`
	CategoryName     *string `json:"category_name"`
	Answer           *Value  `json:"answer,omitempty"`
}

// QuestionGroup holds the questions of one clause.
type QuestionGroup struct {
	ClauseRef   string         `json:"clauseRef"`
	ClauseTitle string         `json:"clauseTitle"`
	Questions   []QuestionView `json:"questions"`
}

// QuestionsResponse is returned by GET /api/assessments/:id/questions.
type QuestionsResponse struct {
	AssessmentID   string          `json:"assessmentId"`
	StandardCode   string          `json:"standardCode"`
	Groups         []QuestionGroup `json:"groups"`
	TotalQuestions int             `json:"totalQuestions"`
	RequiredCount  int             `json:"requiredCount"`
	AnsweredCount  int             `json:"answeredCount"`
}

// AnswerItem is one (questionId, value) pair in a batch.
type AnswerItem struct {
	QuestionID string `json:"questionId"`
	Value      *Value `json:"value"`
}

// BatchRequest is the body of POST /api/answers/:assessmentId/batch.
type BatchRequest struct {
	Answers []AnswerItem `json:"answers"`
}

// Validate enforces the batch schema: 1..MaxBatchSize items, each with a
// question id and a value.
func (r *BatchRequest) Validate() error {
	if n := len(r.Answers); n == 0 || n > MaxBatchSize {
		return NewValidationError("answers", "must contain between 1 and %d items, got %d", MaxBatchSize, n)
	}
	for i, item := range r.Answers {
		if item.QuestionID == "" {
			return NewValidationError("answers", "item %d: questionId is required", i)
		}
		if item.Value == nil || item.Value.IsZero() {
			return NewValidationError("answers", "item %d: value is required", i)
		}
	}
	return nil
}

// BatchResponse reports how many answers were written.
type BatchResponse struct {
	Upserted int `json:"upserted"`
}
