package store

import (
	"time"

	"gorm.io/datatypes"
)

// StandardVersion is the root of a question bank.
type StandardVersion struct {
	ID      uint     `gorm:"primaryKey" json:"id"`
	Code    string   `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Name    string   `gorm:"size:255;not null" json:"name"`
	Clauses []Clause `gorm:"foreignKey:StdID" json:"clauses,omitempty"`
}

// Clause groups questions under a numbered section of a standard.
type Clause struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	Ref       string           `gorm:"size:64;uniqueIndex;not null" json:"ref"`
	Title     string           `gorm:"size:255;not null" json:"title"`
	StdID     uint             `gorm:"not null;index" json:"stdId"`
	Standard  *StandardVersion `gorm:"foreignKey:StdID;constraint:OnDelete:CASCADE" json:"-"`
	Questions []Question       `gorm:"foreignKey:ClauseID" json:"questions,omitempty"`
}

// Question is one prompt in the bank, keyed by its human-readable QuestionID.
type Question struct {
	ID               uint    `gorm:"primaryKey" json:"id"`
	QuestionID       string  `gorm:"column:question_id;size:64;uniqueIndex;not null" json:"questionId"`
	ClauseID         uint    `gorm:"not null;index" json:"clauseId"`
	Clause           *Clause `gorm:"foreignKey:ClauseID;constraint:OnDelete:CASCADE" json:"clause,omitempty"`
	Text             string  `gorm:"type:text;not null" json:"text"`
	ResponseType     string  `gorm:"size:32;not null" json:"responseType"`
	Required         bool    `gorm:"not null" json:"required"`
	EvidenceRequired bool    `gorm:"not null" json:"evidenceRequired"`
	Appendix         *string `gorm:"size:64" json:"appendix,omitempty"`
	Weight           float64 `gorm:"not null" json:"weight"`
	HelpText         *string `gorm:"type:text" json:"helpText,omitempty"`
	Category         *string `gorm:"size:255" json:"category,omitempty"`
	CategoryCode     *string `gorm:"column:category_code;size:64" json:"category_code,omitempty"`
	CategoryName     *string `gorm:"column:category_name;size:255" json:"category_name,omitempty"`
}

// Assessment binds one user session to a standard version. It is never
// re-bound after creation.
type Assessment struct {
	ID        string           `gorm:"primaryKey;size:36" json:"id"`
	StdID     uint             `gorm:"not null;index" json:"stdId"`
	Standard  *StandardVersion `gorm:"foreignKey:StdID" json:"-"`
	CreatedAt time.Time        `gorm:"not null" json:"createdAt"`
}

// Answer holds the saved value for one (assessment, question) pair.
type Answer struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	AssessmentID string         `gorm:"size:36;not null;uniqueIndex:idx_answers_assessment_question" json:"assessmentId"`
	Assessment   *Assessment    `gorm:"foreignKey:AssessmentID;constraint:OnDelete:CASCADE" json:"-"`
	QuestionID   uint           `gorm:"not null;uniqueIndex:idx_answers_assessment_question" json:"questionId"`
	Question     *Question      `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"-"`
	Value        datatypes.JSON `json:"value"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// QuestionRef pairs a question with the ref of its clause.
type QuestionRef struct {
	QuestionID string
	ClauseRef  string
}

// StoredAnswer is an answer keyed by the human-readable question id.
type StoredAnswer struct {
	QuestionID string
	Value      datatypes.JSON
}

func allModels() []interface{} {
	return []interface{}{
		&StandardVersion{},
		&Clause{},
		&Question{},
		&Assessment{},
		&Answer{},
	}
}
