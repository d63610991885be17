package http

import (
	"context"
	"io"

	"github.com/fyrsmithlabs/assessd/internal/export"
	"github.com/fyrsmithlabs/assessd/internal/importer"
	api "github.com/fyrsmithlabs/assessd/pkg/api/v1"
)

// QuestionImporter loads CSV question banks.
type QuestionImporter interface {
	Import(ctx context.Context, r io.Reader) (*importer.Report, error)
	Coverage(ctx context.Context) (*importer.CoverageReport, error)
}

// AssessmentService creates and lists assessments.
type AssessmentService interface {
	Create(ctx context.Context, stdCode string) (*api.AssessmentResponse, error)
	Questions(ctx context.Context, assessmentID string) (*api.QuestionsResponse, error)
}

// AnswerService persists answer batches.
type AnswerService interface {
	UpsertBatch(ctx context.Context, assessmentID string, req *api.BatchRequest) (int, error)
}

// Exporter loads and renders assessment reports.
type Exporter interface {
	Load(ctx context.Context, assessmentID string) (*export.Report, error)
	Render(ctx context.Context, r *export.Report, format export.Format, w io.Writer) error
}

// Pinger reports backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the domain dependencies served over HTTP.
type Services struct {
	Importer    QuestionImporter
	Assessments AssessmentService
	Answers     AnswerService
	Exports     Exporter
	// Database is optional; when set, /health reports it.
	Database Pinger
}
