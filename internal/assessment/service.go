package assessment

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/assessd/internal/answers"
	"github.com/fyrsmithlabs/assessd/internal/importer"
	"github.com/fyrsmithlabs/assessd/internal/logging"
	"github.com/fyrsmithlabs/assessd/internal/store"
	"github.com/fyrsmithlabs/assessd/internal/telemetry"
	api "github.com/fyrsmithlabs/assessd/pkg/api/v1"
)

const instrumentationName = "github.com/fyrsmithlabs/assessd/internal/assessment"

// Errors returned by the service. Both match api.ErrNotFound.
var (
	ErrStandardNotFound   = api.ErrStandardNotFound
	ErrAssessmentNotFound = api.ErrAssessmentNotFound
)

// Service manages assessments.
type Service struct {
	store           *store.Store
	logger          *logging.Logger
	defaultStandard string

	tracer        trace.Tracer
	createCounter metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithTelemetry takes tracer and meter from tel instead of the globals.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(s *Service) {
		s.tracer = tel.Tracer(instrumentationName)
		s.initMetrics(tel.Meter(instrumentationName))
	}
}

// WithDefaultStandard sets the standard used when Create gets no code.
func WithDefaultStandard(code string) Option {
	return func(s *Service) {
		if code != "" {
			s.defaultStandard = code
		}
	}
}

// NewService creates an assessment service.
func NewService(st *store.Store, logger *logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Service{
		store:           st,
		logger:          logger,
		defaultStandard: importer.DefaultStandardCode,
		tracer:          otel.Tracer(instrumentationName),
	}
	s.initMetrics(otel.Meter(instrumentationName))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) initMetrics(meter metric.Meter) {
	var err error
	s.createCounter, err = meter.Int64Counter(
		"assessd.assessment.created_total",
		metric.WithDescription("Total number of assessments created"),
		metric.WithUnit("{assessment}"),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create assessment counter", zap.Error(err))
	}
}

// Create starts an assessment against the standard with stdCode, or the
// default standard when stdCode is empty.
func (s *Service) Create(ctx context.Context, stdCode string) (*api.AssessmentResponse, error) {
	if stdCode == "" {
		stdCode = s.defaultStandard
	}
	ctx, span := s.tracer.Start(ctx, "assessment.create",
		trace.WithAttributes(attribute.String("standard.code", stdCode)))
	defer span.End()

	sv, err := s.store.StandardByCode(ctx, stdCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("%w: %s", ErrStandardNotFound, stdCode)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	a, err := s.store.CreateAssessment(ctx, sv.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if s.createCounter != nil {
		s.createCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("standard", sv.Code)))
	}
	span.SetAttributes(attribute.String("assessment.id", a.ID))
	s.logger.Info(logging.WithAssessmentID(ctx, a.ID), "assessment created", zap.String("standard", sv.Code))

	return &api.AssessmentResponse{ID: a.ID, StdID: a.StdID, CreatedAt: a.CreatedAt}, nil
}

// Get loads an assessment with its standard.
func (s *Service) Get(ctx context.Context, assessmentID string) (*store.Assessment, error) {
	a, err := s.store.AssessmentByID(ctx, assessmentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAssessmentNotFound, assessmentID)
	}
	return a, err
}

// Questions lists the questions of an assessment's standard grouped by
// clause, each carrying its saved answer if there is one.
func (s *Service) Questions(ctx context.Context, assessmentID string) (*api.QuestionsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assessment.questions",
		trace.WithAttributes(attribute.String("assessment.id", assessmentID)))
	defer span.End()

	a, err := s.Get(ctx, assessmentID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	clauses, err := s.store.ClausesForStandard(ctx, a.StdID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	raw, err := s.store.AnswersForAssessment(ctx, assessmentID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	saved := answers.DecodeAll(logging.WithAssessmentID(ctx, assessmentID), raw, s.logger)

	resp := BuildQuestions(a, clauses, saved)
	span.SetAttributes(
		attribute.Int("assessment.questions", resp.TotalQuestions),
		attribute.Int("assessment.answered", resp.AnsweredCount),
	)
	return resp, nil
}

// BuildQuestions assembles the grouped listing from loaded rows.
func BuildQuestions(a *store.Assessment, clauses []store.Clause, saved map[string]api.Value) *api.QuestionsResponse {
	sort.SliceStable(clauses, func(i, j int) bool {
		return CompareClauseRefs(clauses[i].Ref, clauses[j].Ref) < 0
	})

	resp := &api.QuestionsResponse{
		AssessmentID: a.ID,
		Groups:       make([]api.QuestionGroup, 0, len(clauses)),
	}
	if a.Standard != nil {
		resp.StandardCode = a.Standard.Code
	}

	for _, c := range clauses {
		group := api.QuestionGroup{
			ClauseRef:   c.Ref,
			ClauseTitle: c.Title,
			Questions:   make([]api.QuestionView, 0, len(c.Questions)),
		}
		for _, q := range c.Questions {
			view := questionView(q)
			if v, ok := saved[q.QuestionID]; ok {
				v := v
				view.Answer = &v
				resp.AnsweredCount++
			}
			if q.Required {
				resp.RequiredCount++
			}
			group.Questions = append(group.Questions, view)
		}
		resp.TotalQuestions += len(group.Questions)
		resp.Groups = append(resp.Groups, group)
	}
	return resp
}

func questionView(q store.Question) api.QuestionView {
	return api.QuestionView{
		ID:               q.ID,
		QuestionID:       q.QuestionID,
		Text:             q.Text,
		Required:         q.Required,
		EvidenceRequired: q.EvidenceRequired,
		ResponseType:     q.ResponseType,
		Appendix:         q.Appendix,
		Weight:           q.Weight,
		HelpText:         q.HelpText,
		Category:         q.Category,
		CategoryCode:     q.CategoryCode,
		CategoryName:     q.CategoryName,
	}
}
