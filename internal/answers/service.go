package answers

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/fyrsmithlabs/assessd/internal/logging"
	"github.com/fyrsmithlabs/assessd/internal/store"
	"github.com/fyrsmithlabs/assessd/internal/telemetry"
	api "github.com/fyrsmithlabs/assessd/pkg/api/v1"
)

const instrumentationName = "github.com/fyrsmithlabs/assessd/internal/answers"

// ErrAssessmentNotFound is returned when the batch targets an unknown
// assessment.
var ErrAssessmentNotFound = api.ErrAssessmentNotFound

// Service writes answer batches.
type Service struct {
	store  *store.Store
	logger *logging.Logger

	tracer          trace.Tracer
	batchSize       metric.Int64Histogram
	upsertedCounter metric.Int64Counter
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

// NewService creates an answers service.
func NewService(st *store.Store, logger *logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Service{
		store:  st,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
	}
	s.initMetrics(otel.Meter(instrumentationName))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) initMetrics(meter metric.Meter) {
	var err error

	s.batchSize, err = meter.Int64Histogram(
		"assessd.answers.batch_size",
		metric.WithDescription("Number of items per answer batch"),
		metric.WithUnit("{answer}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50, 100),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create batch size histogram", zap.Error(err))
	}

	s.upsertedCounter, err = meter.Int64Counter(
		"assessd.answers.upserted_total",
		metric.WithDescription("Total number of answers written"),
		metric.WithUnit("{answer}"),
	)
	if err != nil {
		s.logger.Warn(context.Background(), "failed to create upserted counter", zap.Error(err))
	}
}

// UpsertBatch validates req and writes it for assessmentID in one
// transaction. It returns the number of answers written.
func (s *Service) UpsertBatch(ctx context.Context, assessmentID string, req *api.BatchRequest) (int, error) {
	ctx, span := s.tracer.Start(ctx, "answers.upsert_batch",
		trace.WithAttributes(attribute.String("assessment.id", assessmentID)))
	defer span.End()

	ctx = logging.WithAssessmentID(ctx, assessmentID)

	if req == nil {
		req = &api.BatchRequest{}
	}
	if err := req.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	if s.batchSize != nil {
		s.batchSize.Record(ctx, int64(len(req.Answers)))
	}

	if _, err := s.store.AssessmentByID(ctx, assessmentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("%w: %s", ErrAssessmentNotFound, assessmentID)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	upserted := 0
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		upserted = 0
		for _, item := range req.Answers {
			q, err := tx.QuestionByQuestionID(ctx, item.QuestionID)
			if errors.Is(err, store.ErrNotFound) {
				s.logger.Debug(ctx, "skipping unknown question", zap.String("question_id", item.QuestionID))
				continue
			}
			if err != nil {
				return err
			}

			v, err := Coerce(*item.Value, q.ResponseType)
			if err != nil {
				var verr *api.ValidationError
				if errors.As(err, &verr) {
					verr.Field = "answers[" + item.QuestionID + "]"
				}
				return err
			}
			raw, err := Encode(v)
			if err != nil {
				return err
			}
			if err := tx.UpsertAnswer(ctx, assessmentID, q.ID, raw); err != nil {
				return err
			}
			s.logger.Trace(ctx, "answer upserted",
				zap.String("question_id", item.QuestionID), zap.String("kind", string(v.Kind)))
			upserted++
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(
		attribute.Int("answers.requested", len(req.Answers)),
		attribute.Int("answers.upserted", upserted),
	)
	if s.upsertedCounter != nil && upserted > 0 {
		s.upsertedCounter.Add(ctx, int64(upserted))
	}
	s.logger.Debug(ctx, "answer batch saved",
		zap.Int("requested", len(req.Answers)),
		zap.Int("upserted", upserted))
	return upserted, nil
}

// Saved returns the decoded answers of an assessment keyed by question id.
// Values that fail to decode are logged and left out.
func (s *Service) Saved(ctx context.Context, assessmentID string) (map[string]api.Value, error) {
	raw, err := s.store.AnswersForAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	return DecodeAll(logging.WithAssessmentID(ctx, assessmentID), raw, s.logger), nil
}

// DecodeAll decodes a question-id keyed map of stored values.
func DecodeAll(ctx context.Context, raw map[string]datatypes.JSON, logger *logging.Logger) map[string]api.Value {
	out := make(map[string]api.Value, len(raw))
	for qid, b := range raw {
		v, err := Decode(b)
		if err != nil {
			if logger != nil {
				logger.Warn(ctx, "dropping undecodable answer", zap.String("question_id", qid), zap.Error(err))
			}
			continue
		}
		if !v.IsZero() {
			out[qid] = v
		}
	}
	return out
}
