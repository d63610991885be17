package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/fyrsmithlabs/assessd/internal/answers"
	"github.com/fyrsmithlabs/assessd/internal/logging"
	"github.com/fyrsmithlabs/assessd/internal/store"
	"github.com/fyrsmithlabs/assessd/internal/telemetry"
	api "github.com/fyrsmithlabs/assessd/pkg/api/v1"
)

const instrumentationName = "github.com/fyrsmithlabs/assessd/internal/export"

// ErrAssessmentNotFound is returned for unknown assessment ids.
var ErrAssessmentNotFound = api.ErrAssessmentNotFound

// Loader assembles reports from the store.
type Loader struct {
	store  *store.Store
	logger *logging.Logger

	tracer         trace.Tracer
	exportCounter  metric.Int64Counter
	renderDuration metric.Float64Histogram
}

// Option configures a Loader.
type Option func(*Loader)

// WithTelemetry takes tracer and meter from tel instead of the globals.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(l *Loader) {
		l.tracer = tel.Tracer(instrumentationName)
		l.initMetrics(tel.Meter(instrumentationName))
	}
}

// NewLoader creates a Loader.
func NewLoader(st *store.Store, logger *logging.Logger, opts ...Option) *Loader {
	if logger == nil {
		logger = logging.NewNop()
	}
	l := &Loader{
		store:  st,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
	}
	l.initMetrics(otel.Meter(instrumentationName))
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) initMetrics(meter metric.Meter) {
	var err error

	l.exportCounter, err = meter.Int64Counter(
		"assessd.export.exports_total",
		metric.WithDescription("Total number of exports by format and result"),
		metric.WithUnit("{export}"),
	)
	if err != nil {
		l.logger.Warn(context.Background(), "failed to create export counter", zap.Error(err))
	}

	l.renderDuration, err = meter.Float64Histogram(
		"assessd.export.render_duration_seconds",
		metric.WithDescription("Time spent rendering an export"),
		metric.WithUnit("s"),
	)
	if err != nil {
		l.logger.Warn(context.Background(), "failed to create render histogram", zap.Error(err))
	}
}

// Load reads the assessment, its standard's questions and its answers.
// Questions and answers are fetched concurrently.
func (l *Loader) Load(ctx context.Context, assessmentID string) (*Report, error) {
	ctx, span := l.tracer.Start(ctx, "export.load",
		trace.WithAttributes(attribute.String("assessment.id", assessmentID)))
	defer span.End()

	a, err := l.store.AssessmentByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("%w: %s", ErrAssessmentNotFound, assessmentID)
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var (
		questions []store.Question
		raw       map[string]datatypes.JSON
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		questions, err = l.store.QuestionsForStandard(gctx, a.StdID)
		return err
	})
	g.Go(func() error {
		var err error
		raw, err = l.store.AnswersForAssessment(gctx, assessmentID)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("loading export data: %w", err)
	}

	r := BuildReport(a, questions, answers.DecodeAll(logging.WithAssessmentID(ctx, assessmentID), raw, l.logger))
	span.SetAttributes(
		attribute.Int("export.questions", r.TotalQuestions),
		attribute.Int("export.answered", r.AnsweredCount),
	)
	return r, nil
}

// Render writes r to w in format.
func (l *Loader) Render(ctx context.Context, r *Report, format Format, w io.Writer) error {
	_, span := l.tracer.Start(ctx, "export.render", trace.WithAttributes(
		attribute.String("assessment.id", r.AssessmentID),
		attribute.String("export.format", string(format)),
	))
	defer span.End()

	start := time.Now()
	err := format.Write(w, r)
	if l.renderDuration != nil {
		l.renderDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("format", string(format))))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.count(ctx, format, "failed")
		l.logger.With(zap.String("format", string(format))).
			Error(logging.WithAssessmentID(ctx, r.AssessmentID), "export failed", zap.Error(err))
		return err
	}
	l.count(ctx, format, "success")
	return nil
}

// Export loads assessmentID and renders it to w.
func (l *Loader) Export(ctx context.Context, assessmentID string, format Format, w io.Writer) error {
	r, err := l.Load(ctx, assessmentID)
	if err != nil {
		return err
	}
	return l.Render(ctx, r, format, w)
}

func (l *Loader) count(ctx context.Context, format Format, result string) {
	if l.exportCounter == nil {
		return
	}
	l.exportCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", string(format)),
		attribute.String("result", result),
	))
}
