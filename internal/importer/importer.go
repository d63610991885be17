package importer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/assessd/internal/logging"
	"github.com/fyrsmithlabs/assessd/internal/store"
	"github.com/fyrsmithlabs/assessd/internal/telemetry"
)

const instrumentationName = "github.com/fyrsmithlabs/assessd/internal/importer"

// Default import target.
const (
	DefaultStandardCode = "R2V3_1"
	DefaultStandardName = "R2 v3.1"
)

// Report summarizes one import run.
type Report struct {
	Delimiter     string          `json:"delimiter"`
	Imported      int             `json:"imported"`
	Skipped       int             `json:"skipped"`
	Duplicates    int             `json:"duplicates"`
	TotalDataRows int             `json:"totalDataRows"`
	Coverage      *CoverageReport `json:"coverage,omitempty"`
	// Logs holds the human-readable progress lines of this run.
	Logs []string `json:"logs"`
}

// Importer writes parsed question banks into the store.
type Importer struct {
	store        *store.Store
	logger       *zap.Logger
	standardCode string
	standardName string

	tracer        trace.Tracer
	importCounter metric.Int64Counter
	rowCounter    metric.Int64Counter
}

// Option configures an Importer.
type Option func(*Importer)

// WithStandard sets the standard version rows are imported into.
func WithStandard(code, name string) Option {
	return func(i *Importer) {
		if code != "" {
			i.standardCode = code
		}
		if name != "" {
			i.standardName = name
		}
	}
}

// WithTelemetry takes tracer and meter from tel instead of the globals.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(i *Importer) {
		i.tracer = tel.Tracer(instrumentationName)
		i.initMetrics(tel.Meter(instrumentationName))
	}
}

// New creates an Importer.
func New(s *store.Store, logger *zap.Logger, opts ...Option) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	i := &Importer{
		store:        s,
		logger:       logger,
		standardCode: DefaultStandardCode,
		standardName: DefaultStandardName,
		tracer:       otel.Tracer(instrumentationName),
	}
	i.initMetrics(otel.Meter(instrumentationName))
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Importer) initMetrics(meter metric.Meter) {
	var err error

	i.importCounter, err = meter.Int64Counter(
		"assessd.importer.imports_total",
		metric.WithDescription("Total number of CSV imports by result"),
		metric.WithUnit("{import}"),
	)
	if err != nil {
		i.logger.Warn("failed to create import counter", zap.Error(err))
	}

	i.rowCounter, err = meter.Int64Counter(
		"assessd.importer.rows_total",
		metric.WithDescription("Total number of CSV data rows by outcome"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		i.logger.Warn("failed to create row counter", zap.Error(err))
	}
}

// Import parses r and upserts its standard, clauses and questions in one
// transaction. The returned Report is non-nil even on failure and carries
// the log lines collected up to that point.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*Report, error) {
	ctx, span := i.tracer.Start(ctx, "importer.import")
	defer span.End()

	log, sink := logging.CaptureLogs(i.logger, zapcore.InfoLevel)
	report := &Report{}

	fail := func(err error) (*Report, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		i.count(ctx, i.importCounter, 1, "failed")
		log.Error("import failed", zap.Error(err))
		report.Logs = sink.Lines()
		return report, err
	}

	parsed, err := Parse(r)
	if err != nil {
		return fail(err)
	}

	report.Delimiter = string(parsed.Delimiter)
	report.TotalDataRows = parsed.TotalDataRows
	report.Skipped = len(parsed.Skipped)
	report.Duplicates = parsed.Duplicates()

	log.Info("using delimiter", zap.String("delimiter", DelimiterName(parsed.Delimiter)))
	if parsed.Headers == nil {
		log.Info("no records found in csv")
		report.Logs = sink.Lines()
		return report, nil
	}
	log.Info("header mapping", headerFields(parsed.Headers)...)

	for _, sk := range parsed.Skipped {
		log.Debug("skipping row", zap.Int("line", sk.Line), zap.Error(sk.Reason))
	}
	log.Info("parsed rows",
		zap.Int("questions", len(parsed.Rows)),
		zap.Int("skipped", report.Skipped),
	)

	err = i.store.WithTx(ctx, func(tx *store.Store) error {
		imported, err := i.write(ctx, tx, parsed)
		report.Imported = imported
		return err
	})
	if err != nil {
		report.Imported = 0
		return fail(fmt.Errorf("writing question bank: %w", err))
	}

	coverage, err := i.Coverage(ctx)
	if err != nil {
		return fail(err)
	}
	report.Coverage = coverage

	for _, bc := range coverage.Ordered() {
		log.Info("coverage", zap.String("bucket", bc.Bucket), zap.Int("questions", bc.Count))
	}
	log.Info("missing/other", zap.Int("questions", coverage.Other))
	log.Info("duplicates", zap.Int("count", report.Duplicates))
	log.Info("total imported", zap.Int("count", report.Imported))

	span.SetAttributes(
		attribute.Int("import.rows", report.TotalDataRows),
		attribute.Int("import.imported", report.Imported),
		attribute.Int("import.skipped", report.Skipped),
		attribute.Int("import.duplicates", report.Duplicates),
	)
	i.count(ctx, i.importCounter, 1, "success")
	i.count(ctx, i.rowCounter, int64(report.Imported), "imported")
	i.count(ctx, i.rowCounter, int64(report.Skipped), "skipped")

	report.Logs = sink.Lines()
	return report, nil
}

// write upserts the standard, every distinct clause and then every row
// whose clause resolves. It returns the number of questions written.
func (i *Importer) write(ctx context.Context, tx *store.Store, parsed *ParseResult) (int, error) {
	sv, err := tx.EnsureStandard(ctx, i.standardCode, i.standardName)
	if err != nil {
		return 0, err
	}

	for _, ref := range parsed.ClauseRefs() {
		if err := tx.EnsureClause(ctx, sv.ID, ref, "Clause "+ref); err != nil {
			return 0, err
		}
	}

	clauseIDs := make(map[string]uint)
	imported := 0
	for _, row := range parsed.Rows {
		clauseID, ok := clauseIDs[row.ClauseRef]
		if !ok {
			c, err := tx.ClauseByRef(ctx, row.ClauseRef)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return 0, err
			}
			clauseID = c.ID
			clauseIDs[row.ClauseRef] = clauseID
		}

		if err := tx.UpsertQuestion(ctx, toQuestion(row, clauseID)); err != nil {
			return 0, err
		}
		imported++
	}
	return imported, nil
}

// Coverage reports how the stored questions spread over clause prefixes.
func (i *Importer) Coverage(ctx context.Context) (*CoverageReport, error) {
	refs, err := i.store.QuestionRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("building coverage: %w", err)
	}
	clauseRefs := make([]string, len(refs))
	for n, r := range refs {
		clauseRefs[n] = r.ClauseRef
	}
	return ComputeCoverage(clauseRefs), nil
}

func (i *Importer) count(ctx context.Context, c metric.Int64Counter, n int64, result string) {
	if c == nil || n == 0 {
		return
	}
	c.Add(ctx, n, metric.WithAttributes(attribute.String("result", result)))
}

func toQuestion(row Row, clauseID uint) *store.Question {
	return &store.Question{
		QuestionID:       row.QuestionID,
		ClauseID:         clauseID,
		Text:             row.Text,
		ResponseType:     row.ResponseType,
		Required:         row.Required,
		EvidenceRequired: row.EvidenceRequired,
		Appendix:         row.Appendix,
		Weight:           row.Weight,
		HelpText:         row.HelpText,
		Category:         row.Category,
		CategoryCode:     row.CategoryCode,
		CategoryName:     row.CategoryName,
	}
}

func headerFields(m HeaderMap) []zap.Field {
	fields := make([]zap.Field, 0, len(m))
	for f, idx := range m {
		fields = append(fields, zap.Int(string(f), idx))
	}
	return fields
}
