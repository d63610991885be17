package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/assessd/internal/logging"
	"github.com/fyrsmithlabs/assessd/internal/store"
	"github.com/fyrsmithlabs/assessd/internal/telemetry"
)

const bankCSV = `question_id,clause_ref,text,response_type,required,evidence_required,appendix,weight,help_text,category_code
CR1-1,CR1,Is there a written policy?,yes_no,yes,true,,1,,GOV
CR1-2,CR1.2,Is the policy reviewed yearly?,yes_no,no,,,0.5,Check dates,
CR10-1,CR10.1,Are records retained?,text,1,,,,,
APP-A-1,APP-A,Is data sanitized?,yes_no,true,1,A,,,DS
,CR2,Missing id,yes_no,,,,,,
X-1,MISC,Anything else?,text,,,,,,
X-1,MISC,Anything else? (dup),text,,,,,,
`

type fixture struct {
	imp   *Importer
	store *store.Store
	tel   *telemetry.TestTelemetry
	log   *logging.TestLogger
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store: store.NewTestStore(t),
		tel:   telemetry.NewTestTelemetry(),
		log:   logging.NewTestLogger(),
	}
	opts = append([]Option{WithTelemetry(f.tel.Telemetry)}, opts...)
	f.imp = New(f.store, f.log.Underlying(), opts...)
	return f
}

func TestImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	report, err := f.imp.Import(ctx, strings.NewReader(bankCSV))
	require.NoError(t, err)

	assert.Equal(t, ",", report.Delimiter)
	assert.Equal(t, 7, report.TotalDataRows)
	assert.Equal(t, 6, report.Imported)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Duplicates)
	assert.LessOrEqual(t, report.Imported+report.Skipped, report.TotalDataRows)

	require.NotNil(t, report.Coverage)
	assert.Equal(t, 5, report.Coverage.Total)
	assert.Equal(t, 2, report.Coverage.Coverage["CR1"])
	assert.Equal(t, 1, report.Coverage.Coverage["CR10"])
	assert.Equal(t, 1, report.Coverage.Coverage["APP-A"])
	assert.Equal(t, 1, report.Coverage.Other)

	sv, err := f.store.StandardByCode(ctx, DefaultStandardCode)
	require.NoError(t, err)
	assert.Equal(t, DefaultStandardName, sv.Name)

	c, err := f.store.ClauseByRef(ctx, "CR1.2")
	require.NoError(t, err)
	assert.Equal(t, "Clause CR1.2", c.Title)

	q, err := f.store.QuestionByQuestionID(ctx, "CR1-2")
	require.NoError(t, err)
	assert.False(t, q.Required)
	assert.Equal(t, 0.5, q.Weight)
	require.NotNil(t, q.HelpText)
	assert.Equal(t, "Check dates", *q.HelpText)

	q, err = f.store.QuestionByQuestionID(ctx, "X-1")
	require.NoError(t, err)
	assert.Equal(t, "Anything else? (dup)", q.Text, "later duplicate overwrites earlier row")

	q, err = f.store.QuestionByQuestionID(ctx, "APP-A-1")
	require.NoError(t, err)
	require.NotNil(t, q.CategoryCode)
	assert.Equal(t, "DS", *q.CategoryCode)

	assert.Contains(t, report.Logs, "using delimiter delimiter=comma")
	assert.Contains(t, report.Logs, "parsed rows questions=6 skipped=1")
	assert.Contains(t, report.Logs, "coverage bucket=CR1 questions=2")
	assert.Contains(t, report.Logs, "total imported count=6")
	f.log.AssertLogged(t, zapcore.InfoLevel, "total imported")

	f.tel.AssertSpanExists(t, "importer.import")
	f.tel.AssertSpanAttribute(t, "importer.import", "import.imported", int64(6))
	assert.Equal(t, int64(1), f.tel.Int64Sum(t, "assessd.importer.imports_total"))
}

func TestImport_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.imp.Import(ctx, strings.NewReader(bankCSV))
	require.NoError(t, err)
	n1, err := f.store.CountQuestions(ctx)
	require.NoError(t, err)

	second, err := f.imp.Import(ctx, strings.NewReader(bankCSV))
	require.NoError(t, err)
	n2, err := f.store.CountQuestions(ctx)
	require.NoError(t, err)

	assert.Equal(t, n1, n2)
	assert.Equal(t, first.Coverage, second.Coverage)
}

func TestImport_KeepsExistingStandardName(t *testing.T) {
	f := newFixture(t, WithStandard("R2V3_1", "Other name"))
	ctx := context.Background()

	_, err := f.store.EnsureStandard(ctx, "R2V3_1", "R2 v3.1")
	require.NoError(t, err)

	_, err = f.imp.Import(ctx, strings.NewReader(bankCSV))
	require.NoError(t, err)

	sv, err := f.store.StandardByCode(ctx, "R2V3_1")
	require.NoError(t, err)
	assert.Equal(t, "R2 v3.1", sv.Name)
}

func TestImport_CustomStandard(t *testing.T) {
	f := newFixture(t, WithStandard("R2V3_2", "R2 v3.2"))
	ctx := context.Background()

	_, err := f.imp.Import(ctx, strings.NewReader(bankCSV))
	require.NoError(t, err)

	_, err = f.store.StandardByCode(ctx, "R2V3_2")
	require.NoError(t, err)
	_, err = f.store.StandardByCode(ctx, DefaultStandardCode)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestImport_MalformedCSV(t *testing.T) {
	f := newFixture(t)

	report, err := f.imp.Import(context.Background(), strings.NewReader("question_id,clause,text,type\nQ1,CR1,say \"hi\",text\n"))
	require.ErrorIs(t, err, ErrMalformedCSV)
	require.NotNil(t, report)
	require.NotEmpty(t, report.Logs)
	assert.True(t, strings.HasPrefix(report.Logs[len(report.Logs)-1], "import failed"))

	n, err := f.store.CountQuestions(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int64(1), f.tel.Int64Sum(t, "assessd.importer.imports_total"))
}

func TestImport_Empty(t *testing.T) {
	f := newFixture(t)

	report, err := f.imp.Import(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, report.Imported)
	assert.Nil(t, report.Coverage)
	assert.Contains(t, report.Logs, "no records found in csv")

	_, err = f.store.StandardByCode(context.Background(), DefaultStandardCode)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestImport_PersistenceFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Close())

	report, err := f.imp.Import(ctx, strings.NewReader(bankCSV))
	require.Error(t, err)
	assert.Zero(t, report.Imported)
	assert.Contains(t, report.Logs, "parsed rows questions=6 skipped=1")
}

func TestCoverage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.imp.Coverage(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)

	_, err = f.imp.Import(ctx, strings.NewReader(bankCSV))
	require.NoError(t, err)

	cov, err := f.imp.Coverage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, cov.Total)
}
