package answers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/assessd/internal/logging"
	"github.com/fyrsmithlabs/assessd/internal/store"
	"github.com/fyrsmithlabs/assessd/internal/telemetry"
	api "github.com/fyrsmithlabs/assessd/pkg/api/v1"
)

type fixture struct {
	svc          *Service
	store        *store.Store
	tel          *telemetry.TestTelemetry
	logs         *logging.TestLogger
	assessmentID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewTestStore(t)

	sv, err := st.EnsureStandard(ctx, "R2V3_1", "R2 v3.1")
	require.NoError(t, err)
	require.NoError(t, st.EnsureClause(ctx, sv.ID, "CR1", "Clause CR1"))
	c, err := st.ClauseByRef(ctx, "CR1")
	require.NoError(t, err)

	for _, q := range []store.Question{
		{QuestionID: "Q1", ClauseID: c.ID, Text: "Policy?", ResponseType: "yes_no", Weight: 1},
		{QuestionID: "Q2", ClauseID: c.ID, Text: "Describe", ResponseType: "text", Weight: 1},
		{QuestionID: "Q3", ClauseID: c.ID, Text: "Rating", ResponseType: "scale", Weight: 1},
	} {
		q := q
		require.NoError(t, st.UpsertQuestion(ctx, &q))
	}

	a, err := st.CreateAssessment(ctx, sv.ID)
	require.NoError(t, err)

	tel := telemetry.NewTestTelemetry()
	logs := logging.NewTestLogger()
	return &fixture{
		svc:          NewService(st, logs.Logger, WithTelemetry(tel.Telemetry)),
		store:        st,
		tel:          tel,
		logs:         logs,
		assessmentID: a.ID,
	}
}

func val(v api.Value) *api.Value { return &v }

func (f *fixture) saved(t *testing.T) map[string]api.Value {
	t.Helper()
	got, err := f.svc.Saved(context.Background(), f.assessmentID)
	require.NoError(t, err)
	return got
}

func TestUpsertBatch(t *testing.T) {
	f := newFixture(t)

	n, err := f.svc.UpsertBatch(context.Background(), f.assessmentID, &api.BatchRequest{
		Answers: []api.AnswerItem{
			{QuestionID: "Q1", Value: val(api.Text("Yes"))},
			{QuestionID: "Q2", Value: val(api.Text("We shred drives"))},
			{QuestionID: "Q3", Value: val(api.YesNo(true))},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, map[string]api.Value{
		"Q1": api.YesNo(true),
		"Q2": api.Text("We shred drives"),
		"Q3": api.Text("Yes"),
	}, f.saved(t))

	f.tel.AssertSpanExists(t, "answers.upsert_batch")
	f.tel.AssertSpanAttribute(t, "answers.upsert_batch", "answers.upserted", int64(3))
	assert.Equal(t, int64(3), f.tel.Int64Sum(t, "assessd.answers.upserted_total"))
}

func TestUpsertBatch_SkipsUnknownQuestions(t *testing.T) {
	f := newFixture(t)

	n, err := f.svc.UpsertBatch(context.Background(), f.assessmentID, &api.BatchRequest{
		Answers: []api.AnswerItem{
			{QuestionID: "Q1", Value: val(api.YesNo(false))},
			{QuestionID: "NOPE", Value: val(api.YesNo(true))},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, f.saved(t), 1)

	skipped := f.logs.FilterMessage("skipping unknown question").All()
	require.Len(t, skipped, 1)
	fields := skipped[0].ContextMap()
	assert.Equal(t, "NOPE", fields["question_id"])
	assert.Equal(t, f.assessmentID, fields["assessment.id"])
}

func TestUpsertBatch_TextQuestionStoresYesNoAsText(t *testing.T) {
	f := newFixture(t)

	n, err := f.svc.UpsertBatch(context.Background(), f.assessmentID, &api.BatchRequest{
		Answers: []api.AnswerItem{{QuestionID: "Q2", Value: val(api.YesNo(false))}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, map[string]api.Value{"Q2": api.Text("No")}, f.saved(t))
	f.logs.AssertLogged(t, zapcore.DebugLevel, "answer batch saved")
}

func TestUpsertBatch_LastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, v := range []bool{true, false} {
		_, err := f.svc.UpsertBatch(ctx, f.assessmentID, &api.BatchRequest{
			Answers: []api.AnswerItem{{QuestionID: "Q1", Value: val(api.YesNo(v))}},
		})
		require.NoError(t, err)
	}

	assert.Equal(t, api.YesNo(false), f.saved(t)["Q1"])
	count, err := f.store.CountAnswers(ctx, f.assessmentID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUpsertBatch_AssessmentNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpsertBatch(context.Background(), "00000000-0000-0000-0000-000000000000", &api.BatchRequest{
		Answers: []api.AnswerItem{{QuestionID: "Q1", Value: val(api.YesNo(true))}},
	})
	assert.ErrorIs(t, err, ErrAssessmentNotFound)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestUpsertBatch_InvalidRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *api.BatchRequest
	}{
		{"nil", nil},
		{"empty", &api.BatchRequest{}},
		{"missing id", &api.BatchRequest{Answers: []api.AnswerItem{{Value: val(api.YesNo(true))}}}},
		{"missing value", &api.BatchRequest{Answers: []api.AnswerItem{{QuestionID: "Q1"}}}},
		{"too many", &api.BatchRequest{Answers: make([]api.AnswerItem, api.MaxBatchSize+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpsertBatch(ctx, f.assessmentID, tt.req)
			assert.ErrorIs(t, err, api.ErrInvalidRequest)
		})
	}
}

func TestUpsertBatch_CoercionFailureRollsBack(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpsertBatch(context.Background(), f.assessmentID, &api.BatchRequest{
		Answers: []api.AnswerItem{
			{QuestionID: "Q2", Value: val(api.Text("written first"))},
			{QuestionID: "Q1", Value: val(api.Text("maybe"))},
		},
	})
	require.Error(t, err)

	var verr *api.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "answers[Q1]", verr.Field)
	assert.Empty(t, f.saved(t))
}

func TestUpsertBatch_PersistenceFailure(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Close())

	_, err := f.svc.UpsertBatch(context.Background(), f.assessmentID, &api.BatchRequest{
		Answers: []api.AnswerItem{{QuestionID: "Q1", Value: val(api.YesNo(true))}},
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, api.ErrInvalidRequest)
	assert.NotErrorIs(t, err, api.ErrNotFound)
}
