package store

import (
	"context"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/assessd/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func strPtr(s string) *string { return &s }

func seedBank(t *testing.T, s *Store) (*StandardVersion, *Clause) {
	t.Helper()
	ctx := context.Background()

	sv, err := s.EnsureStandard(ctx, "R2V3_1", "R2 v3.1")
	require.NoError(t, err)
	require.NoError(t, s.EnsureClause(ctx, sv.ID, "CR1", "Clause CR1"))
	c, err := s.ClauseByRef(ctx, "CR1")
	require.NoError(t, err)
	return sv, c
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "mysql", DSN: "x"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestStore_PingAndClose(t *testing.T) {
	s := NewTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestEnsureStandard_KeepsExistingName(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	first, err := s.EnsureStandard(ctx, "R2V3_1", "R2 v3.1")
	require.NoError(t, err)

	second, err := s.EnsureStandard(ctx, "R2V3_1", "Renamed")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "R2 v3.1", second.Name)
}

func TestStandardByCode_NotFound(t *testing.T) {
	s := NewTestStore(t)

	_, err := s.StandardByCode(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureClause_DoesNotOverwriteTitle(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()
	sv, _ := seedBank(t, s)

	require.NoError(t, s.EnsureClause(ctx, sv.ID, "CR1", "Another title"))

	c, err := s.ClauseByRef(ctx, "CR1")
	require.NoError(t, err)
	assert.Equal(t, "Clause CR1", c.Title)

	_, err = s.ClauseByRef(ctx, "CR9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertQuestion_UpdatesInPlace(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()
	_, c := seedBank(t, s)

	q := &Question{
		QuestionID:   "CR1-Q1",
		ClauseID:     c.ID,
		Text:         "Is there a policy?",
		ResponseType: "yes_no",
		Required:     true,
		Weight:       1,
		Appendix:     strPtr("A"),
	}
	require.NoError(t, s.UpsertQuestion(ctx, q))

	require.NoError(t, s.UpsertQuestion(ctx, &Question{
		QuestionID:   "CR1-Q1",
		ClauseID:     c.ID,
		Text:         "Is there a written policy?",
		ResponseType: "text",
		Required:     false,
		Weight:       0,
	}))

	n, err := s.CountQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.QuestionByQuestionID(ctx, "CR1-Q1")
	require.NoError(t, err)
	assert.Equal(t, "Is there a written policy?", got.Text)
	assert.Equal(t, "text", got.ResponseType)
	assert.False(t, got.Required)
	assert.Zero(t, got.Weight)
	assert.Nil(t, got.Appendix)
}

func TestQuestionRefsAndListing(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()
	sv, c1 := seedBank(t, s)
	require.NoError(t, s.EnsureClause(ctx, sv.ID, "APP-A", "Clause APP-A"))
	app, err := s.ClauseByRef(ctx, "APP-A")
	require.NoError(t, err)

	for _, q := range []*Question{
		{QuestionID: "CR1-Q2", ClauseID: c1.ID, Text: "b", ResponseType: "text", Weight: 1},
		{QuestionID: "CR1-Q1", ClauseID: c1.ID, Text: "a", ResponseType: "text", Weight: 1},
		{QuestionID: "APP-A-Q1", ClauseID: app.ID, Text: "c", ResponseType: "yes_no", Weight: 1},
	} {
		require.NoError(t, s.UpsertQuestion(ctx, q))
	}

	refs, err := s.QuestionRefs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []QuestionRef{
		{QuestionID: "CR1-Q1", ClauseRef: "CR1"},
		{QuestionID: "CR1-Q2", ClauseRef: "CR1"},
		{QuestionID: "APP-A-Q1", ClauseRef: "APP-A"},
	}, refs)

	qs, err := s.QuestionsForStandard(ctx, sv.ID)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	ids := []string{qs[0].QuestionID, qs[1].QuestionID, qs[2].QuestionID}
	assert.Equal(t, []string{"APP-A-Q1", "CR1-Q1", "CR1-Q2"}, ids)
	require.NotNil(t, qs[1].Clause)
	assert.Equal(t, "CR1", qs[1].Clause.Ref)
}

func TestAssessmentLifecycle(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()
	sv, c := seedBank(t, s)
	require.NoError(t, s.UpsertQuestion(ctx, &Question{QuestionID: "Q1", ClauseID: c.ID, Text: "t", ResponseType: "yes_no", Weight: 1}))
	q, err := s.QuestionByQuestionID(ctx, "Q1")
	require.NoError(t, err)

	a, err := s.CreateAssessment(ctx, sv.ID)
	require.NoError(t, err)
	assert.Len(t, a.ID, 36)

	loaded, err := s.AssessmentByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Standard)
	assert.Equal(t, "R2V3_1", loaded.Standard.Code)

	require.NoError(t, s.UpsertAnswer(ctx, a.ID, q.ID, datatypes.JSON(`"Yes"`)))
	require.NoError(t, s.UpsertAnswer(ctx, a.ID, q.ID, datatypes.JSON(`"No"`)))

	n, err := s.CountAnswers(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	answers, err := s.AnswersForAssessment(ctx, a.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `"No"`, string(answers["Q1"]))

	_, err = s.AssessmentByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()
	_, c := seedBank(t, s)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx *Store) error {
		if err := tx.UpsertQuestion(ctx, &Question{QuestionID: "Q1", ClauseID: c.ID, Text: "t", ResponseType: "text", Weight: 1}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := s.CountQuestions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.WithTx(ctx, func(tx *Store) error {
		return tx.UpsertQuestion(ctx, &Question{QuestionID: "Q1", ClauseID: c.ID, Text: "t", ResponseType: "text", Weight: 1})
	}))
	n, err = s.CountQuestions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestClausesForStandard(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()
	sv, c := seedBank(t, s)
	require.NoError(t, s.EnsureClause(ctx, sv.ID, "APP-B", "Clause APP-B"))

	for _, q := range []*Question{
		{QuestionID: "CR1-Q2", ClauseID: c.ID, Text: "b", ResponseType: "text", Weight: 1},
		{QuestionID: "CR1-Q1", ClauseID: c.ID, Text: "a", ResponseType: "text", Weight: 1},
	} {
		require.NoError(t, s.UpsertQuestion(ctx, q))
	}

	cs, err := s.ClausesForStandard(ctx, sv.ID)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "APP-B", cs[0].Ref)
	assert.Empty(t, cs[0].Questions)
	assert.Equal(t, "CR1", cs[1].Ref)
	require.Len(t, cs[1].Questions, 2)
	assert.Equal(t, "CR1-Q1", cs[1].Questions[0].QuestionID)
	assert.Equal(t, "CR1-Q2", cs[1].Questions[1].QuestionID)

	other, err := s.ClausesForStandard(ctx, sv.ID+100)
	require.NoError(t, err)
	assert.Empty(t, other)
}
