package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/assessd/internal/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("record not found")

// Store wraps a gorm handle. A Store obtained inside WithTx is bound to
// that transaction.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to the configured database.
func Open(cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite, "":
		dialector = sqlite.Open(cfg.DSN.Value())
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN.Value())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: %s, %s)", cfg.Driver, config.DriverSQLite, config.DriverPostgres)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  newGormLogger(logger.Named("gorm"), 200*time.Millisecond),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql handle: %w", err)
	}

	if cfg.Driver == config.DriverPostgres {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
	} else {
		// One writer; also keeps :memory: databases alive across calls.
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("enabling sqlite foreign keys: %w", err)
		}
	}

	return &Store{db: db, logger: logger}, nil
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("auto-migrating schema: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting sql handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting sql handle: %w", err)
	}
	return sqlDB.Close()
}

// WithTx runs fn in a single transaction. Any error from fn rolls back
// every write made through the Store it was given.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	start := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, logger: s.logger})
	})
	observeTx(start, err)
	return err
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func wrapLookup(err error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", msg, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// EnsureStandard creates the standard if absent and returns the stored row.
// An existing row keeps its name.
func (s *Store) EnsureStandard(ctx context.Context, code, name string) (*StandardVersion, error) {
	sv := StandardVersion{Code: code, Name: name}
	err := s.conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&sv).Error
	if err != nil {
		return nil, fmt.Errorf("ensuring standard %s: %w", code, err)
	}
	return s.StandardByCode(ctx, code)
}

// StandardByCode looks up a standard version by code.
func (s *Store) StandardByCode(ctx context.Context, code string) (*StandardVersion, error) {
	var sv StandardVersion
	if err := s.conn(ctx).Where("code = ?", code).First(&sv).Error; err != nil {
		return nil, wrapLookup(err, "standard %s", code)
	}
	return &sv, nil
}

// EnsureClause creates the clause if absent. Title and standard of an
// existing clause are left untouched.
func (s *Store) EnsureClause(ctx context.Context, stdID uint, ref, title string) error {
	c := Clause{Ref: ref, Title: title, StdID: stdID}
	err := s.conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "ref"}}, DoNothing: true}).
		Create(&c).Error
	if err != nil {
		return fmt.Errorf("ensuring clause %s: %w", ref, err)
	}
	return nil
}

// ClauseByRef looks up a clause by its ref.
func (s *Store) ClauseByRef(ctx context.Context, ref string) (*Clause, error) {
	var c Clause
	if err := s.conn(ctx).Where("ref = ?", ref).First(&c).Error; err != nil {
		return nil, wrapLookup(err, "clause %s", ref)
	}
	return &c, nil
}

// questionUpdateColumns are overwritten when a question id is re-imported.
// clause_id is kept from the first import.
var questionUpdateColumns = []string{
	"text", "response_type", "required", "evidence_required",
	"appendix", "weight", "help_text",
	"category", "category_code", "category_name",
}

// UpsertQuestion inserts q or overwrites the mutable fields of the row with
// the same QuestionID.
func (s *Store) UpsertQuestion(ctx context.Context, q *Question) error {
	err := s.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns(questionUpdateColumns),
		}).
		Create(q).Error
	if err != nil {
		return fmt.Errorf("upserting question %s: %w", q.QuestionID, err)
	}
	return nil
}

// QuestionByQuestionID resolves a human-readable question id.
func (s *Store) QuestionByQuestionID(ctx context.Context, questionID string) (*Question, error) {
	var q Question
	if err := s.conn(ctx).Where("question_id = ?", questionID).First(&q).Error; err != nil {
		return nil, wrapLookup(err, "question %s", questionID)
	}
	return &q, nil
}

// QuestionRefs returns every question id with its clause ref.
func (s *Store) QuestionRefs(ctx context.Context) ([]QuestionRef, error) {
	var refs []QuestionRef
	err := s.conn(ctx).
		Table("questions").
		Select("questions.question_id AS question_id, clauses.ref AS clause_ref").
		Joins("JOIN clauses ON clauses.id = questions.clause_id").
		Order("questions.question_id").
		Scan(&refs).Error
	if err != nil {
		return nil, fmt.Errorf("listing question refs: %w", err)
	}
	return refs, nil
}

// CountQuestions returns the number of questions in the bank.
func (s *Store) CountQuestions(ctx context.Context) (int64, error) {
	var n int64
	if err := s.conn(ctx).Model(&Question{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting questions: %w", err)
	}
	return n, nil
}

// QuestionsForStandard returns the questions of a standard with their
// clause loaded, ordered by clause ref then question id.
func (s *Store) QuestionsForStandard(ctx context.Context, stdID uint) ([]Question, error) {
	var qs []Question
	err := s.conn(ctx).
		Preload("Clause").
		Joins("JOIN clauses ON clauses.id = questions.clause_id").
		Where("clauses.std_id = ?", stdID).
		Order("clauses.ref ASC").
		Order("questions.question_id ASC").
		Find(&qs).Error
	if err != nil {
		return nil, fmt.Errorf("listing questions for standard %d: %w", stdID, err)
	}
	return qs, nil
}

// CreateAssessment starts a new assessment against a standard.
func (s *Store) CreateAssessment(ctx context.Context, stdID uint) (*Assessment, error) {
	a := Assessment{
		ID:        uuid.NewString(),
		StdID:     stdID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.conn(ctx).Create(&a).Error; err != nil {
		return nil, fmt.Errorf("creating assessment: %w", err)
	}
	return &a, nil
}

// AssessmentByID loads an assessment with its standard.
func (s *Store) AssessmentByID(ctx context.Context, id string) (*Assessment, error) {
	var a Assessment
	if err := s.conn(ctx).Preload("Standard").Where("id = ?", id).First(&a).Error; err != nil {
		return nil, wrapLookup(err, "assessment %s", id)
	}
	return &a, nil
}

// UpsertAnswer writes the value for (assessmentID, questionRowID),
// replacing any previous value.
func (s *Store) UpsertAnswer(ctx context.Context, assessmentID string, questionRowID uint, value datatypes.JSON) error {
	a := Answer{
		AssessmentID: assessmentID,
		QuestionID:   questionRowID,
		Value:        value,
	}
	err := s.conn(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assessment_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&a).Error
	if err != nil {
		return fmt.Errorf("upserting answer for question %d: %w", questionRowID, err)
	}
	return nil
}

// AnswersForAssessment returns saved values keyed by human-readable
// question id.
func (s *Store) AnswersForAssessment(ctx context.Context, assessmentID string) (map[string]datatypes.JSON, error) {
	var rows []StoredAnswer
	err := s.conn(ctx).
		Table("answers").
		Select("questions.question_id AS question_id, answers.value AS value").
		Joins("JOIN questions ON questions.id = answers.question_id").
		Where("answers.assessment_id = ?", assessmentID).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing answers for assessment %s: %w", assessmentID, err)
	}

	out := make(map[string]datatypes.JSON, len(rows))
	for _, r := range rows {
		out[r.QuestionID] = r.Value
	}
	return out, nil
}

// CountAnswers returns how many answer rows exist for an assessment.
func (s *Store) CountAnswers(ctx context.Context, assessmentID string) (int64, error) {
	var n int64
	if err := s.conn(ctx).Model(&Answer{}).Where("assessment_id = ?", assessmentID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting answers: %w", err)
	}
	return n, nil
}

// ClausesForStandard returns every clause of a standard with its questions
// loaded in question id order. Clauses without questions are included.
func (s *Store) ClausesForStandard(ctx context.Context, stdID uint) ([]Clause, error) {
	var cs []Clause
	err := s.conn(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.question_id ASC")
		}).
		Where("std_id = ?", stdID).
		Order("ref ASC").
		Find(&cs).Error
	if err != nil {
		return nil, fmt.Errorf("listing clauses for standard %d: %w", stdID, err)
	}
	return cs, nil
}
