package store

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/assessd/internal/config"
	"go.uber.org/zap"
)

// NewTestStore opens a migrated in-memory sqlite store that is closed when
// the test ends.
func NewTestStore(tb testing.TB) *Store {
	tb.Helper()
	s, err := Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    config.Secret(":memory:"),
	}, zap.NewNop())
	if err != nil {
		tb.Fatalf("open test store: %v", err)
	}
	tb.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(context.Background()); err != nil {
		tb.Fatalf("migrate test store: %v", err)
	}
	return s
}
