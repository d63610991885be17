package logging

import (
	"testing"
	"time"

	"github.com/fyrsmithlabs/assessd/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func encodeLine(t *testing.T, enc zapcore.Encoder, fields ...zap.Field) string {
	t.Helper()
	buf, err := enc.EncodeEntry(zapcore.Entry{
		Level:   zapcore.InfoLevel,
		Time:    time.Unix(0, 0),
		Message: "connecting",
	}, fields)
	require.NoError(t, err)
	return buf.String()
}

func TestRedactingEncoder_FieldNames(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	line := encodeLine(t, enc,
		zap.String("dsn", "host=db password=hunter2"),
		zap.String("Password", "hunter2"),
		zap.String("driver", "postgres"),
	)

	assert.NotContains(t, line, "hunter2")
	assert.Contains(t, line, `"driver":"postgres"`)
	assert.Contains(t, line, `"dsn":"[REDACTED]"`)
}

func TestRedactingEncoder_ValuePatterns(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	line := encodeLine(t, enc,
		zap.String("error", "dial postgres://assess:s3cret@db:5432/assess failed"),
		zap.String("header", "Bearer abc.def.ghi"),
	)

	assert.NotContains(t, line, "s3cret")
	assert.NotContains(t, line, "abc.def.ghi")
	assert.Contains(t, line, "[REDACTED:pattern]")
}

func TestRedactingEncoder_WithFields(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	child := enc.Clone()
	child.AddString("token", "abc123")

	assert.NotContains(t, encodeLine(t, child), "abc123")
}

func TestRedactingEncoder_Disabled(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{Enabled: false})
	require.NoError(t, err)

	assert.Contains(t, encodeLine(t, enc, zap.String("password", "visible")), "visible")
}

func TestNewRedactingEncoder_InvalidPattern(t *testing.T) {
	_, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{
		Enabled:  true,
		Patterns: []string{"(unclosed"},
	})
	assert.Error(t, err)
}

func TestSecretAndRedactedString(t *testing.T) {
	tl := NewTestLogger()
	tl.Underlying().Info("opening database",
		Secret("dsn", config.Secret("host=db password=x")),
		RedactedString("token", "abcdef"),
	)

	entries := tl.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, map[string]interface{}{"dsn": "[REDACTED:18]"}, ctx["dsn"])
	assert.Equal(t, "[REDACTED:6]", ctx["token"])
}
