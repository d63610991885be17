// Package logging provides structured logging for assessd.
//
// # Overview
//
// The package wraps Zap with:
//   - A custom Trace level (-2, below Debug)
//   - Dual output (stdout + OpenTelemetry log bridge)
//   - Context field injection (trace_id, request.id, assessment.id)
//   - Secret redaction at the encoder
//   - Per-level sampling (errors are never sampled)
//   - A capture core that collects human-readable lines for API responses
//
// # Usage
//
//	cfg, err := logging.FromSettings("info", "json")
//	logger, err := logging.NewLogger(cfg, nil)
//	defer logger.Sync()
//
//	ctx = logging.WithAssessmentID(ctx, id)
//	logger.Info(ctx, "batch saved", zap.Int("upserted", n))
//
// Services take a plain *zap.Logger; pass logger.Underlying().
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "imported", zap.Int("count", 3))
//	tl.AssertLogged(t, zapcore.InfoLevel, "imported")
package logging
