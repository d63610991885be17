package logging

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCaptureLogs(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)

	logger, sink := CaptureLogs(zap.New(core), zapcore.InfoLevel)
	logger.With(zap.String("file", "q.csv")).Info("parsed rows", zap.Int("rows", 3), zap.Int("duplicates", 1))
	logger.Debug("row detail")
	logger.Warn("missing question id")

	assert.Equal(t, []string{
		"parsed rows duplicates=1 file=q.csv rows=3",
		"missing question id",
	}, sink.Lines())
	assert.Equal(t, 3, observed.Len(), "base core still receives every entry")
}

func TestCaptureLogs_NilBase(t *testing.T) {
	logger, sink := CaptureLogs(nil, zapcore.InfoLevel)
	logger.Info("hello")
	assert.Equal(t, []string{"hello"}, sink.Lines())
}

func TestCaptureSink_Concurrent(t *testing.T) {
	logger, sink := CaptureLogs(nil, zapcore.InfoLevel)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("line")
		}()
	}
	wg.Wait()

	assert.Len(t, sink.Lines(), 20)
}

func TestSampledCore_ErrorsNeverSampled(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	cfg := NewDefaultConfig().Sampling
	cfg.Levels = map[zapcore.Level]LevelSamplingConfig{
		zapcore.InfoLevel: {Initial: 1, Thereafter: 0},
	}

	logger := zap.New(newSampledCore(core, cfg))
	for i := 0; i < 5; i++ {
		logger.Info("repeated")
		logger.Error("failure")
	}

	assert.Equal(t, 1, observed.FilterMessage("repeated").Len())
	assert.Equal(t, 5, observed.FilterMessage("failure").Len())
}
