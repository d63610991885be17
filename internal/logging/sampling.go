package logging

import (
	"go.uber.org/zap/zapcore"
)

// sampledLevels lists the levels eligible for sampling, lowest first.
var sampledLevels = []zapcore.Level{
	TraceLevel,
	zapcore.DebugLevel,
	zapcore.InfoLevel,
	zapcore.WarnLevel,
}

// newSampledCore wraps core with per-level sampling. Each level below Error
// gets its own sampler from cfg.Levels; levels without an entry and Error+
// pass through unsampled.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	cores := make([]zapcore.Core, 0, len(sampledLevels)+1)
	for _, lvl := range sampledLevels {
		band := &bandCore{Core: core, min: lvl, max: lvl}
		rate, ok := cfg.Levels[lvl]
		if !ok {
			cores = append(cores, band)
			continue
		}
		cores = append(cores, zapcore.NewSamplerWithOptions(
			band,
			cfg.Tick.Duration(),
			rate.Initial,
			rate.Thereafter,
		))
	}
	cores = append(cores, &bandCore{Core: core, min: zapcore.ErrorLevel, max: zapcore.FatalLevel})

	return zapcore.NewTee(cores...)
}

// bandCore only admits entries with min <= level <= max.
type bandCore struct {
	zapcore.Core
	min zapcore.Level
	max zapcore.Level
}

func (c *bandCore) Enabled(lvl zapcore.Level) bool {
	if lvl < c.min || lvl > c.max {
		return false
	}
	return c.Core.Enabled(lvl)
}

func (c *bandCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// With creates a child core that keeps the band.
func (c *bandCore) With(fields []zapcore.Field) zapcore.Core {
	return &bandCore{
		Core: c.Core.With(fields),
		min:  c.min,
		max:  c.max,
	}
}
