package logging

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CaptureSink collects human-readable log lines, e.g. to return import
// progress to an API caller alongside the structured log stream.
type CaptureSink struct {
	mu    sync.Mutex
	lines []string
}

// Lines returns a copy of the captured lines in write order.
func (s *CaptureSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *CaptureSink) add(line string) {
	s.mu.Lock()
	s.lines = append(s.lines, line)
	s.mu.Unlock()
}

// CaptureLogs returns a child of base that also writes every entry at or
// above level into the returned sink.
func CaptureLogs(base *zap.Logger, level zapcore.LevelEnabler) (*zap.Logger, *CaptureSink) {
	if base == nil {
		base = zap.NewNop()
	}
	sink := &CaptureSink{}
	capture := &captureCore{LevelEnabler: level, sink: sink}
	logger := base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, capture)
	}))
	return logger, sink
}

type captureCore struct {
	zapcore.LevelEnabler
	sink   *CaptureSink
	fields []zapcore.Field
}

func (c *captureCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &captureCore{LevelEnabler: c.LevelEnabler, sink: c.sink, fields: merged}
}

func (c *captureCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *captureCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	c.sink.add(formatLine(ent.Message, append(c.fields[:len(c.fields):len(c.fields)], fields...)))
	return nil
}

func (c *captureCore) Sync() error { return nil }

// formatLine renders "message key=value key=value" with sorted keys.
func formatLine(msg string, fields []zapcore.Field) string {
	if len(fields) == 0 {
		return msg
	}
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, enc.Fields[k])
	}
	return b.String()
}
