// File path: internal/common/log.go
package common

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultLogHistory = 1000

var (
	logger     *zap.SugaredLogger
	loggerOnce sync.Once
	sink       = newLogSink(defaultLogHistory)
)

// LogEntry represents a captured log record emitted via the common logger.
type LogEntry struct {
	Time       time.Time              `json:"time"`
	Level      string                 `json:"level"`
	Message    string                 `json:"message"`
	Component  string                 `json:"component,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Logger returns a singleton zap logger configured via the LOG_LEVEL and
// LOG_MODE environment variables.
func Logger() *zap.SugaredLogger {
	loggerOnce.Do(func() {
		level := parseLevel(os.Getenv("LOG_LEVEL"))
		var cfg zap.Config
		switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_MODE"))) {
		case "prod", "production":
			cfg = zap.NewProductionConfig()
		default:
			cfg = zap.NewDevelopmentConfig()
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
		base, err := cfg.Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "logger init failed, falling back to nop: %v\n", err)
			base = zap.NewNop()
		}
		captured := base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, &capturingCore{LevelEnabler: level, sink: sink})
		}))
		logger = captured.Sugar()
	})
	return logger
}

// SyncLogger flushes buffered log entries. Safe to call before Logger.
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}

// LogEntries returns a copy of the captured log entries.
func LogEntries() []LogEntry {
	if sink == nil {
		return nil
	}
	return sink.entries()
}

func parseLevel(value string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

type capturingCore struct {
	zapcore.LevelEnabler
	sink   *logSink
	fields []zapcore.Field
}

func (c *capturingCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &capturingCore{LevelEnabler: c.LevelEnabler, sink: c.sink, fields: merged}
}

func (c *capturingCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *capturingCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if c.sink == nil {
		return nil
	}
	all := fields
	if len(c.fields) > 0 {
		all = append(append([]zapcore.Field(nil), c.fields...), fields...)
	}
	c.sink.capture(buildLogEntry(entry, all))
	return nil
}

func (c *capturingCore) Sync() error { return nil }

type logSink struct {
	mu      sync.RWMutex
	max     int
	history []LogEntry
}

func newLogSink(max int) *logSink {
	if max <= 0 {
		max = defaultLogHistory
	}
	return &logSink{max: max}
}

func (s *logSink) capture(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, entry)
	if len(s.history) > s.max {
		s.history = s.history[len(s.history)-s.max:]
	}
}

func (s *logSink) entries() []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.history) == 0 {
		return nil
	}
	out := make([]LogEntry, len(s.history))
	copy(out, s.history)
	return out
}

func buildLogEntry(record zapcore.Entry, fields []zapcore.Field) LogEntry {
	entry := LogEntry{
		Time:    record.Time,
		Level:   strings.ToLower(record.Level.String()),
		Message: record.Message,
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	entry.Time = entry.Time.UTC()

	if len(fields) > 0 {
		enc := zapcore.NewMapObjectEncoder()
		for _, field := range fields {
			field.AddTo(enc)
		}
		if component, ok := enc.Fields["component"]; ok {
			entry.Component = strings.TrimSpace(fmt.Sprint(component))
			delete(enc.Fields, "component")
		}
		if len(enc.Fields) > 0 {
			entry.Attributes = enc.Fields
		}
	}

	if entry.Component == "" {
		if idx := strings.Index(entry.Message, ":"); idx > 0 {
			entry.Component = strings.TrimSpace(entry.Message[:idx])
		}
	}
	return entry
}
