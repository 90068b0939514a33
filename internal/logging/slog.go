package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// SlogLogger writes through log/slog. Loggers derived with With share the
// level of their parent, so SetLevel on any of them applies to all.
type SlogLogger struct {
	l     *slog.Logger
	level *slog.LevelVar
}

// NewSlogLogger wraps an existing slog.Logger. Its handler keeps control of
// the level and SetLevel only filters on top of it.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	lv := new(slog.LevelVar)
	lv.Set(slog.LevelDebug)
	return &SlogLogger{l: l, level: lv}
}

// NewSlogJSON writes JSON lines to w starting at level.
func NewSlogJSON(w io.Writer, level string) (*SlogLogger, error) {
	lv := new(slog.LevelVar)
	s := &SlogLogger{level: lv}
	if err := s.SetLevel(level); err != nil {
		return nil, err
	}
	s.l = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lv}))
	return s, nil
}

// SetLevel changes the minimum level ("debug", "info", "warn", "error").
func (s *SlogLogger) SetLevel(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	s.level.Set(lvl)
	return nil
}

func (s *SlogLogger) log(ctx context.Context, lvl slog.Level, msg string, args []any) {
	if lvl < s.level.Level() {
		return
	}
	s.l.Log(ctx, lvl, msg, args...)
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelDebug, msg, args)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelInfo, msg, args)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelWarn, msg, args)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelError, msg, args)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...), level: s.level}
}
