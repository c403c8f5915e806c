// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// MediaProc - FFmpeg 转码与截图工具

package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger provides a simple logging interface
type Logger interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

// Config for a zerolog backed logger
type Config struct {
	Level  string
	Output io.Writer
}

type zeroLogger struct {
	zl zerolog.Logger
}

// New returns a logger writing to stdout at info level, tagged with component
func New(component string) Logger {
	return NewWithConfig(component, Config{})
}

// NewWithConfig returns a logger tagged with component
func NewWithConfig(component string, config Config) Logger {
	level := zerolog.InfoLevel
	if config.Level != "" {
		if parsed, err := zerolog.ParseLevel(config.Level); err == nil {
			level = parsed
		}
	}

	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339
	zl := zerolog.New(out).Level(level).With().
		Timestamp().
		Str("component", component).
		Logger()

	return &zeroLogger{zl: zl}
}

// With returns a child logger with an extra string field
func With(l Logger, key, value string) Logger {
	if zl, ok := l.(*zeroLogger); ok {
		return &zeroLogger{zl: zl.zl.With().Str(key, value).Logger()}
	}
	return l
}

func (l *zeroLogger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

func (l *zeroLogger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *zeroLogger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

func (l *zeroLogger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

// Nop returns a logger that discards everything
func Nop() Logger {
	return &zeroLogger{zl: zerolog.Nop()}
}
