// SPDX-License-Identifier: GPL-3.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"io"

	"github.com/Thermoquad/grefw/pkg/gre"
	"github.com/rs/zerolog"
)

// zerologLogger adapts zerolog to gre.Logger
type zerologLogger struct {
	log zerolog.Logger
}

// newLogger writes human-readable log lines to w. --verbose enables debug output.
func newLogger(w io.Writer) gre.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	out := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
	}

	return &zerologLogger{
		log: zerolog.New(out).Level(level).With().Timestamp().Logger(),
	}
}

func (l *zerologLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *zerologLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Fields(keysAndValues).Msg(msg)
}

func (l *zerologLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}

func (l *zerologLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}
