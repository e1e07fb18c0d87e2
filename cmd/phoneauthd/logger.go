package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	auth "github.com/goliatone/go-phone-auth"
)

// zlogger adapts zerolog to auth.Logger
type zlogger struct {
	l zerolog.Logger
}

var _ auth.Logger = zlogger{}

func newLogger(debug bool) zlogger {
	return newLoggerTo(os.Stderr, debug)
}

func newLoggerTo(out io.Writer, debug bool) zlogger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
		out = zerolog.ConsoleWriter{Out: out}
	}

	return zlogger{
		l: zerolog.New(out).Level(level).With().Timestamp().Str("service", serviceName).Logger(),
	}
}

func (z zlogger) Debug(format string, args ...any) {
	z.l.Debug().Msgf(format, args...)
}

func (z zlogger) Info(format string, args ...any) {
	z.l.Info().Msgf(format, args...)
}

func (z zlogger) Warn(format string, args ...any) {
	z.l.Warn().Msgf(format, args...)
}

func (z zlogger) Error(format string, args ...any) {
	z.l.Error().Msgf(format, args...)
}
