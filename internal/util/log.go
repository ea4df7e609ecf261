package util

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	CTXKeyRequestID     contextKey = "request_id"
	CTXKeyDisableLogger contextKey = "disable_logger"
)

// LogFromContext returns the request-scoped logger stored in ctx, falling back to the
// global logger. Loggers can be suppressed for a context with DisableLogger.
func LogFromContext(ctx context.Context) *zerolog.Logger {
	l := log.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		if ShouldDisableLogger(ctx) {
			return l
		}

		l = &log.Logger
	}

	return l
}

// DisableLogger toggles the logger returned by LogFromContext for the given context.
func DisableLogger(ctx context.Context, shouldDisable bool) context.Context {
	return context.WithValue(ctx, CTXKeyDisableLogger, shouldDisable)
}

func ShouldDisableLogger(ctx context.Context) bool {
	s := ctx.Value(CTXKeyDisableLogger)
	if s == nil {
		return false
	}

	shouldDisable, ok := s.(bool)
	if !ok {
		return false
	}

	return shouldDisable
}

// RequestIDFromContext returns the id set by the request id middleware or an empty string.
func RequestIDFromContext(ctx context.Context) string {
	id, ok := ctx.Value(CTXKeyRequestID).(string)
	if !ok {
		return ""
	}

	return id
}

// ConfigureLogger sets the global log level and, if requested, a human friendly console writer.
func ConfigureLogger(level zerolog.Level, prettyPrintConsole bool, caller bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(level)

	logger := log.Logger
	if prettyPrintConsole {
		logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
			w.TimeFormat = "15:04:05"
		}))
	}

	if caller {
		logger = logger.With().Caller().Logger()
	}

	log.Logger = logger
}

// LogLevelFromString parses the given level, defaulting to debug for unknown values.
func LogLevelFromString(s string) zerolog.Level {
	l, err := zerolog.ParseLevel(s)
	if err != nil {
		log.Error().Err(err).Msgf("Failed to parse log level, defaulting to %s", zerolog.DebugLevel)
		return zerolog.DebugLevel
	}

	return l
}
