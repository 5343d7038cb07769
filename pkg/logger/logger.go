package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger
func Init(level, format string) {
	zerolog.SetGlobalLevel(parseLevel(level))
	log.Logger = New(os.Stdout, level, format)
}

// New builds a logger writing to w. Format "console" gives human readable
// output, anything else JSON.
func New(w io.Writer, level, format string) zerolog.Logger {
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()
}

// Get returns the global logger
func Get() zerolog.Logger {
	return log.Logger
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
