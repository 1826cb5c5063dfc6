package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger writing to stderr. Verbose enables
// debug-level output.
func New(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.TimeOnly,
	}).Level(level).With().
		Timestamp().
		Logger()
}
