package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger. Production emits structured JSON on stdout;
// everything else gets the human-readable console writer at debug level.
func New(environment string) zerolog.Logger {
	var output io.Writer = os.Stdout
	level := zerolog.InfoLevel

	if environment != "production" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		level = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(level)

	return zerolog.New(output).With().
		Timestamp().
		Str("env", environment).
		Logger()
}
