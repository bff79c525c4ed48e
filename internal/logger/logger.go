// Package logger builds the daemon's zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a level name to a zerolog level. Unknown names fall back to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New returns a console logger writing to w at the given level.
// Under a service manager the journal adds its own timestamps, so they are
// left out.
func New(w io.Writer, level string, service bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    service,
	}
	if service {
		output.FormatTimestamp = func(interface{}) string { return "" }
	}

	return zerolog.New(output).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// IsService reports whether the process appears to run under systemd or
// another supervisor rather than an interactive shell.
func IsService() bool {
	if os.Getenv("INVOCATION_ID") != "" || os.Getenv("SERVICE_NAME") != "" {
		return true
	}
	return os.Getppid() == 1
}
