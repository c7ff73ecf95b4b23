// Package logging builds the hclog loggers shared by every component.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	levelEnv = "RDKITWRAP_LOG_LEVEL"
	jsonEnv  = "RDKITWRAP_JSON_LOG"
)

// New creates a logger with standard settings. An empty level falls back to
// Level().
func New(name, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}
	if level == "" {
		level = Level()
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: os.Getenv(jsonEnv) == "1",
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// Level returns the configured log level from environment.
func Level() string {
	level := os.Getenv(levelEnv)
	if level == "" {
		level = "info"
	}
	return level
}

// OrNull returns l, or a logger that discards everything when l is nil.
func OrNull(l hclog.Logger) hclog.Logger {
	if l == nil {
		return hclog.NewNullLogger()
	}
	return l
}
