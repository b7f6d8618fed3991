// Package logging builds the hclog loggers shared by tokenvault components.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"
)

// Options configures the root logger.
type Options struct {
	Name   string
	Level  string
	JSON   bool
	Output io.Writer
}

// New returns the root logger. Unknown levels fall back to info.
func New(opts Options) hclog.Logger {
	level := hclog.LevelFromString(opts.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	name := opts.Name
	if name == "" {
		name = "tokenvault"
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      level,
		Output:     output,
		JSONFormat: opts.JSON,
	})
}

// OrNull returns l, or a logger that discards everything when l is nil.
func OrNull(l hclog.Logger) hclog.Logger {
	if l == nil {
		return hclog.NewNullLogger()
	}
	return l
}

// CronLogger adapts l to the cron.Logger interface. Routine cron messages
// are logged at debug level.
func CronLogger(l hclog.Logger) cron.Logger {
	return cronLogger{logger: OrNull(l)}
}

type cronLogger struct {
	logger hclog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := make([]interface{}, 0, len(keysAndValues)+2)
	args = append(args, "error", err)
	args = append(args, keysAndValues...)
	c.logger.Error(msg, args...)
}

// ValidLevel reports whether s names an hclog level.
func ValidLevel(s string) bool {
	return hclog.LevelFromString(strings.TrimSpace(s)) != hclog.NoLevel
}
