package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Options selects how compoctl reports what it is doing
type Options struct {
	Level   string
	Format  string
	Quiet   bool
	Verbose bool
}

// New builds the process logger. Quiet keeps warnings and errors only,
// verbose turns on debug output; both override Level.
func New(out io.Writer, opts Options) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	switch {
	case opts.Verbose:
		level = logrus.DebugLevel
	case opts.Quiet:
		level = logrus.WarnLevel
	}
	logger.SetLevel(level)

	switch opts.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}

	return logger
}
