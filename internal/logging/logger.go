// Package logging builds the structured logger shared by the server and tooling.
//
// Usage:
//
//	log := logging.NewLogger("web", "info")
//	log.WithField("movie_id", id).Info("view recorded")
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates a logrus logger pre-configured for a named component.
// Output is JSON to stdout. An unparseable or empty level falls back to info.
func NewLogger(service, level string) *logrus.Entry {
	return newLogger(os.Stdout, service, level)
}

// Discard returns an entry that drops everything; handy in tests.
func Discard() *logrus.Entry {
	return newLogger(io.Discard, "test", "panic")
}

func newLogger(out io.Writer, service, level string) *logrus.Entry {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	log.SetOutput(out)

	parsed, err := logrus.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	return log.WithField("service", service)
}
