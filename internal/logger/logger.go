package logger

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goserg/memberportal/internal/config"
)

// New builds the process logger. Production gets JSON lines at info level,
// everything else gets full-timestamp text, at trace level in debug mode.
func New(cfg config.Server) *logrus.Logger {
	l := logrus.New()
	if cfg.IsProduction() {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
		l.SetLevel(logrus.InfoLevel)
		return l
	}
	l.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.DateTime,
		FullTimestamp:   true,
	})
	l.SetLevel(logrus.DebugLevel)
	if cfg.Debug {
		l.SetLevel(logrus.TraceLevel)
	}
	return l
}

// Discard is a logger for tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
