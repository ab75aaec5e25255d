// Package logger provides the logging facade used across the mgeo application.
//
// The package exposes printf-style level functions (Info, Warn, Error, Debug)
// backed by a shared logrus logger. Server code and long-running commands log
// through this facade so that verbosity and formatting are controlled in one
// place.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// log is the shared logrus instance behind the package-level functions.
var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// SetDebug enables or disables debug-level logging.
func SetDebug(enabled bool) {
	if enabled {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// Debug logs a debug-level message with printf formatting.
func Debug(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// Info logs an info-level message with printf formatting.
func Info(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Warn logs a warning-level message with printf formatting.
func Warn(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Error logs an error-level message with printf formatting.
func Error(format string, args ...interface{}) {
	log.Errorf(format, args...)
}
