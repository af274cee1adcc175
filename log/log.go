// Package log provides the logger used across the engine.
package log

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var debug bool

// Logger is a global interface for engine loggers.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
	Error(...interface{})
}

func init() {
	var err error
	debug, err = strconv.ParseBool(os.Getenv("NEUROMORE_DEBUG"))
	if err != nil {
		debug = false
	}
}

// GetLogger returns a new logger instance.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// WithComponent returns a logger that tags every entry with the component
// name. Loggers that are not logrus based are returned unchanged.
func WithComponent(l Logger, component string) Logger {
	if fl, ok := l.(logrus.FieldLogger); ok {
		return fl.WithField("component", component)
	}
	return l
}

type silentLogger struct{}

func (silentLogger) Debug(args ...interface{}) {}

func (silentLogger) Info(args ...interface{}) {}

func (silentLogger) Warn(args ...interface{}) {}

func (silentLogger) Error(args ...interface{}) {}

// Silent is a logger that drops everything. Components use it until
// WithLogger option is provided.
var Silent Logger = silentLogger{}
