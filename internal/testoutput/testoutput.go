package testoutput

import (
	"io"
	"os"
	"testing"

	"stratos-facts/pkg/logging"

	"github.com/sirupsen/logrus"
)

// New returns a writer that writes strings (assuming lines) to the testing
// logger.
func New(t testing.TB) io.Writer {
	return &testoutput{t}
}

// Logger returns a debug-level logger for component that writes only to the
// test's log. It does not share the root logger, so it is safe in parallel
// tests.
func Logger(t testing.TB, component string) logging.Logger {
	l := logrus.New()
	l.SetOutput(New(t))
	l.SetLevel(logrus.DebugLevel)
	return l.WithField("component", component)
}

// Setter may be given to logging to send the root logger's output to the
// testing facade. Tests using it must not run in parallel.
func Setter(t testing.TB) logging.Setter {
	return func(l *logrus.Logger) error {
		l.SetOutput(New(t))
		l.SetLevel(logrus.DebugLevel)
		return nil
	}
}

// Revert restores the root logger to write to stderr with no hooks.
func Revert() logging.Setter {
	return func(l *logrus.Logger) error {
		l.SetOutput(os.Stderr)
		l.SetLevel(logrus.InfoLevel)
		l.ReplaceHooks(make(logrus.LevelHooks))
		return nil
	}
}

type testoutput struct {
	t testing.TB
}

func (l *testoutput) Write(p []byte) (n int, err error) {
	l.t.Logf("%s", p)
	return len(p), nil
}
