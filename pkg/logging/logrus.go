package logging

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Setter adjusts the shared root logger.
type Setter func(*logrus.Logger) error

var root = struct {
	logger *logrus.Logger
	mutex  *sync.Mutex
}{
	logger: func() *logrus.Logger {
		l := logrus.New()

		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})

		return l
	}(),
	mutex: &sync.Mutex{},
}

// Logger is the logging handle handed to components.
type Logger = logrus.FieldLogger

// New returns a logger tagged with the given component name. Setters are
// applied to the root logger before it is returned; their errors are dropped.
func New(component string, setters ...Setter) Logger {
	for _, setter := range setters {
		_ = Set(setter)
	}
	return root.logger.WithField("component", component)
}

// Set applies setter to the root logger.
func Set(setter Setter) error {
	root.mutex.Lock()
	defer root.mutex.Unlock()
	return setter(root.logger)
}

// Level sets the minimum level logged, given by name ("debug", "info", ...).
func Level(lvl string) Setter {
	return func(r *logrus.Logger) error {
		l, err := logrus.ParseLevel(lvl)
		if err != nil {
			return errors.Wrapf(err, "unable to parse log level %q", lvl)
		}
		r.SetLevel(l)
		return nil
	}
}

// Output sets where the root logger's formatted entries are written.
// Hooks fire regardless of the output.
func Output(w io.Writer) Setter {
	return func(r *logrus.Logger) error {
		r.SetOutput(w)
		return nil
	}
}

// Hooks replaces every hook on the root logger with hooks.
func Hooks(hooks ...logrus.Hook) Setter {
	return func(r *logrus.Logger) error {
		levelHooks := make(logrus.LevelHooks)
		for _, hook := range hooks {
			levelHooks.Add(hook)
		}
		r.ReplaceHooks(levelHooks)
		return nil
	}
}
