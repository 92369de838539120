package main

import (
	"io"

	"github.com/sirupsen/logrus"
)

var (
	problemLevels = []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
	verboseLevels = []logrus.Level{logrus.InfoLevel, logrus.DebugLevel, logrus.TraceLevel}
)

// LogSplitHook directs matched levels to its configured output.
type LogSplitHook struct {
	output io.Writer
	levels []logrus.Level
}

// Fire is invoked when logrus logs an entry at one of the hook's levels.
func (hook *LogSplitHook) Fire(entry *logrus.Entry) error {
	line, err := entry.Bytes()
	if err != nil {
		return err
	}
	_, err = hook.output.Write(line)
	return err
}

// Levels returns the log levels this hook is applied to.
func (hook *LogSplitHook) Levels() []logrus.Level {
	return hook.levels
}
