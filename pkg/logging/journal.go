package logging

import (
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ErrJournalUnavailable is returned when no journald socket can be reached.
var ErrJournalUnavailable = errors.New("systemd journal is not available")

// JournalHook forwards log entries to the systemd journal, carrying the
// entry's fields as journal fields.
type JournalHook struct {
	identifier string
}

// NewJournalHook returns a hook that tags entries with identifier as their
// SYSLOG_IDENTIFIER.
func NewJournalHook(identifier string) (*JournalHook, error) {
	if !journal.Enabled() {
		return nil, ErrJournalUnavailable
	}
	return &JournalHook{identifier: identifier}, nil
}

// Levels reports that every level is forwarded.
func (hook *JournalHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire sends the entry to the journal.
func (hook *JournalHook) Fire(entry *logrus.Entry) error {
	vars := make(map[string]string, len(entry.Data)+1)
	for k, v := range entry.Data {
		vars[journalField(k)] = fmt.Sprint(v)
	}
	vars["SYSLOG_IDENTIFIER"] = hook.identifier
	return journal.Send(entry.Message, journalPriority(entry.Level), vars)
}

// journalField converts a logrus field name to a valid journal field name:
// uppercase ASCII letters, digits and underscores, not starting with an
// underscore.
func journalField(name string) string {
	field := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	field = strings.TrimLeft(field, "_")
	if field == "" {
		return "FIELD"
	}
	return field
}

func journalPriority(level logrus.Level) journal.Priority {
	switch level {
	case logrus.PanicLevel:
		return journal.PriAlert
	case logrus.FatalLevel:
		return journal.PriCrit
	case logrus.ErrorLevel:
		return journal.PriErr
	case logrus.WarnLevel:
		return journal.PriWarning
	case logrus.InfoLevel:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}
