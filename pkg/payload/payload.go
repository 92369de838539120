// Package payload turns the launch parameters dropped on a node by the
// orchestrator into named facts.
//
// The payload is a single line of comma separated entries, each of the form
// key=value:
//
//	PORT=8080, HOST_NAME = app.example.com ,MULTITENANT=false
//
// Every entry is registered as a fact named after its key with a prefix,
// "stratos_" by default. Entries are not validated: an entry without "=" gets
// an empty value and an empty entry gets an empty key.
package payload

import (
	"context"
	"os"
	"strings"
	"syscall"
	"time"

	"stratos-facts/pkg/logging"

	"github.com/pkg/errors"
)

const (
	// DefaultPath is where the orchestrator drops the launch parameters.
	DefaultPath = "/tmp/payload/launch-params"
	// DefaultPrefix is prepended to each key to name its fact.
	DefaultPrefix = "stratos_"
	// DefaultLockTimeout bounds the wait for the payload lock.
	DefaultLockTimeout = 10 * time.Second
)

// Entry is one key/value pair from the payload.
type Entry struct {
	Key   string
	Value string
}

// Parse splits the payload contents into entries. Contents that are empty or
// only whitespace produce no entries; otherwise every comma separated segment
// produces exactly one entry, in order. The value is everything after the
// first "=", so "a=1=2" yields key "a" and value "1=2".
func Parse(contents string) []Entry {
	if strings.TrimSpace(contents) == "" {
		return nil
	}
	segments := strings.Split(contents, ",")
	entries := make([]Entry, 0, len(segments))
	for _, segment := range segments {
		key, value, _ := strings.Cut(strings.TrimSpace(segment), "=")
		entries = append(entries, Entry{
			Key:   strings.TrimSpace(key),
			Value: strings.TrimSpace(value),
		})
	}
	return entries
}

// RegisterFunc binds a fact name to its value in the host's fact table.
type RegisterFunc func(name, value string)

// Loader reads a payload file and registers its entries.
type Loader struct {
	path        string
	prefix      string
	lockPath    string
	lockTimeout time.Duration
	log         logging.Logger
	readFile    func(string) ([]byte, error)
}

// Option configures a Loader.
type Option func(*Loader)

// WithPrefix names facts with prefix instead of DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(l *Loader) {
		l.prefix = prefix
	}
}

// WithLock holds a shared lock on lockPath while the payload is read. An
// empty lockPath disables locking; a non-positive timeout uses
// DefaultLockTimeout.
func WithLock(lockPath string, timeout time.Duration) Option {
	return func(l *Loader) {
		l.lockPath = lockPath
		if timeout > 0 {
			l.lockTimeout = timeout
		}
	}
}

// WithLogger sets the logger used for the loader's debug output.
func WithLogger(log logging.Logger) Option {
	return func(l *Loader) {
		l.log = log
	}
}

// WithReadFile replaces os.ReadFile as the way the payload is read.
func WithReadFile(readFile func(string) ([]byte, error)) Option {
	return func(l *Loader) {
		l.readFile = readFile
	}
}

// NewLoader returns a Loader for the payload at path.
func NewLoader(path string, opts ...Option) *Loader {
	l := &Loader{
		path:        path,
		prefix:      DefaultPrefix,
		lockTimeout: DefaultLockTimeout,
		log:         logging.New("payload"),
		readFile:    os.ReadFile,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the payload at path and calls register once per entry. See
// Loader.Load.
func Load(ctx context.Context, path string, register RegisterFunc, opts ...Option) error {
	return NewLoader(path, opts...).Load(ctx, register)
}

// Load registers one fact per payload entry. A missing payload, or anything
// other than a regular file at the path, is not an error and registers
// nothing. A payload that exists but cannot be read is returned as an error
// before any fact is registered.
func (l *Loader) Load(ctx context.Context, register RegisterFunc) error {
	log := l.log.WithField("payload", l.path)

	present, err := l.present(log)
	if err != nil {
		return err
	}
	if !present {
		log.Debug("No payload present, nothing to register")
		return nil
	}

	if l.lockPath != "" {
		unlock, err := l.lock(ctx)
		if err != nil {
			return err
		}
		defer unlock()
	}

	raw, err := l.readFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("Payload removed before it was read, nothing to register")
			return nil
		}
		return errors.Wrapf(err, "read payload %q", l.path)
	}

	entries := Parse(string(raw))
	for _, entry := range entries {
		register(l.prefix+entry.Key, entry.Value)
	}
	log.WithField("entries", len(entries)).Debug("Registered payload facts")
	return nil
}

func (l *Loader) present(log logging.Logger) (bool, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		if os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR) {
			return false, nil
		}
		return false, errors.Wrapf(err, "stat payload %q", l.path)
	}
	if !info.Mode().IsRegular() {
		log.WithField("mode", info.Mode().String()).Warn("Payload path is not a regular file, ignoring")
		return false, nil
	}
	return true, nil
}
