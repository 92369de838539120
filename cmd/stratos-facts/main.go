// Command stratos-facts exposes the orchestrator's launch parameters as
// external facts. The configuration-management agent runs it once per
// fact-collection cycle and reads the facts from stdout.
package main

import (
	"io"
	"os"
	"syscall"

	"stratos-facts/pkg/facts"
	"stratos-facts/pkg/logging"
	"stratos-facts/pkg/payload"
	"stratos-facts/pkg/sigcontext"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

// readPayload reads the payload file.
var readPayload = os.ReadFile

func main() {
	os.Exit(_main(os.Args))
}

func _main(args []string) int {
	app := newApp()
	if err := app.Run(args); err != nil {
		var coder cli.ExitCoder
		if errors.As(err, &coder) {
			return coder.ExitCode()
		}
		// Flag parsing errors; urfave/cli has already printed them.
		return exitUsage
	}
	return 0
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "stratos-facts",
		Usage:           "print launch parameters from the node payload as facts",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: defaultConfigPath,
				Usage: "path to an optional TOML configuration file",
			},
			&cli.StringFlag{
				Name:  "payload",
				Usage: "path to the payload file (default " + payload.DefaultPath + ")",
			},
			&cli.StringFlag{
				Name:  "prefix",
				Usage: "prefix prepended to each key to form the fact name (default " + payload.DefaultPrefix + ")",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"o"},
				Usage:   "output format: text, json or yaml (default text)",
			},
			&cli.StringSliceFlag{
				Name:  "fact",
				Usage: "print only the named fact, may be repeated",
			},
			&cli.StringFlag{
				Name:  "lock-file",
				Usage: "take a shared lock on this file while reading the payload",
			},
			&cli.DurationFlag{
				Name:  "lock-timeout",
				Usage: "how long to wait for the payload lock (default 10s)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "append info and debug logs to this file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "log at debug level",
			},
			&cli.BoolFlag{
				Name:  "journal",
				Usage: "also send logs to the systemd journal",
			},
		},
		Action: run,
		// Exit codes are returned to _main instead of exiting inside Run.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func run(c *cli.Context) error {
	closeLog, logErr := setupLogging(c)
	defer closeLog()
	log := logging.New("main")
	switch {
	case errors.Cause(logErr) == logging.ErrJournalUnavailable:
		log.Debug("No systemd journal on this host, logging to stderr only")
	case logErr != nil:
		log.WithError(logErr).Warn("Logging is only partially configured")
	}

	s, err := resolveSettings(c)
	if err != nil {
		log.WithError(err).Error("Invalid configuration")
		return cli.Exit("", exitUsage)
	}

	ctx, cancel := sigcontext.WithSignalCancel(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	table := facts.NewTable()
	err = payload.Load(ctx, s.payload, table.Register,
		payload.WithPrefix(s.prefix),
		payload.WithLock(s.lockFile, s.lockTimeout),
		payload.WithLogger(logging.New("payload")),
		payload.WithReadFile(readPayload))
	if err != nil {
		entry := log.WithError(err).WithField("payload", s.payload)
		if sig, ok := sigcontext.Signal(ctx); ok {
			entry = entry.WithField("signal", sig.String())
		}
		entry.Error("Failed to load payload facts")
		return cli.Exit("", exitFailure)
	}

	resolved := table.Resolve()
	if names := c.StringSlice("fact"); len(names) > 0 {
		var missing []string
		resolved, missing = table.Lookup(names...)
		for _, name := range missing {
			log.WithField("fact", name).Warn("Requested fact is not in the payload")
		}
	}

	if s.format == facts.FormatText {
		var broken []facts.Resolved
		resolved, broken = facts.SingleLine(resolved)
		for _, r := range broken {
			log.WithField("fact", r.Name).Warn("Skipping fact with a line break in its name or value")
		}
	}

	if err := facts.Write(c.App.Writer, s.format, resolved); err != nil {
		log.WithError(err).Error("Failed to write facts")
		return cli.Exit("", exitFailure)
	}
	log.WithFields(logrus.Fields{
		"payload": s.payload,
		"facts":   len(resolved),
	}).Info("Wrote facts")
	return nil
}

// resolveSettings merges defaults, the config file and flags, in increasing
// precedence.
func resolveSettings(c *cli.Context) (settings, error) {
	s := defaultSettings()

	config, err := NewConfig(c.String("config"))
	if err != nil {
		return s, err
	}
	if err := config.apply(&s); err != nil {
		return s, errors.WithMessagef(err, "config %q", c.String("config"))
	}

	if c.IsSet("payload") {
		s.payload = c.String("payload")
	}
	if c.IsSet("prefix") {
		s.prefix = c.String("prefix")
	}
	if c.IsSet("format") {
		format, err := facts.ParseFormat(c.String("format"))
		if err != nil {
			return s, err
		}
		s.format = format
	}
	if c.IsSet("lock-file") {
		s.lockFile = c.String("lock-file")
	}
	if c.IsSet("lock-timeout") {
		s.lockTimeout = c.Duration("lock-timeout")
	}
	return s, nil
}

// setupLogging routes warnings and errors to stderr and info and debug output
// to the log file, or to stderr with --debug. Stdout is left for facts. The
// returned func closes the log file.
func setupLogging(c *cli.Context) (func(), error) {
	closer := func() {}
	verbose := io.Discard
	level := "info"
	if c.Bool("debug") {
		verbose = c.App.ErrWriter
		level = "debug"
	}

	var setupErr error
	if path := c.String("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			setupErr = errors.Wrapf(err, "open log file %q", path)
		} else {
			verbose = f
			closer = func() { f.Close() }
		}
	}

	hooks := []logrus.Hook{
		&LogSplitHook{c.App.ErrWriter, problemLevels},
		&LogSplitHook{verbose, verboseLevels},
	}
	if c.Bool("journal") {
		journalHook, err := logging.NewJournalHook(c.App.Name)
		if err != nil {
			if setupErr == nil {
				setupErr = err
			}
		} else {
			hooks = append(hooks, journalHook)
		}
	}

	_ = logging.Set(logging.Output(io.Discard))
	_ = logging.Set(logging.Hooks(hooks...))
	_ = logging.Set(logging.Level(level))
	return closer, setupErr
}
