package main

import (
	"os"
	"time"

	"stratos-facts/pkg/facts"
	"stratos-facts/pkg/payload"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

const defaultConfigPath = "/etc/stratos-facts/config.toml"

// Config is the on-disk configuration. Every field is optional.
type Config struct {
	Payload     string `toml:"payload"`
	Prefix      string `toml:"prefix"`
	Format      string `toml:"format"`
	LockFile    string `toml:"lock-file"`
	LockTimeout string `toml:"lock-timeout"`
}

// settings is the configuration after defaults, the config file and flags
// have been merged and validated.
type settings struct {
	payload     string
	prefix      string
	format      facts.Format
	lockFile    string
	lockTimeout time.Duration
}

func defaultSettings() settings {
	return settings{
		payload:     payload.DefaultPath,
		prefix:      payload.DefaultPrefix,
		format:      facts.FormatText,
		lockTimeout: payload.DefaultLockTimeout,
	}
}

// NewConfig unmarshals a configuration file. A missing file yields an empty
// Config.
func NewConfig(configFile string) (*Config, error) {
	raw, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, errors.Wrapf(err, "read config %q", configFile)
	}

	config := Config{}
	if err := toml.Unmarshal(raw, &config); err != nil {
		return nil, errors.Wrapf(err, "parse config %q", configFile)
	}
	return &config, nil
}

// apply overlays the config file's values on s.
func (c *Config) apply(s *settings) error {
	if c.Payload != "" {
		s.payload = c.Payload
	}
	if c.Prefix != "" {
		s.prefix = c.Prefix
	}
	if c.Format != "" {
		format, err := facts.ParseFormat(c.Format)
		if err != nil {
			return err
		}
		s.format = format
	}
	if c.LockFile != "" {
		s.lockFile = c.LockFile
	}
	if c.LockTimeout != "" {
		timeout, err := time.ParseDuration(c.LockTimeout)
		if err != nil {
			return errors.Wrapf(err, "parse lock-timeout %q", c.LockTimeout)
		}
		s.lockTimeout = timeout
	}
	return nil
}
