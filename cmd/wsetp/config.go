package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/progrium/wsetp-go/fn"
	"github.com/progrium/wsetp-go/peer"
	"github.com/rs/zerolog"
)

// Config holds CLI configuration for wsetp.
type Config struct {
	// Transport and Addr dial an already running worker. When Transport is
	// empty the worker is spawned as a subprocess instead.
	Transport string
	Addr      string
	Exec      string

	Failure   string
	Retention string
	Module    bool
	Insecure  bool

	Timeout  time.Duration
	LogLevel string
	Trace    string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Failure:   "tagged",
		Retention: "persistent",
		Timeout:   30 * time.Second,
		LogLevel:  "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Transport != "" {
		if _, ok := peer.Dialers[c.Transport]; !ok {
			return fmt.Errorf("unknown transport %q", c.Transport)
		}
	}
	if _, err := c.FailureMode(); err != nil {
		return err
	}
	if _, err := c.RetentionPolicy(); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log-level: %w", err)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// FailureMode parses the failure setting.
func (c *Config) FailureMode() (peer.FailureMode, error) {
	switch strings.ToLower(c.Failure) {
	case "", "tagged":
		return peer.Tagged, nil
	case "collapsed":
		return peer.Collapsed, nil
	default:
		return 0, fmt.Errorf("unknown failure mode %q", c.Failure)
	}
}

// RetentionPolicy parses the retention setting: "persistent", "single-use",
// or a duration after which registered functions expire.
func (c *Config) RetentionPolicy() (fn.RegistryOption, error) {
	switch strings.ToLower(c.Retention) {
	case "", "persistent":
		return fn.Persistent(), nil
	case "single-use":
		return fn.SingleUse(), nil
	}
	ttl, err := time.ParseDuration(c.Retention)
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("unknown retention %q", c.Retention)
	}
	return fn.Expiring(ttl), nil
}

// FileConfig represents the TOML configuration file structure.
type FileConfig struct {
	Transport string `toml:"transport"`
	Addr      string `toml:"addr"`
	Exec      string `toml:"exec"`
	Failure   string `toml:"failure"`
	Retention string `toml:"retention"`
	Module    *bool  `toml:"module"`
	Insecure  *bool  `toml:"insecure"`
	Timeout   string `toml:"timeout"`
	LogLevel  string `toml:"log_level"`
	Trace     string `toml:"trace"`
}

// DefaultConfigPath returns the default config file path (~/.wsetp/config.toml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".wsetp", "config.toml")
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadFileConfig loads configuration from a TOML file. A missing file is not
// an error.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &FileConfig{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var fc FileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &fc, nil
}

// configSetter applies values only where the corresponding flag was not set
// explicitly on the command line.
type configSetter struct {
	changed map[string]bool
}

func (s configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s configSetter) setBoolFromString(flag, value string, dst *bool) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = b
	return nil
}

func (s configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// ApplyFileConfig applies file values to cfg, skipping changed flags.
func ApplyFileConfig(cfg *Config, fc *FileConfig, changed map[string]bool) error {
	s := configSetter{changed: changed}
	s.setString("transport", fc.Transport, &cfg.Transport)
	s.setString("addr", fc.Addr, &cfg.Addr)
	s.setString("exec", fc.Exec, &cfg.Exec)
	s.setString("failure", fc.Failure, &cfg.Failure)
	s.setString("retention", fc.Retention, &cfg.Retention)
	s.setBool("module", fc.Module, &cfg.Module)
	s.setBool("insecure", fc.Insecure, &cfg.Insecure)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("trace", fc.Trace, &cfg.Trace)
	return s.setDuration("timeout", fc.Timeout, &cfg.Timeout)
}

// ApplyEnvConfig applies WSETP_* environment variables to cfg, skipping
// changed flags.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := configSetter{changed: changed}
	s.setString("transport", os.Getenv("WSETP_TRANSPORT"), &cfg.Transport)
	s.setString("addr", os.Getenv("WSETP_ADDR"), &cfg.Addr)
	s.setString("exec", os.Getenv("WSETP_EXEC"), &cfg.Exec)
	s.setString("failure", os.Getenv("WSETP_FAILURE"), &cfg.Failure)
	s.setString("retention", os.Getenv("WSETP_RETENTION"), &cfg.Retention)
	s.setString("log-level", os.Getenv("WSETP_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("trace", os.Getenv("WSETP_TRACE"), &cfg.Trace)
	if err := s.setBoolFromString("insecure", os.Getenv("WSETP_INSECURE"), &cfg.Insecure); err != nil {
		return err
	}
	return s.setDuration("timeout", os.Getenv("WSETP_TIMEOUT"), &cfg.Timeout)
}
