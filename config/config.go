// Package config provides configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/artpar/envguard/core/formatter"
	"github.com/artpar/envguard/core/schema"
	"github.com/artpar/envguard/dotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Env      EnvConfig      `yaml:"env"`
	Export   ExportConfig   `yaml:"export"`
	Destruct DestructConfig `yaml:"destruct"`
	Watch    WatchConfig    `yaml:"watch"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// EnvConfig locates the env file and its schema.
type EnvConfig struct {
	File    string `yaml:"file"`    // dotenv file (default: .env)
	Schema  string `yaml:"schema"`  // YAML schema file, optional
	Process bool   `yaml:"process"` // overlay the process environment on the file
}

// ExportConfig configures export output.
type ExportConfig struct {
	Format        string `yaml:"format"`         // "env", "yaml", "json" or "table"
	HeaderPattern string `yaml:"header_pattern"` // regexp with one capture group
	Redact        bool   `yaml:"redact"`         // mask self-destructing values
	TreeSeparator string `yaml:"tree_separator"` // nest keys for yaml/json, e.g. "__"
}

// DestructConfig configures self-destructing values.
type DestructConfig struct {
	// PollInterval enables background destruction for every destruct field.
	// Zero leaves destruction on read only.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// WatchConfig configures hot reload.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"` // watch env and schema files
	Signals bool `yaml:"signals"` // reload on SIGHUP
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	ENVGUARD_ENV_FILE              - dotenv file (default: .env)
//	ENVGUARD_SCHEMA_FILE           - YAML schema file
//	ENVGUARD_PROCESS_ENV           - overlay the process environment
//	ENVGUARD_EXPORT_FORMAT         - env, yaml, json or table (default: env)
//	ENVGUARD_EXPORT_HEADER_PATTERN - header capture regexp
//	ENVGUARD_EXPORT_REDACT         - mask self-destructing values
//	ENVGUARD_EXPORT_TREE_SEPARATOR - nest keys on this separator
//	ENVGUARD_DESTRUCT_POLL         - background destruct interval (e.g. 500ms)
//	ENVGUARD_WATCH                 - watch files for changes
//	ENVGUARD_WATCH_SIGNALS         - reload on SIGHUP
//	ENVGUARD_LOG_LEVEL             - debug, info, warn, error (default: info)
//	ENVGUARD_LOG_FORMAT            - json or console (default: console)
//	ENVGUARD_METRICS_ENABLED       - collect Prometheus metrics
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback loads from file when it exists, otherwise from the
// environment alone.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies ENVGUARD_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ENVGUARD_ENV_FILE"); v != "" {
		cfg.Env.File = v
	}
	if v := os.Getenv("ENVGUARD_SCHEMA_FILE"); v != "" {
		cfg.Env.Schema = v
	}
	if v := os.Getenv("ENVGUARD_PROCESS_ENV"); v != "" {
		cfg.Env.Process = parseBool(v)
	}

	if v := os.Getenv("ENVGUARD_EXPORT_FORMAT"); v != "" {
		cfg.Export.Format = v
	}
	if v := os.Getenv("ENVGUARD_EXPORT_HEADER_PATTERN"); v != "" {
		cfg.Export.HeaderPattern = v
	}
	if v := os.Getenv("ENVGUARD_EXPORT_REDACT"); v != "" {
		cfg.Export.Redact = parseBool(v)
	}
	if v := os.Getenv("ENVGUARD_EXPORT_TREE_SEPARATOR"); v != "" {
		cfg.Export.TreeSeparator = v
	}

	if v := os.Getenv("ENVGUARD_DESTRUCT_POLL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Destruct.PollInterval = d
		}
	}

	if v := os.Getenv("ENVGUARD_WATCH"); v != "" {
		cfg.Watch.Enabled = parseBool(v)
	}
	if v := os.Getenv("ENVGUARD_WATCH_SIGNALS"); v != "" {
		cfg.Watch.Signals = parseBool(v)
	}

	if v := os.Getenv("ENVGUARD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ENVGUARD_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("ENVGUARD_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Env.File == "" {
		cfg.Env.File = ".env"
	}

	if cfg.Export.Format == "" {
		cfg.Export.Format = "env"
	}
	if cfg.Export.HeaderPattern == "" {
		cfg.Export.HeaderPattern = formatter.DefaultHeaderPattern.String()
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
}

func validate(cfg *Config) error {
	if _, ok := formatter.Get(cfg.Export.Format); !ok {
		return fmt.Errorf("export.format must be one of %v, got %q", formatter.List(), cfg.Export.Format)
	}

	re, err := regexp.Compile(cfg.Export.HeaderPattern)
	if err != nil {
		return fmt.Errorf("export.header_pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return fmt.Errorf("export.header_pattern must have a capture group, got %q", cfg.Export.HeaderPattern)
	}

	if cfg.Destruct.PollInterval < 0 {
		return fmt.Errorf("destruct.poll_interval must not be negative, got %v", cfg.Destruct.PollInterval)
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	return nil
}

// FormatOptions returns the export options described by the config.
func (c *Config) FormatOptions() formatter.FormatOptions {
	header, err := regexp.Compile(c.Export.HeaderPattern)
	if err != nil || c.Export.HeaderPattern == "" {
		header = formatter.DefaultHeaderPattern
	}
	return formatter.FormatOptions{
		HeaderPattern: header,
		Redact:        c.Export.Redact,
		TreeSeparator: c.Export.TreeSeparator,
	}
}

// SchemaOptions returns the schema options implied by the config, followed
// by extra.
func (c *Config) SchemaOptions(extra ...schema.Option) []schema.Option {
	var opts []schema.Option
	if c.Destruct.PollInterval > 0 {
		opts = append(opts, schema.WithPollInterval(c.Destruct.PollInterval))
	}
	return append(opts, extra...)
}

// LoadSchema reads the schema file. Without one the schema is empty and
// every key stays a string.
func (c *Config) LoadSchema(opts ...schema.Option) (*schema.Schema, error) {
	opts = c.SchemaOptions(opts...)
	if c.Env.Schema == "" {
		return schema.New(nil, opts...)
	}
	return schema.ParseFile(c.Env.Schema, opts...)
}

// LoadRaw reads the env file, overlaying the process environment when
// configured. A missing file is tolerated only with the process overlay.
func (c *Config) LoadRaw() (map[string]string, error) {
	raw, err := dotenv.Load(c.Env.File)
	if err != nil {
		if !c.Env.Process || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		raw = nil
	}
	if c.Env.Process {
		raw = dotenv.Merge(raw, dotenv.FromEnviron(os.Environ()))
	}
	return raw, nil
}

// LoadEnv loads the schema and env file and applies one to the other.
func (c *Config) LoadEnv(logger zerolog.Logger, opts ...schema.Option) (*dotenv.DotEnv, error) {
	s, err := c.LoadSchema(append(opts, schema.WithLogger(logger))...)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	raw, err := c.LoadRaw()
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	return dotenv.New(raw, s, dotenv.WithLogger(logger))
}
