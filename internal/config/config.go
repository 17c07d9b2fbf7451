// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads the host process configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// command-line flags that were set explicitly. The file is validated
// against the schema generated from Config before it is merged.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/addonkit/internal/addon"
)

// Config is the host process configuration.
type Config struct {
	Log     LogConfig     `koanf:"log" json:"log,omitempty" jsonschema:"description=Logging output"`
	Metrics MetricsConfig `koanf:"metrics" json:"metrics,omitempty" jsonschema:"description=Metrics and health endpoint"`
	Addon   AddonConfig   `koanf:"addon" json:"addon,omitempty" jsonschema:"description=Addon service"`
	Console ConsoleConfig `koanf:"console" json:"console,omitempty" jsonschema:"description=Local administrative console"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text,default=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
}

// MetricsConfig configures the observability server.
type MetricsConfig struct {
	// Addr is the listen address; empty disables the server.
	Addr string `koanf:"addr" json:"addr,omitempty" jsonschema:"description=Listen address for /metrics and health probes; empty disables"`
}

// AddonConfig configures the addon service.
type AddonConfig struct {
	// Settings is the path of the service's settings store.
	Settings string `koanf:"settings" json:"settings,omitempty" jsonschema:"description=Path of the addon service settings file"`
}

// ConsoleConfig configures the local console operator.
type ConsoleConfig struct {
	Operator string   `koanf:"operator" json:"operator,omitempty" jsonschema:"description=Name of the local console operator"`
	Grants   []string `koanf:"grants" json:"grants,omitempty" jsonschema:"description=Permission patterns granted to the local operator"`
}

// Defaults.
const (
	DefaultLogFormat = "text"
	DefaultLogLevel  = "info"
	DefaultOperator  = "console"
)

// DefaultGrants lets the local operator run every addon subcommand.
var DefaultGrants = []string{"addon", "addon.**"}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Format: DefaultLogFormat,
			Level:  DefaultLogLevel,
		},
		Addon: AddonConfig{
			Settings: addon.DefaultSettingsPath,
		},
		Console: ConsoleConfig{
			Operator: DefaultOperator,
			Grants:   append([]string(nil), DefaultGrants...),
		},
	}
}

// RegisterFlags adds the flag form of every key to fs. Flag names use "-"
// where keys use ".".
func RegisterFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.String("log-format", def.Log.Format, "log format (json or text)")
	fs.String("log-level", def.Log.Level, "log level (debug, info, warn, error)")
	fs.String("metrics-addr", def.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	fs.String("addon-settings", def.Addon.Settings, "addon service settings file")
	fs.String("console-operator", def.Console.Operator, "local console operator name")
	fs.StringSlice("console-grants", def.Console.Grants, "permission patterns granted to the console operator")
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"log-format":       "log.format",
	"log-level":        "log.level",
	"metrics-addr":     "metrics.addr",
	"addon-settings":   "addon.settings",
	"console-operator": "console.operator",
	"console-grants":   "console.grants",
}

// Load builds the configuration. path names the YAML file; when required is
// false a missing file is ignored. flags may be nil.
func Load(path string, required bool, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
		switch {
		case err == nil:
			if err := ValidateSchema(data); err != nil {
				return nil, oops.In("config").With("path", path).Wrap(err)
			}
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, oops.In("config").With("path", path).Hint("invalid YAML").Wrap(err)
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return nil, oops.In("config").With("path", path).Wrapf(err, "read config file")
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.In("config").Wrapf(err, "load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.In("config").Wrapf(err, "decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	def := Default()
	values := map[string]any{
		"log.format":       def.Log.Format,
		"log.level":        def.Log.Level,
		"metrics.addr":     def.Metrics.Addr,
		"addon.settings":   def.Addon.Settings,
		"console.operator": def.Console.Operator,
		"console.grants":   def.Console.Grants,
	}
	for key, v := range values {
		if err := k.Set(key, v); err != nil {
			return oops.In("config").With("key", key).Wrapf(err, "set default")
		}
	}
	return nil
}

// Validate checks values that the schema cannot express for flags.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.In("config").With("log.format", c.Log.Format).
			Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return oops.In("config").With("log.level", c.Log.Level).
			Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	if c.Addon.Settings == "" {
		return oops.In("config").Errorf("addon.settings cannot be empty")
	}
	if c.Console.Operator == "" {
		return oops.In("config").Errorf("console.operator cannot be empty")
	}
	return nil
}
