// Package config provides the layered configuration of a tabprep run.
//
// Values are resolved with the precedence (highest to lowest)
//
//	explicitly set CLI flags > TABPREP_* environment variables > YAML file > defaults
//
// The defaults reproduce the Ames chain of preprocessing/ames.
package config

import (
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/tabprep/pkg/errors"
	"github.com/YuminosukeSato/tabprep/pkg/log"
	"github.com/YuminosukeSato/tabprep/preprocessing"
	"github.com/YuminosukeSato/tabprep/preprocessing/ames"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "TABPREP_"

// DefaultFile is the config file looked up in the working directory when no
// path is given.
const DefaultFile = "tabprep.yaml"

// Log output formats.
const (
	LogFormatConsole = "console"
	LogFormatJSON    = "json"
	LogFormatCloud   = "cloud"
)

// Config is the full configuration of a run.
type Config struct {
	KeyColumn    string   `koanf:"key_column" yaml:"key_column"`
	TargetColumn string   `koanf:"target_column" yaml:"target_column"`
	Coerce       []string `koanf:"coerce" yaml:"coerce"`
	Drop         []string `koanf:"drop" yaml:"drop"`

	Impute  ImputeConfig  `koanf:"impute" yaml:"impute"`
	Grouped GroupedConfig `koanf:"grouped" yaml:"grouped"`
	Ordinal OrdinalConfig `koanf:"ordinal" yaml:"ordinal"`

	FillRemainingZero bool   `koanf:"fill_remaining_zero" yaml:"fill_remaining_zero"`
	Scale             string `koanf:"scale" yaml:"scale"`

	LogLevel  string `koanf:"log_level" yaml:"log_level"`
	LogFormat string `koanf:"log_format" yaml:"log_format"`
}

// ImputeConfig lists the columns of each fill policy.
type ImputeConfig struct {
	Sentinel      []string `koanf:"sentinel" yaml:"sentinel"`
	Zero          []string `koanf:"zero" yaml:"zero"`
	Mode          []string `koanf:"mode" yaml:"mode"`
	SentinelValue string   `koanf:"sentinel_value" yaml:"sentinel_value"`
}

// GroupedConfig pairs the numeric column filled with its group median and the
// column defining the groups. Leaving either empty disables the step.
type GroupedConfig struct {
	Target string `koanf:"target" yaml:"target"`
	Key    string `koanf:"key" yaml:"key"`
	Freeze bool   `koanf:"freeze" yaml:"freeze"`
}

// OrdinalConfig controls the rank mapper.
type OrdinalConfig struct {
	// Unknown is "null" to null unknown levels with a warning, "error" to fail.
	Unknown string `koanf:"unknown" yaml:"unknown"`
}

// Default returns the Ames configuration.
func Default() *Config {
	o := ames.DefaultOptions()
	return &Config{
		KeyColumn:    ames.KeyColumn,
		TargetColumn: ames.TargetColumn,
		Coerce:       o.Coerce,
		Drop:         o.Drop,
		Impute: ImputeConfig{
			Sentinel:      o.Sentinel,
			Zero:          o.Zero,
			Mode:          o.Mode,
			SentinelValue: o.SentinelValue,
		},
		Grouped: GroupedConfig{
			Target: o.GroupTarget,
			Key:    o.GroupKey,
			Freeze: o.FreezeGroups,
		},
		Ordinal:           OrdinalConfig{Unknown: o.Unknown.String()},
		FillRemainingZero: o.FillRemainingZero,
		Scale:             o.Scale,
		LogLevel:          "info",
		LogFormat:         LogFormatConsole,
	}
}

// defaultMap flattens Default for the confmap provider.
func defaultMap() map[string]interface{} {
	d := Default()
	return map[string]interface{}{
		"key_column":            d.KeyColumn,
		"target_column":         d.TargetColumn,
		"coerce":                d.Coerce,
		"drop":                  d.Drop,
		"impute.sentinel":       d.Impute.Sentinel,
		"impute.zero":           d.Impute.Zero,
		"impute.mode":           d.Impute.Mode,
		"impute.sentinel_value": d.Impute.SentinelValue,
		"grouped.target":        d.Grouped.Target,
		"grouped.key":           d.Grouped.Key,
		"grouped.freeze":        d.Grouped.Freeze,
		"ordinal.unknown":       d.Ordinal.Unknown,
		"fill_remaining_zero":   d.FillRemainingZero,
		"scale":                 d.Scale,
		"log_level":             d.LogLevel,
		"log_format":            d.LogFormat,
	}
}

// envKeys maps TABPREP_* variable names to config keys. Key names contain
// underscores, so the mapping cannot be derived by splitting on them.
func envKeys() map[string]string {
	keys := make(map[string]string)
	for key := range defaultMap() {
		name := EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		keys[name] = key
	}
	return keys
}

func isList(key string) bool {
	_, ok := defaultMap()[key].([]string)
	return ok
}

// splitList reads a comma-separated environment value. An empty value is an
// empty list.
func splitList(value string) []string {
	out := []string{}
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// flagKeys maps CLI flag names to config keys where the two differ beyond
// kebab-case versus snake_case.
var flagKeys = map[string]string{
	"sentinel-value": "impute.sentinel_value",
	"group-target":   "grouped.target",
	"group-key":      "grouped.key",
	"freeze-groups":  "grouped.freeze",
	"unknown-levels": "ordinal.unknown",
}

// FlagKey returns the config key bound to a CLI flag, or "" when the flag is
// not a config flag.
func FlagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	key := strings.ReplaceAll(name, "-", "_")
	if _, ok := defaultMap()[key]; ok {
		return key
	}
	return ""
}

// Load resolves the configuration. path may be empty, in which case
// DefaultFile is used if it exists. flags may be nil; only flags that were
// explicitly set and that map to a config key are applied.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultMap(), "."), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load defaults")
	}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "error reading config file %s", path)
		}
	}

	keys := envKeys()
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(name, value string) (string, interface{}) {
		key, ok := keys[name]
		if !ok {
			return "", nil
		}
		if isList(key) {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load env vars")
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := FlagKey(f.Name)
			if key == "" {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, errors.Wrap(err, "failed to load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, "unable to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that can be checked without data.
func (c *Config) Validate() error {
	if c.KeyColumn == "" {
		return errors.NewValidationError("key_column", "is required", c.KeyColumn)
	}
	if c.TargetColumn == c.KeyColumn {
		return errors.NewValidationError("target_column", "must differ from key_column", c.TargetColumn)
	}
	if _, err := preprocessing.ParseUnknownLevelPolicy(c.Ordinal.Unknown); err != nil {
		return err
	}
	switch c.Scale {
	case "", ames.ScaleNone, ames.ScaleStandard, ames.ScaleMinMax:
	default:
		return errors.NewValidationError("scale", "expected 'none', 'standard' or 'minmax'", c.Scale)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.NewValidationError("log_level", "expected debug, info, warn or error", c.LogLevel)
	}
	switch c.LogFormat {
	case "", LogFormatConsole, LogFormatJSON, LogFormatCloud:
	default:
		return errors.NewValidationError("log_format", "expected 'console', 'json' or 'cloud'", c.LogFormat)
	}
	if (c.Grouped.Target == "") != (c.Grouped.Key == "") {
		return errors.NewValidationError("grouped", "target and key must be set together", c.Grouped)
	}

	owner := make(map[string]string)
	lists := []struct {
		name string
		cols []string
	}{
		{"impute.sentinel", c.Impute.Sentinel},
		{"impute.zero", c.Impute.Zero},
		{"impute.mode", c.Impute.Mode},
	}
	for _, l := range lists {
		for _, col := range l.cols {
			if prev, ok := owner[col]; ok && prev != l.name {
				return errors.NewValidationError(l.name, "column is already listed in "+prev, col)
			}
			owner[col] = l.name
		}
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() log.Level {
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// Options converts the configuration into the options of the Ames chain.
func (c *Config) Options() (ames.Options, error) {
	unknown, err := preprocessing.ParseUnknownLevelPolicy(c.Ordinal.Unknown)
	if err != nil {
		return ames.Options{}, err
	}
	return ames.Options{
		Coerce:            c.Coerce,
		Drop:              c.Drop,
		Sentinel:          c.Impute.Sentinel,
		Zero:              c.Impute.Zero,
		Mode:              c.Impute.Mode,
		SentinelValue:     c.Impute.SentinelValue,
		GroupTarget:       c.Grouped.Target,
		GroupKey:          c.Grouped.Key,
		FreezeGroups:      c.Grouped.Freeze,
		Ordinals:          ames.OrdinalTables(),
		Unknown:           unknown,
		FillRemainingZero: c.FillRemainingZero,
		Scale:             c.Scale,
	}, nil
}

// WriteYAML serializes c to w.
func WriteYAML(w io.Writer, c *Config) error {
	enc := yamlv3.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	return errors.Wrap(enc.Close(), "failed to encode config")
}

// Save writes c to path as YAML. An existing file is left untouched unless
// overwrite is set.
func Save(path string, c *Config, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644) //nolint:gosec // G304: path is user-provided output
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := WriteYAML(f, c); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "failed to close config file")
}
