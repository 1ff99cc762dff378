// Package config loads cukexml settings from .cukexml.yaml, CUKEXML_*
// environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tagexpressions "github.com/cucumber/tag-expressions/go/v6"
	"github.com/denizgursoy/cukexml/pkg/emitter"
	"github.com/denizgursoy/cukexml/pkg/gherkin_parser"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the config file looked up in the working directory.
	FileName = ".cukexml.yaml"
	// EnvPrefix prefixes every environment variable override.
	EnvPrefix = "CUKEXML"
	// Stdio stands for standard input or standard output in Input and Output.
	Stdio = "-"
)

var (
	ErrInvalidFormat = errors.New("invalid report format")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrConfigExists  = errors.New("config file already exists")
)

// Config holds every setting of a conversion run.
type Config struct {
	Input          string   `mapstructure:"input" yaml:"input"`
	Output         string   `mapstructure:"output" yaml:"output"`
	Format         string   `mapstructure:"format" yaml:"format"`
	Features       []string `mapstructure:"features" yaml:"features"`
	Tags           string   `mapstructure:"tags" yaml:"tags"`
	SuiteName      string   `mapstructure:"suite_name" yaml:"suite_name"`
	Parallelism    int      `mapstructure:"parallelism" yaml:"parallelism"`
	IDGenerator    string   `mapstructure:"id_generator" yaml:"id_generator"`
	History        string   `mapstructure:"history" yaml:"history"`
	FailOnFailures bool     `mapstructure:"fail_on_failures" yaml:"fail_on_failures"`

	Verbose bool   `mapstructure:"verbose" yaml:"verbose"`
	Quiet   bool   `mapstructure:"quiet" yaml:"quiet"`
	NoColor bool   `mapstructure:"no_color" yaml:"no_color"`
	LogFile string `mapstructure:"log_file" yaml:"log_file"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Input:       Stdio,
		Output:      Stdio,
		Format:      emitter.FormatXML,
		Features:    []string{},
		SuiteName:   emitter.DefaultTitle,
		Parallelism: 1,
		IDGenerator: gherkin_parser.IDGeneratorIncrementing,
	}
}

// setDefaults registers every key so that AutomaticEnv can resolve it.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("input", d.Input)
	v.SetDefault("output", d.Output)
	v.SetDefault("format", d.Format)
	v.SetDefault("features", d.Features)
	v.SetDefault("tags", d.Tags)
	v.SetDefault("suite_name", d.SuiteName)
	v.SetDefault("parallelism", d.Parallelism)
	v.SetDefault("id_generator", d.IDGenerator)
	v.SetDefault("history", d.History)
	v.SetDefault("fail_on_failures", d.FailOnFailures)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("quiet", d.Quiet)
	v.SetDefault("no_color", d.NoColor)
	v.SetDefault("log_file", d.LogFile)
}

func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func isConfigNotFoundError(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound)
}

func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// Load reads FileName from dir when present and applies environment
// overrides. A missing file is not an error. The result is not validated.
func Load(dir string) (Config, error) {
	v := newViperInstance()
	v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return Default(), fmt.Errorf("read config %q: %w", filepath.Join(dir, FileName), err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return Default(), fmt.Errorf("decode config: %w", err)
	}
	if cfg.Features == nil {
		cfg.Features = []string{}
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch strings.ToLower(c.Format) {
	case emitter.FormatXML, emitter.FormatJSON, emitter.FormatHTML:
	default:
		return fmt.Errorf("%w %q: expected one of %s, %s, %s",
			ErrInvalidFormat, c.Format, emitter.FormatXML, emitter.FormatJSON, emitter.FormatHTML)
	}

	if _, err := gherkin_parser.NewIDGenerator(c.IDGenerator); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("%w: parallelism must be at least 1, got %d", ErrInvalidConfig, c.Parallelism)
	}
	if c.Verbose && c.Quiet {
		return fmt.Errorf("%w: verbose and quiet are mutually exclusive", ErrInvalidConfig)
	}
	if c.Input == "" {
		return fmt.Errorf("%w: input must not be empty, use %q for standard input", ErrInvalidConfig, Stdio)
	}
	if c.Output == "" {
		return fmt.Errorf("%w: output must not be empty, use %q for standard output", ErrInvalidConfig, Stdio)
	}
	if _, err := c.TagFilter(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// TagFilter parses Tags. It returns nil when no expression is configured.
func (c Config) TagFilter() (tagexpressions.Evaluatable, error) {
	if strings.TrimSpace(c.Tags) == "" {
		return nil, nil
	}
	expression, err := tagexpressions.Parse(c.Tags)
	if err != nil {
		return nil, fmt.Errorf("parse tag expression %q: %w", c.Tags, err)
	}
	return expression, nil
}

// WriteDefault writes the default configuration to path. An existing file
// is left untouched and ErrConfigExists is returned.
func WriteDefault(path string) error {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory %q: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
		return fmt.Errorf("create config %q: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write config %q: %w", path, err)
	}
	return nil
}

// ApplyFlags mutates cfg by applying values from CLI flags when they are present.
func ApplyFlags(cfg *Config, flags FlagValues) {
	applyString(&cfg.Input, flags.Input)
	applyString(&cfg.Output, flags.Output)
	applyString(&cfg.Format, flags.Format)
	if len(flags.Features.Values) > 0 {
		cfg.Features = append([]string{}, flags.Features.Values...)
	}
	applyString(&cfg.Tags, flags.Tags)
	applyString(&cfg.SuiteName, flags.SuiteName)
	if flags.Parallelism.Set {
		cfg.Parallelism = flags.Parallelism.Value
	}
	applyString(&cfg.IDGenerator, flags.IDGenerator)
	applyString(&cfg.History, flags.History)
	applyBool(&cfg.FailOnFailures, flags.FailOnFailures)
	applyBool(&cfg.Verbose, flags.Verbose)
	applyBool(&cfg.Quiet, flags.Quiet)
	applyBool(&cfg.NoColor, flags.NoColor)
	applyString(&cfg.LogFile, flags.LogFile)
}

func applyString(dst *string, flag StringFlag) {
	if flag.Set {
		*dst = flag.Value
	}
}

func applyBool(dst *bool, flag BoolFlag) {
	if flag.Set {
		*dst = flag.Value
	}
}

// FlagValues captures CLI flag state with knowledge of whether each flag was set explicitly.
type FlagValues struct {
	Input          StringFlag
	Output         StringFlag
	Format         StringFlag
	Features       SliceFlag
	Tags           StringFlag
	SuiteName      StringFlag
	Parallelism    IntFlag
	IDGenerator    StringFlag
	History        StringFlag
	FailOnFailures BoolFlag
	Verbose        BoolFlag
	Quiet          BoolFlag
	NoColor        BoolFlag
	LogFile        StringFlag
}

// StringFlag represents a string flag and whether it was set.
type StringFlag struct {
	Value string
	Set   bool
}

// SliceFlag represents a slice flag and the values it captured.
type SliceFlag struct {
	Values []string
}

// BoolFlag represents a bool flag and whether it was set.
type BoolFlag struct {
	Value bool
	Set   bool
}

// IntFlag represents an int flag and whether it was set.
type IntFlag struct {
	Value int
	Set   bool
}
