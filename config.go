// FILE: config.go
// Package main – Runtime configuration model and loader.
//
// Priority: defaults -> params file -> environment -> CLI flags.
//
// Typical flow (see main.go):
//   loadDotEnv()
//   cfg, err := loadConfig(path)   // defaults, file, env
//   fs.Visit(...)                  // only flags the user actually set
//   err = cfg.validate()
//
// The params file is YAML (.yaml/.yml) or TOML (.toml):
//
//   params:
//     fast_span: 8
//     slow_span: 21
//     z_window: 52
//     z_min_periods: 8
//     threshold: 0.2
//   log_level: info

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds every knob of a run.
type Config struct {
	Params Params `yaml:"params" toml:"params"`

	// I/O
	InPath  string `yaml:"in" toml:"in"`
	OutPath string `yaml:"out" toml:"out"`

	// Ops
	LogLevel    string `yaml:"log_level" toml:"log_level" validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	LogFormat   string `yaml:"log_format" toml:"log_format" validate:"omitempty,oneof=json console"`
	MetricsFile string `yaml:"metrics_file" toml:"metrics_file"` // Prometheus textfile written after the run
	MetricsAddr string `yaml:"metrics_addr" toml:"metrics_addr"` // e.g. ":9101"; serves /metrics until interrupted
	PreviewRows int    `yaml:"preview_rows" toml:"preview_rows" validate:"gte=0"`
}

func defaultConfig() Config {
	return Config{
		Params:      defaultParams(),
		LogLevel:    "info",
		LogFormat:   "json",
		PreviewRows: 8,
	}
}

// loadConfig builds a Config from defaults, the optional params file and the
// process env. An empty path skips the file layer.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		if err := decodeConfigFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// decodeConfigFile merges the file into cfg; keys absent from the file keep
// their current values.
func decodeConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ConfigError{Reason: fmt.Sprintf("read params file %s: %v", path, err)}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return &ConfigError{Reason: fmt.Sprintf("decode yaml %s: %v", path, err)}
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return &ConfigError{Reason: fmt.Sprintf("decode toml %s: %v", path, err)}
		}
	default:
		return &ConfigError{Reason: fmt.Sprintf("params file %s: unsupported extension (want .yaml, .yml or .toml)", path)}
	}
	return nil
}

// applyEnvOverrides reads BIAS_* and ops keys; unset keys keep current values.
func applyEnvOverrides(cfg *Config) {
	p := &cfg.Params
	p.FastSpan = getEnvInt("BIAS_FAST_SPAN", p.FastSpan)
	p.SlowSpan = getEnvInt("BIAS_SLOW_SPAN", p.SlowSpan)
	p.ZWindow = getEnvInt("BIAS_Z_WINDOW", p.ZWindow)
	p.ZMinPeriods = getEnvInt("BIAS_Z_MIN_PERIODS", p.ZMinPeriods)
	p.Threshold = getEnvFloat("BIAS_THRESHOLD", p.Threshold)

	cfg.InPath = getEnv("BIAS_IN", cfg.InPath)
	cfg.OutPath = getEnv("BIAS_OUT", cfg.OutPath)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", cfg.LogFormat))
	cfg.MetricsFile = getEnv("METRICS_FILE", cfg.MetricsFile)
	cfg.MetricsAddr = getEnv("METRICS_ADDR", cfg.MetricsAddr)
	cfg.PreviewRows = getEnvInt("PREVIEW_ROWS", cfg.PreviewRows)
}

var configValidator = validator.New()

// validate checks the parameter ranges and ops settings. The first failing
// field is reported as a ConfigError.
func (c Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			reason := fmt.Sprintf("must satisfy %s", fe.Tag())
			if fe.Param() != "" {
				reason += "=" + fe.Param()
			}
			return &ConfigError{Field: fe.Namespace(), Reason: fmt.Sprintf("%s (got %v)", reason, fe.Value())}
		}
		return &ConfigError{Reason: err.Error()}
	}
	if c.InPath == "" {
		return &ConfigError{Field: "in", Reason: "input path is required"}
	}
	if c.OutPath == "" {
		return &ConfigError{Field: "out", Reason: "output path is required"}
	}
	return nil
}
