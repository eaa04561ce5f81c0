// Package config loads the tailoring engine's tunables from a YAML file, an
// optional .env file and TAILOR_* environment variables.
package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/resumetailor/core/errors"
	"github.com/FocuswithJustin/resumetailor/core/matcher"
	"github.com/FocuswithJustin/resumetailor/core/sections"
	"github.com/FocuswithJustin/resumetailor/internal/logging"
)

// Environment variables read after the config file.
const (
	EnvListThreshold     = "TAILOR_LIST_THRESHOLD"
	EnvFallbackThreshold = "TAILOR_FALLBACK_THRESHOLD"
	EnvHeaderMaxLen      = "TAILOR_HEADER_MAX_LEN"
	EnvProtected         = "TAILOR_PROTECTED"
	EnvLogLevel          = "TAILOR_LOG_LEVEL"
	EnvLogFormat         = "TAILOR_LOG_FORMAT"
	EnvWorkers           = "TAILOR_WORKERS"
)

type Config struct {
	Matching struct {
		ListThreshold     float64 `yaml:"list_threshold"`
		FallbackThreshold float64 `yaml:"fallback_threshold"`
	} `yaml:"matching"`
	Sections struct {
		HeaderMaxLen int `yaml:"header_max_len"`
		// Headers maps extra header spellings onto canonical section names.
		Headers   map[string]string `yaml:"headers"`
		Protected []string          `yaml:"protected"`
	} `yaml:"sections"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Batch struct {
		Workers int `yaml:"workers"`
	} `yaml:"batch"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Matching.ListThreshold = matcher.DefaultListThreshold
	cfg.Matching.FallbackThreshold = matcher.DefaultFallbackThreshold
	cfg.Sections.HeaderMaxLen = sections.DefaultHeaderMaxLen
	cfg.Sections.Protected = []string{string(sections.Education), string(sections.References)}
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Batch.Workers = runtime.NumCPU()
	return &cfg
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then the environment. envFiles are loaded into the
// environment first; with none given, ./.env is tried. Variables already set
// in the environment win over .env values.
func Load(path string, envFiles ...string) (*Config, error) {
	// 1. Load .env if exists
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, errors.NewIO("read", strings.Join(envFiles, ","), err)
	}

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewIO("read", path, err)
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, &errors.ParseError{Format: "yaml", Path: path, Message: "invalid config", Err: err}
		}
	}

	// 3. Override with Environment Variables if present
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvListThreshold); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.NewValidation(EnvListThreshold, "not a number: "+v)
		}
		c.Matching.ListThreshold = f
	}
	if v := os.Getenv(EnvFallbackThreshold); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.NewValidation(EnvFallbackThreshold, "not a number: "+v)
		}
		c.Matching.FallbackThreshold = f
	}
	if v := os.Getenv(EnvHeaderMaxLen); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidation(EnvHeaderMaxLen, "not an integer: "+v)
		}
		c.Sections.HeaderMaxLen = n
	}
	if v, ok := os.LookupEnv(EnvProtected); ok {
		c.Sections.Protected = splitList(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidation(EnvWorkers, "not an integer: "+v)
		}
		c.Batch.Workers = n
	}
	return nil
}

// splitList splits a comma separated list, dropping empty items. An empty
// string yields an empty, non-nil slice so nothing is protected.
func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks every value. A zero worker count is replaced with the
// number of CPUs.
func (c *Config) Validate() error {
	if c.Matching.ListThreshold <= 0 || c.Matching.ListThreshold > 1 {
		return errors.NewValidation("matching.list_threshold", "must be in (0, 1]")
	}
	if c.Matching.FallbackThreshold <= 0 || c.Matching.FallbackThreshold > 1 {
		return errors.NewValidation("matching.fallback_threshold", "must be in (0, 1]")
	}
	if c.Sections.HeaderMaxLen <= 0 {
		return errors.NewValidation("sections.header_max_len", "must be positive")
	}
	if _, err := c.Dictionary(); err != nil {
		return err
	}
	if _, ok := logging.ParseLevel(c.Logging.Level); !ok {
		return errors.NewValidation("logging.level", "unknown level "+c.Logging.Level)
	}
	if _, ok := logging.ParseFormat(c.Logging.Format); !ok {
		return errors.NewValidation("logging.format", "unknown format "+c.Logging.Format)
	}
	if c.Batch.Workers < 0 {
		return errors.NewValidation("batch.workers", "must not be negative")
	}
	if c.Batch.Workers == 0 {
		c.Batch.Workers = runtime.NumCPU()
	}
	return nil
}

// SectionOptions converts the sections block into dictionary options.
func (c *Config) SectionOptions() sections.Options {
	return sections.Options{
		HeaderMaxLen: c.Sections.HeaderMaxLen,
		Headers:      c.Sections.Headers,
		Protected:    c.Sections.Protected,
	}
}

// Dictionary builds the header dictionary described by the config.
func (c *Config) Dictionary() (*sections.Dictionary, error) {
	return sections.NewDictionary(c.SectionOptions())
}

// MatcherOptions converts the matching block into matcher options.
func (c *Config) MatcherOptions() matcher.Options {
	return matcher.Options{
		ListThreshold:     c.Matching.ListThreshold,
		FallbackThreshold: c.Matching.FallbackThreshold,
	}
}

// InitLogging configures the global logger from the logging block.
func (c *Config) InitLogging() {
	level, _ := logging.ParseLevel(c.Logging.Level)
	format, _ := logging.ParseFormat(c.Logging.Format)
	logging.InitLogger(level, format)
}
