// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	"errors"
	"strings"

	sigilerr "github.com/sigil-dev/snomed/pkg/errors"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "SNOMED"

// Config is the top-level terminology server configuration.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Search   SearchConfig   `mapstructure:"search"`
	Language LanguageConfig `mapstructure:"language"`
	Index    IndexConfig    `mapstructure:"index"`
	Import   ImportConfig   `mapstructure:"import"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
}

// StorageConfig selects the storage backend and database file.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// SearchConfig sets search defaults applied when a request leaves them unset.
type SearchConfig struct {
	DefaultMaxHits  int    `mapstructure:"default_max_hits"`
	Fuzzy           string `mapstructure:"fuzzy"`
	IncludeInactive bool   `mapstructure:"include_inactive"`
}

// LanguageConfig controls preferred synonym selection.
type LanguageConfig struct {
	Preferences []string `mapstructure:"preferences"`
	Fallback    string   `mapstructure:"fallback"`
}

// IndexConfig controls derived index construction. BatchSize bounds the
// index writes queued for the single writer.
type IndexConfig struct {
	StrictReferences bool `mapstructure:"strict_references"`
	BatchSize        int  `mapstructure:"batch_size"`
}

// ImportConfig controls release file import. BatchSize is the number of
// rows handed to the store per write.
type ImportConfig struct {
	Workers   int `mapstructure:"workers"`
	BatchSize int `mapstructure:"batch_size"`
}

// CacheConfig sizes the in-memory caches of the serving path.
type CacheConfig struct {
	ExtendedConcepts int `mapstructure:"extended_concepts"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "snomed.db")
	v.SetDefault("search.default_max_hits", 200)
	v.SetDefault("search.fuzzy", "fallback")
	v.SetDefault("search.include_inactive", false)
	v.SetDefault("language.preferences", []string{"en-US"})
	v.SetDefault("language.fallback", "any")
	v.SetDefault("index.strict_references", true)
	v.SetDefault("index.batch_size", 5000)
	v.SetDefault("import.workers", 4)
	v.SetDefault("import.batch_size", 2000)
	v.SetDefault("cache.extended_concepts", 10000)
	v.SetDefault("log.mode", "development")
	v.SetDefault("log.level", "info")
}

// SetupEnv enables SNOMED_ prefixed environment overrides on v.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix SNOMED_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates a configuration from an already prepared
// viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateSearch()...)
	errs = append(errs, c.validateLanguage()...)
	errs = append(errs, c.validateIndex()...)
	errs = append(errs, c.validateLog()...)

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [sqlite], got %q",
			c.Storage.Backend,
		))
	}

	if strings.TrimSpace(c.Storage.Path) == "" {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue, "config: storage.path must not be empty"))
	}

	return errs
}

func (c *Config) validateSearch() []error {
	var errs []error

	if c.Search.DefaultMaxHits <= 0 {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: search.default_max_hits must be greater than 0, got %d",
			c.Search.DefaultMaxHits,
		))
	}

	validFuzzy := map[string]bool{"off": true, "fallback": true, "always": true}
	if !validFuzzy[c.Search.Fuzzy] {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: search.fuzzy must be one of [off, fallback, always], got %q",
			c.Search.Fuzzy,
		))
	}

	return errs
}

func (c *Config) validateLanguage() []error {
	var errs []error

	for i, pref := range c.Language.Preferences {
		if _, err := language.Parse(pref); err != nil {
			errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
				"config: language.preferences[%d] must be a BCP-47 tag, got %q: %w",
				i, pref, err,
			))
		}
	}

	validFallback := map[string]bool{"any": true, "strict": true}
	if !validFallback[c.Language.Fallback] {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: language.fallback must be one of [any, strict], got %q",
			c.Language.Fallback,
		))
	}

	return errs
}

func (c *Config) validateIndex() []error {
	var errs []error

	if c.Index.BatchSize <= 0 {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: index.batch_size must be greater than 0, got %d",
			c.Index.BatchSize,
		))
	}

	if c.Import.Workers <= 0 {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: import.workers must be greater than 0, got %d",
			c.Import.Workers,
		))
	}

	if c.Import.BatchSize <= 0 {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: import.batch_size must be greater than 0, got %d",
			c.Import.BatchSize,
		))
	}

	if c.Cache.ExtendedConcepts < 0 {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: cache.extended_concepts must not be negative, got %d",
			c.Cache.ExtendedConcepts,
		))
	}

	return errs
}

func (c *Config) validateLog() []error {
	var errs []error

	validModes := map[string]bool{"development": true, "dev": true, "production": true, "prod": true}
	if !validModes[c.Log.Mode] {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: log.mode must be one of [development, production], got %q",
			c.Log.Mode,
		))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: log.level must be one of [debug, info, warn, error], got %q",
			c.Log.Level,
		))
	}

	return errs
}
