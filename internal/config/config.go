// Package config provides configuration types and defaults for prism.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/AnoJokamp354/Prism/internal/tracing"
)

// Config holds all configuration options for prism.
type Config struct {
	Highlight HighlightConfig `mapstructure:"highlight"`
	Tokenizer TokenizerConfig `mapstructure:"tokenizer"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   tracing.Config  `mapstructure:"tracing"`

	// Theme is a YAML terminal theme file layered over the default palette.
	Theme string `mapstructure:"theme"`

	// Grammars are extra YAML grammar files, loaded after the built-in ones.
	Grammars []string `mapstructure:"grammars"`

	// StrictGrammars rejects extra grammar files with invalid patterns or
	// unresolved references instead of logging them.
	StrictGrammars bool `mapstructure:"strict_grammars"`
}

// HighlightConfig controls markup output.
type HighlightConfig struct {
	Tag               string `mapstructure:"tag"`
	ClassPrefix       string `mapstructure:"class_prefix"`
	Escape            bool   `mapstructure:"escape"` // escape &, <, > and NBSP before tokenizing
	CommentSpellcheck bool   `mapstructure:"comment_spellcheck"`
	EntityTitle       bool   `mapstructure:"entity_title"`
}

type TokenizerConfig struct {
	// MatchTimeout bounds a single regex match. Zero means no limit.
	MatchTimeout time.Duration `mapstructure:"match_timeout"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Verbosity int    `mapstructure:"verbosity"`
	File      string `mapstructure:"file"`
}

// Defaults returns the configuration used when no file or environment
// overrides are present.
func Defaults() Config {
	return Config{
		Highlight: HighlightConfig{
			Tag:               "span",
			ClassPrefix:       "token",
			Escape:            true,
			CommentSpellcheck: true,
			EntityTitle:       true,
		},
		Tokenizer: TokenizerConfig{
			MatchTimeout: time.Second,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     10 * time.Minute,
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// SetDefaults registers Defaults on v so environment variables can override
// keys that no file sets.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("highlight.tag", d.Highlight.Tag)
	v.SetDefault("highlight.class_prefix", d.Highlight.ClassPrefix)
	v.SetDefault("highlight.escape", d.Highlight.Escape)
	v.SetDefault("highlight.comment_spellcheck", d.Highlight.CommentSpellcheck)
	v.SetDefault("highlight.entity_title", d.Highlight.EntityTitle)
	v.SetDefault("tokenizer.match_timeout", d.Tokenizer.MatchTimeout)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("log.verbosity", d.Log.Verbosity)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("theme", d.Theme)
	v.SetDefault("strict_grammars", d.StrictGrammars)
}

// New returns a viper instance with defaults and PRISM_ environment
// overrides, e.g. PRISM_CACHE_ENABLED=false.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("PRISM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the YAML file at path, if any, and returns the merged
// configuration. An empty path uses defaults and environment only.
func Load(path string) (Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return Unmarshal(v)
}

func Unmarshal(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Highlight.Tag == "" {
		errs = append(errs, fmt.Errorf("highlight.tag is required"))
	}
	if c.Tokenizer.MatchTimeout < 0 {
		errs = append(errs, fmt.Errorf("tokenizer.match_timeout must not be negative"))
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be positive when the cache is enabled"))
	}
	switch c.Tracing.Exporter {
	case "", "none", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter: unsupported exporter %q", c.Tracing.Exporter))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
