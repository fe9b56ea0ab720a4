// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-josekit.
//
// go-josekit is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config loads josekit settings from an optional YAML file,
// JOSEKIT_* environment variables and built-in defaults, in that order of
// precedence (environment first).
package config

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-josekit/pkg/jose"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
	"github.com/jeremyhahn/go-josekit/pkg/logging"
	"github.com/jeremyhahn/go-josekit/pkg/metrics"
)

// EnvPrefix prefixes every environment override, e.g. JOSEKIT_LOGGING_LEVEL.
const EnvPrefix = "JOSEKIT"

// Output formats for CLI results.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config represents the complete josekit configuration
type Config struct {
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" mapstructure:"metrics"`
	Policy  PolicyConfig  `yaml:"policy" json:"policy" mapstructure:"policy"`
	PBES2   PBES2Config   `yaml:"pbes2" json:"pbes2" mapstructure:"pbes2"`
	Output  OutputConfig  `yaml:"output" json:"output" mapstructure:"output"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" mapstructure:"level"`
	Format string `yaml:"format" json:"format" mapstructure:"format"`
}

// MetricsConfig controls prometheus recording
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
}

// PolicyConfig lists the accepted algorithms. An empty list accepts every
// registered algorithm of that kind.
type PolicyConfig struct {
	Signature         []string `yaml:"signature" json:"signature" mapstructure:"signature"`
	KeyManagement     []string `yaml:"key_management" json:"key_management" mapstructure:"key_management"`
	ContentEncryption []string `yaml:"content_encryption" json:"content_encryption" mapstructure:"content_encryption"`
}

// PBES2Config bounds the PBES2 iteration count
type PBES2Config struct {
	// Iterations is the "p2c" written when encrypting.
	Iterations int `yaml:"iterations" json:"iterations" mapstructure:"iterations"`

	// MinIterations and MaxIterations bound the "p2c" accepted when
	// decrypting.
	MinIterations int `yaml:"min_iterations" json:"min_iterations" mapstructure:"min_iterations"`
	MaxIterations int `yaml:"max_iterations" json:"max_iterations" mapstructure:"max_iterations"`
}

// OutputConfig controls how the CLI prints results
type OutputConfig struct {
	Format string `yaml:"format" json:"format" mapstructure:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "warn", Format: logging.FormatText},
		PBES2: PBES2Config{
			Iterations:    jwa.DefaultPBES2Iterations,
			MinIterations: jwa.MinPBES2Iterations,
			MaxIterations: jwa.MaxPBES2Iterations,
		},
		Output: OutputConfig{Format: OutputText},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("policy.signature", []string{})
	v.SetDefault("policy.key_management", []string{})
	v.SetDefault("policy.content_encryption", []string{})
	v.SetDefault("pbes2.iterations", d.PBES2.Iterations)
	v.SetDefault("pbes2.min_iterations", d.PBES2.MinIterations)
	v.SetDefault("pbes2.max_iterations", d.PBES2.MaxIterations)
	v.SetDefault("output.format", d.Output.Format)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration. path may be empty, in which case only the
// environment and defaults apply.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decoderOption()); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// decoderOption lets comma separated environment values fill the policy
// lists.
func decoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	if _, err := c.policy(); err != nil {
		return err
	}

	p := c.PBES2
	if p.MinIterations < 1 {
		return fmt.Errorf("invalid pbes2 min_iterations: %d", p.MinIterations)
	}
	if p.MaxIterations < p.MinIterations {
		return fmt.Errorf("pbes2 max_iterations %d is below min_iterations %d", p.MaxIterations, p.MinIterations)
	}
	if p.Iterations < p.MinIterations || p.Iterations > p.MaxIterations {
		return fmt.Errorf("pbes2 iterations %d outside [%d, %d]", p.Iterations, p.MinIterations, p.MaxIterations)
	}

	switch strings.ToLower(c.Output.Format) {
	case OutputText, OutputJSON:
	default:
		return fmt.Errorf("invalid output format: %s (must be text or json)", c.Output.Format)
	}
	return nil
}

// Policy builds the algorithm policy described by the configuration.
func (c *Config) Policy() (*jwa.Policy, error) {
	return c.policy()
}

func (c *Config) policy() (*jwa.Policy, error) {
	sig := make([]jwa.SignatureAlgorithm, 0, len(c.Policy.Signature))
	for _, name := range c.Policy.Signature {
		s, err := jwa.ParseSignatureAlgorithm(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("policy.signature: %w", err)
		}
		sig = append(sig, s)
	}
	key := make([]jwa.KeyAlgorithm, 0, len(c.Policy.KeyManagement))
	for _, name := range c.Policy.KeyManagement {
		k, err := jwa.ParseKeyAlgorithm(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("policy.key_management: %w", err)
		}
		key = append(key, k)
	}
	enc := make([]jwa.ContentEncryption, 0, len(c.Policy.ContentEncryption))
	for _, name := range c.Policy.ContentEncryption {
		e, err := jwa.ParseContentEncryption(strings.TrimSpace(name))
		if err != nil {
			return nil, fmt.Errorf("policy.content_encryption: %w", err)
		}
		enc = append(enc, e)
	}

	p, err := jwa.NewPolicy(sig, key, enc)
	if err != nil {
		return nil, err
	}
	p.MinPBES2Iterations = c.PBES2.MinIterations
	p.MaxPBES2Iterations = c.PBES2.MaxIterations
	return p, nil
}

// Logger builds the configured logger writing to w.
func (c *Config) Logger(w io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewSlogAdapter(&logging.SlogConfig{
		Level:  level,
		Format: strings.ToLower(c.Logging.Format),
		Writer: w,
	}), nil
}

// Engine builds a jose engine from the configuration and applies the
// metrics setting.
func (c *Config) Engine(logger logging.Logger) (*jose.Engine, error) {
	policy, err := c.Policy()
	if err != nil {
		return nil, err
	}
	if c.Metrics.Enabled {
		metrics.Enable()
	} else {
		metrics.Disable()
	}
	return jose.New(
		jose.WithLogger(logger),
		jose.WithPolicy(policy),
		jose.WithPBES2Iterations(c.PBES2.Iterations),
	), nil
}

// Marshal returns the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
