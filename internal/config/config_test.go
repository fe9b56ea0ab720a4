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

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
	"github.com/jeremyhahn/go-josekit/pkg/metrics"
	"github.com/jeremyhahn/go-josekit/pkg/result"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "josekit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	d := Default()
	assert.Equal(t, d.Logging, cfg.Logging)
	assert.Equal(t, d.Metrics, cfg.Metrics)
	assert.Equal(t, d.PBES2, cfg.PBES2)
	assert.Equal(t, d.Output, cfg.Output)
	assert.Empty(t, cfg.Policy.Signature)
	assert.Empty(t, cfg.Policy.KeyManagement)
	assert.Empty(t, cfg.Policy.ContentEncryption)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
metrics:
  enabled: true
policy:
  signature: [ES256, EdDSA]
  content_encryption: [A256GCM]
pbes2:
  iterations: 5000
output:
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, []string{"ES256", "EdDSA"}, cfg.Policy.Signature)
	assert.Empty(t, cfg.Policy.KeyManagement)
	assert.Equal(t, 5000, cfg.PBES2.Iterations)
	assert.Equal(t, jwa.MinPBES2Iterations, cfg.PBES2.MinIterations)
	assert.Equal(t, OutputJSON, cfg.Output.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")
	t.Setenv("JOSEKIT_LOGGING_LEVEL", "error")
	t.Setenv("JOSEKIT_POLICY_KEY_MANAGEMENT", "ECDH-ES+A256KW,RSA-OAEP-256")
	t.Setenv("JOSEKIT_PBES2_ITERATIONS", "2000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, []string{"ECDH-ES+A256KW", "RSA-OAEP-256"}, cfg.Policy.KeyManagement)
	assert.Equal(t, 2000, cfg.PBES2.Iterations)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "logging: [unterminated"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "logging:\n  level: loud\n"))
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"warning alias", func(c *Config) { c.Logging.Level = "WARNING" }, ""},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "unknown level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "console" }, "invalid log format"},
		{"bad signature", func(c *Config) { c.Policy.Signature = []string{"none"} }, "policy.signature"},
		{"bad key management", func(c *Config) { c.Policy.KeyManagement = []string{"RSA-OAEP-999"} }, "policy.key_management"},
		{"bad enc", func(c *Config) { c.Policy.ContentEncryption = []string{"A256CTR"} }, "policy.content_encryption"},
		{"zero minimum", func(c *Config) { c.PBES2.MinIterations = 0 }, "min_iterations"},
		{"inverted bounds", func(c *Config) { c.PBES2.MaxIterations = 10 }, "below min_iterations"},
		{"iterations out of bounds", func(c *Config) { c.PBES2.Iterations = 10 }, "outside"},
		{"bad output", func(c *Config) { c.Output.Format = "table" }, "invalid output format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestPolicy(t *testing.T) {
	cfg := Default()
	cfg.Policy.Signature = []string{"ES256"}
	cfg.Policy.ContentEncryption = []string{"A256GCM"}
	cfg.PBES2.MinIterations = 2000

	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.NoError(t, p.CheckSignature(jwa.ES256))
	assert.ErrorIs(t, p.CheckSignature(jwa.EdDSA), errors.ErrUnsupportedAlgorithm)
	assert.NoError(t, p.CheckKeyAlgorithm(jwa.RSAOAEP))
	assert.ErrorIs(t, p.CheckContentEncryption(jwa.A128GCM), errors.ErrUnsupportedAlgorithm)
	assert.Error(t, p.CheckPBES2Iterations(1500))
	assert.NoError(t, p.CheckPBES2Iterations(2000))
}

func TestEngine(t *testing.T) {
	defer metrics.Enable()

	cfg := Default()
	cfg.Policy.ContentEncryption = []string{"A256GCM"}
	var buf bytes.Buffer
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	logger, err := cfg.Logger(&buf)
	require.NoError(t, err)

	e, err := cfg.Engine(logger)
	require.NoError(t, err)
	assert.False(t, metrics.IsEnabled())

	_, code, err := e.Encrypt(jwa.A128GCM, make([]byte, 16), make([]byte, 12), []byte("x"), nil)
	assert.Error(t, err)
	assert.Equal(t, result.CodeUnsupportedAlgorithm, code)
	assert.Contains(t, buf.String(), `"operation":"encrypt"`)

	cfg.Metrics.Enabled = true
	_, err = cfg.Engine(logger)
	require.NoError(t, err)
	assert.True(t, metrics.IsEnabled())
}

func TestMarshal(t *testing.T) {
	cfg := Default()
	cfg.Policy.Signature = []string{"EdDSA"}

	out, err := cfg.Marshal()
	require.NoError(t, err)

	var back Config
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, cfg.Policy.Signature, back.Policy.Signature)
	assert.Equal(t, cfg.PBES2, back.PBES2)
	assert.Contains(t, string(out), "key_management")
}
