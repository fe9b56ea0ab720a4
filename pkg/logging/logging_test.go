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

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-josekit/pkg/correlation"
)

func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestLevel(t *testing.T) {
	tests := []struct {
		name string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"", LevelInfo},
		{"warning", LevelWarn},
		{"Warn", LevelWarn},
		{"error", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)

	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestSlogAdapter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogAdapter(&SlogConfig{Level: LevelDebug, Format: FormatJSON, Writer: &buf})

	log.Debug("jwe decrypt",
		String("operation", "decrypt_json"),
		Int("recipients", 2),
		Bool("didcomm", false),
		Duration("elapsed", time.Millisecond),
		Error(errors.New("jose: no matching recipient")),
		Strings("algs", []string{"ECDH-ES+A256KW"}))

	recs := records(t, &buf)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, "DEBUG", rec["level"])
	assert.Equal(t, "jwe decrypt", rec["msg"])
	assert.Equal(t, "decrypt_json", rec["operation"])
	assert.Equal(t, float64(2), rec["recipients"])
	assert.Equal(t, false, rec["didcomm"])
	assert.Equal(t, "jose: no matching recipient", rec["error"])
	assert.Equal(t, []any{"ECDH-ES+A256KW"}, rec["algs"])
}

func TestSlogAdapter_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogAdapter(&SlogConfig{Level: LevelWarn, Format: FormatJSON, Writer: &buf})
	log.Debug("dropped")
	log.Info("dropped")
	log.Warn("kept")
	log.Error("kept")

	recs := records(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "WARN", recs[0]["level"])
	assert.Equal(t, "ERROR", recs[1]["level"])
}

func TestSlogAdapter_With(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogAdapter(&SlogConfig{Format: FormatJSON, Writer: &buf}).With(String("component", "jws"))
	log.Info("signed", String("alg", "EdDSA"))

	recs := records(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "jws", recs[0]["component"])
	assert.Equal(t, "EdDSA", recs[0]["alg"])
}

func TestSlogAdapter_Context(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogAdapter(&SlogConfig{Level: LevelDebug, Format: FormatJSON, Writer: &buf})

	ctx := correlation.WithID(context.Background(), "req-1")
	log.DebugContext(ctx, "one")
	log.InfoContext(context.Background(), "two")

	recs := records(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "req-1", recs[0][correlation.LogKey])
	assert.NotContains(t, recs[1], correlation.LogKey)
}

func TestSlogAdapter_Text(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogAdapter(&SlogConfig{Writer: &buf})
	log.Info("hello", String("alg", "A256GCM"))
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "alg=A256GCM")
}

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x", Error(errors.New("ignored")))
	assert.Equal(t, l, l.With(String("k", "v")))
}
