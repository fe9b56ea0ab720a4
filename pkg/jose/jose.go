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

// Package jose is the result-code surface of the engine. Every operation
// takes raw byte buffers and algorithm identifiers, and returns an owned
// JSON text output, a numeric result code and the underlying error:
//
//	out, code, err := jose.CompactSignJSON(jwa.EdDSA, []byte("hello"), privateJWK, false)
//	if code != result.CodeSuccess {
//	    return err
//	}
//	defer jose.FreeJSONString(out)
//
// Binary output fields are unpadded base64url. Compact JWE and JWS outputs
// are returned as JSON strings. The output must be released exactly once;
// a second release returns result.CodeAlreadyReleased.
//
// Package level functions use a default Engine. New builds an engine with
// its own logger, algorithm policy, random source and PBES2 iteration
// count.
package jose

import (
	"encoding/json"
	"io"

	"github.com/jeremyhahn/go-josekit/pkg/correlation"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/header"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
	"github.com/jeremyhahn/go-josekit/pkg/logging"
	"github.com/jeremyhahn/go-josekit/pkg/metrics"
	"github.com/jeremyhahn/go-josekit/pkg/result"
)

// Engine runs operations with a fixed configuration. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	logger     logging.Logger
	policy     *jwa.Policy
	rand       io.Reader
	iterations int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Operations log one debug record each.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPolicy restricts the accepted algorithms.
func WithPolicy(p *jwa.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithRand replaces the random source.
func WithRand(r io.Reader) Option {
	return func(e *Engine) { e.rand = r }
}

// WithPBES2Iterations sets the "p2c" used for PBES2 recipients.
func WithPBES2Iterations(n int) Option {
	return func(e *Engine) { e.iterations = n }
}

// New creates an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:     logging.NopLogger{},
		iterations: jwa.DefaultPBES2Iterations,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = New()

// Default returns the engine used by the package level functions.
func Default() *Engine {
	return defaultEngine
}

// run executes fn and converts its outcome into the result surface. call
// is the entry point name, metric the metrics operation label.
func (e *Engine) run(call, metric, alg string, fn func() ([]byte, error)) (*result.JSONString, result.Code, error) {
	id := correlation.NewID()
	timer := metrics.Start(metric, alg)
	out, err := fn()
	code := result.CodeOf(err)
	timer.Done(code.String(), err == nil)

	fields := []logging.Field{
		logging.String("operation", call),
		logging.String("algorithm", alg),
		logging.String("code", code.String()),
		logging.String(correlation.LogKey, id),
	}
	if err != nil {
		e.logger.Debug("jose operation failed", append(fields, logging.Error(err))...)
		return nil, code, err
	}
	e.logger.Debug("jose operation", fields...)
	return result.NewJSONString(out), code, nil
}

// FreeJSONString releases an output. Releasing twice returns
// result.CodeAlreadyReleased.
func FreeJSONString(s *result.JSONString) result.Code {
	timer := metrics.Start(metrics.OpReleaseOutput, "")
	code := result.CodeOf(s.Release())
	timer.Done(code.String(), code.IsSuccess())
	return code
}

// payloadResult is the output of decrypt_json and the verify operations.
type payloadResult struct {
	Payload   string            `json:"payload"`
	Protected header.Parameters `json:"protected"`
	Header    header.Parameters `json:"header"`
}

func marshalPayload(payload []byte, protected, unprotected header.Parameters) ([]byte, error) {
	if protected == nil {
		protected = header.Parameters{}
	}
	if unprotected == nil {
		unprotected = header.Parameters{}
	}
	return json.Marshal(payloadResult{
		Payload:   header.Encode(payload),
		Protected: protected,
		Header:    unprotected,
	})
}
