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

// Package header holds JOSE header parameters shared by JWS and JWE: the
// registered parameter names, a JSON object type with typed accessors, and
// the base64url helpers both serializations use.
package header

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
)

// ParameterName is a JOSE header parameter name.
type ParameterName = string

// Registered header parameter names.
//
// https://datatracker.ietf.org/doc/html/rfc7515#section-4.1
// https://datatracker.ietf.org/doc/html/rfc7516#section-4.1
// https://datatracker.ietf.org/doc/html/rfc7518#section-4.6.1
const (
	Algorithm            ParameterName = "alg"
	EncryptionAlgorithm  ParameterName = "enc"
	CompressionAlgorithm ParameterName = "zip"
	JSONWebKey           ParameterName = "jwk"
	KeyID                ParameterName = "kid"
	Type                 ParameterName = "typ"
	ContentType          ParameterName = "cty"
	Critical             ParameterName = "crit"

	// RFC 7518 Section 4.6.1
	EphemeralPublicKey ParameterName = "epk"
	AgreementPartyU    ParameterName = "apu"
	AgreementPartyV    ParameterName = "apv"

	// RFC 7518 Section 4.7.1
	InitializationVector ParameterName = "iv"
	AuthenticationTag    ParameterName = "tag"

	// RFC 7518 Section 4.8.1
	PBES2SaltInput ParameterName = "p2s"
	PBES2Count     ParameterName = "p2c"

	// RFC 7797 Section 3
	Base64URLEncodePayload ParameterName = "b64"
)

var (
	// ErrDuplicateParameter indicates a parameter present in more than one of
	// the headers that make up a JOSE header.
	ErrDuplicateParameter = errors.New("header: duplicate parameter")

	// ErrInvalidParameter indicates a parameter with the wrong JSON type or
	// encoding.
	ErrInvalidParameter = errors.New("header: invalid parameter")
)

// Parameters is a decoded JOSE header JSON object.
type Parameters map[ParameterName]any

// Clone returns a shallow copy of p, or nil when p is nil.
func (p Parameters) Clone() Parameters {
	if p == nil {
		return nil
	}
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Has reports whether name is present.
func (p Parameters) Has(name ParameterName) bool {
	_, ok := p[name]
	return ok
}

// Names returns the parameter names in sorted order.
func (p Parameters) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// String returns a string parameter. A missing parameter returns "" and no
// error.
func (p Parameters) String(name ParameterName) (string, error) {
	v, ok := p[name]
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string", ErrInvalidParameter, name)
	}
	return s, nil
}

// Bytes returns a base64url encoded parameter decoded. A missing parameter
// returns nil and no error.
func (p Parameters) Bytes(name ParameterName) ([]byte, error) {
	s, err := p.String(name)
	if err != nil || !p.Has(name) {
		return nil, err
	}
	b, err := Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not base64url", ErrInvalidParameter, name)
	}
	return b, nil
}

// Int returns an integer parameter. A missing parameter returns 0 and no
// error.
func (p Parameters) Int(name ParameterName) (int, error) {
	v, ok := p[name]
	if !ok {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil || i < 0 || i > 1<<31-1 {
			return 0, fmt.Errorf("%w: %q must be a non-negative integer", ErrInvalidParameter, name)
		}
		return int(i), nil
	case float64:
		if n != float64(int(n)) || n < 0 || n > 1<<31-1 {
			return 0, fmt.Errorf("%w: %q must be a non-negative integer", ErrInvalidParameter, name)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("%w: %q must be an integer", ErrInvalidParameter, name)
}

// Bool returns a boolean parameter and whether it was present.
func (p Parameters) Bool(name ParameterName) (value, present bool, err error) {
	v, ok := p[name]
	if !ok {
		return false, false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, true, fmt.Errorf("%w: %q must be a boolean", ErrInvalidParameter, name)
	}
	return b, true, nil
}

// Strings returns a string array parameter such as "crit".
func (p Parameters) Strings(name ParameterName) ([]string, error) {
	v, ok := p[name]
	if !ok {
		return nil, nil
	}
	switch arr := v.(type) {
	case []string:
		return arr, nil
	case []any:
		out := make([]string, 0, len(arr))
		for _, e := range arr {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %q must be an array of strings", ErrInvalidParameter, name)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q must be an array of strings", ErrInvalidParameter, name)
}

// JWK returns a JWK valued parameter such as "epk".
func (p Parameters) JWK(name ParameterName) (*jwk.JWK, error) {
	v, ok := p[name]
	if !ok {
		return nil, nil
	}
	if k, ok := v.(*jwk.JWK); ok {
		return k, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidParameter, name)
	}
	k, err := jwk.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidParameter, name, err)
	}
	return k, nil
}

// SetBytes stores b base64url encoded. Empty values are not stored.
func (p Parameters) SetBytes(name ParameterName, b []byte) {
	if len(b) > 0 {
		p[name] = Encode(b)
	}
}

// Merge combines headers into one. Parameter names must be disjoint across
// the inputs; nil inputs are skipped.
func Merge(headers ...Parameters) (Parameters, error) {
	out := make(Parameters)
	for _, h := range headers {
		for k, v := range h {
			if _, dup := out[k]; dup {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateParameter, k)
			}
			out[k] = v
		}
	}
	return out, nil
}

// Unmarshal decodes a JSON object. Numbers are kept as json.Number so that
// integer parameters survive unchanged.
func Unmarshal(data []byte) (Parameters, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var p Parameters
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: header must be a JSON object", ErrInvalidParameter)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after header", ErrInvalidParameter)
	}
	return p, nil
}

// EncodeProtected serializes p as the base64url encoded protected header.
func EncodeProtected(p Parameters) (string, error) {
	if len(p) == 0 {
		return "", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return Encode(data), nil
}

// DecodeProtected parses a base64url encoded protected header.
func DecodeProtected(s string) (Parameters, error) {
	data, err := Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: protected header is not base64url", ErrInvalidParameter)
	}
	return Unmarshal(data)
}

// Encode returns the unpadded base64url encoding of b.
func Encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode decodes unpadded base64url. Padding and other alphabets are
// rejected.
func Decode(s string) ([]byte, error) {
	return base64.RawURLEncoding.Strict().DecodeString(s)
}
