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

package jws

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-josekit/pkg/encoding/header"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
)

// Form selects a JWS serialization.
type Form int

const (
	// Compact is the dot separated serialization (RFC 7515 Section 7.1).
	Compact Form = iota + 1

	// Flattened is the single signature JSON serialization
	// (RFC 7515 Section 7.2.2).
	Flattened

	// General is the multi signature JSON serialization
	// (RFC 7515 Section 7.2.1).
	General
)

func (f Form) String() string {
	switch f {
	case Compact:
		return "compact"
	case Flattened:
		return "flattened"
	case General:
		return "general"
	}
	return fmt.Sprintf("Form(%d)", int(f))
}

// Signature is one signature of a JSONWebSignature.
type Signature struct {
	// Protected is the decoded protected header.
	Protected header.Parameters

	// Header is the unprotected per-signature header.
	Header header.Parameters

	Signature []byte

	protectedRaw string

	// undecodable marks a signature segment that is not base64url. Such a
	// signature parses but never verifies.
	undecodable bool
}

// ProtectedRaw returns the base64url protected header as serialized.
func (s *Signature) ProtectedRaw() string {
	return s.protectedRaw
}

// JSONWebSignature is a parsed or freshly produced JWS.
type JSONWebSignature struct {
	Payload    []byte
	Signatures []Signature

	// Unencoded reports an RFC 7797 payload carried without base64url.
	Unencoded bool
}

type rawSignature struct {
	Protected string            `json:"protected,omitempty"`
	Header    header.Parameters `json:"header,omitempty"`
	Signature string            `json:"signature"`
}

type rawJSONWebSignature struct {
	Payload    *string           `json:"payload"`
	Protected  string            `json:"protected,omitempty"`
	Header     header.Parameters `json:"header,omitempty"`
	Signature  *string           `json:"signature,omitempty"`
	Signatures []rawSignature    `json:"signatures,omitempty"`
}

// signingInput is ASCII(protected) || "." || payload, with the payload
// base64url encoded unless the b64 header is false.
func signingInput(protectedRaw string, payload []byte, unencoded bool) []byte {
	out := make([]byte, 0, len(protectedRaw)+1+len(payload)*4/3+4)
	out = append(out, protectedRaw...)
	out = append(out, '.')
	if unencoded {
		return append(out, payload...)
	}
	return append(out, header.Encode(payload)...)
}

func (j *JSONWebSignature) encodedPayload() string {
	if j.Unencoded {
		return string(j.Payload)
	}
	return header.Encode(j.Payload)
}

// CompactSerialize returns the compact serialization. Only single signature
// objects without an unprotected header can be compacted, and an unencoded
// payload must not contain ".".
func (j *JSONWebSignature) CompactSerialize() (string, error) {
	if len(j.Signatures) != 1 {
		return "", fmt.Errorf("%w: compact serialization requires exactly one signature", errors.ErrInvalidArgument)
	}
	sig := j.Signatures[0]
	if len(sig.Header) > 0 {
		return "", fmt.Errorf("%w: compact serialization cannot carry an unprotected header", errors.ErrInvalidArgument)
	}
	if sig.protectedRaw == "" {
		return "", fmt.Errorf("%w: compact serialization requires a protected header", errors.ErrInvalidArgument)
	}
	if j.Unencoded && bytes.IndexByte(j.Payload, '.') >= 0 {
		return "", fmt.Errorf("%w: unencoded compact payload cannot contain '.'", errors.ErrInvalidArgument)
	}
	return sig.protectedRaw + "." + j.encodedPayload() + "." + header.Encode(sig.Signature), nil
}

// FlattenedSerialize returns the flattened JSON serialization.
func (j *JSONWebSignature) FlattenedSerialize() ([]byte, error) {
	if len(j.Signatures) != 1 {
		return nil, fmt.Errorf("%w: flattened serialization requires exactly one signature", errors.ErrInvalidArgument)
	}
	payload := j.encodedPayload()
	sig := header.Encode(j.Signatures[0].Signature)
	return json.Marshal(rawJSONWebSignature{
		Payload:   &payload,
		Protected: j.Signatures[0].protectedRaw,
		Header:    j.Signatures[0].Header,
		Signature: &sig,
	})
}

// GeneralSerialize returns the general JSON serialization.
func (j *JSONWebSignature) GeneralSerialize() ([]byte, error) {
	if len(j.Signatures) == 0 {
		return nil, fmt.Errorf("%w: no signatures", errors.ErrInvalidArgument)
	}
	payload := j.encodedPayload()
	raw := rawJSONWebSignature{Payload: &payload, Signatures: make([]rawSignature, len(j.Signatures))}
	for i, s := range j.Signatures {
		raw.Signatures[i] = rawSignature{
			Protected: s.protectedRaw,
			Header:    s.Header,
			Signature: header.Encode(s.Signature),
		}
	}
	return json.Marshal(raw)
}

// Serialize returns the object in the requested form. The compact form is
// returned as its ASCII bytes.
func (j *JSONWebSignature) Serialize(form Form) ([]byte, error) {
	switch form {
	case Compact:
		s, err := j.CompactSerialize()
		return []byte(s), err
	case Flattened:
		return j.FlattenedSerialize()
	case General:
		return j.GeneralSerialize()
	}
	return nil, fmt.Errorf("%w: unknown serialization %s", errors.ErrInvalidArgument, form)
}

// Parse parses a JWS in any serialization. Input starting with "{" is
// treated as JSON.
func Parse(data []byte) (*JSONWebSignature, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return ParseJSON(trimmed)
	}
	return ParseCompact(string(trimmed))
}

// ParseCompact parses the compact serialization.
func ParseCompact(s string) (*JSONWebSignature, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: compact serialization has %d parts, expected 3", errors.ErrMalformedJWS, len(parts))
	}

	sig, err := parseSignature(parts[0], nil, parts[2])
	if err != nil {
		return nil, err
	}
	j := &JSONWebSignature{Signatures: []Signature{sig}}
	if err := j.decodePayload(parts[1]); err != nil {
		return nil, err
	}
	return j, nil
}

// ParseJSON parses the flattened or general JSON serialization.
func ParseJSON(data []byte) (*JSONWebSignature, error) {
	var raw rawJSONWebSignature
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedJWS, err)
	}
	if raw.Payload == nil {
		return nil, fmt.Errorf("%w: missing payload", errors.ErrMalformedJWS)
	}

	j := &JSONWebSignature{}
	switch {
	case raw.Signatures != nil:
		if raw.Signature != nil || raw.Protected != "" || raw.Header != nil {
			return nil, fmt.Errorf("%w: signatures cannot be combined with flattened members", errors.ErrMalformedJWS)
		}
		if len(raw.Signatures) == 0 {
			return nil, fmt.Errorf("%w: empty signatures array", errors.ErrMalformedJWS)
		}
		for i, rs := range raw.Signatures {
			sig, err := parseSignature(rs.Protected, rs.Header, rs.Signature)
			if err != nil {
				return nil, fmt.Errorf("signature %d: %w", i, err)
			}
			j.Signatures = append(j.Signatures, sig)
		}
	case raw.Signature != nil:
		sig, err := parseSignature(raw.Protected, raw.Header, *raw.Signature)
		if err != nil {
			return nil, err
		}
		j.Signatures = []Signature{sig}
	default:
		return nil, fmt.Errorf("%w: missing signature", errors.ErrMalformedJWS)
	}

	if err := j.decodePayload(*raw.Payload); err != nil {
		return nil, err
	}
	return j, nil
}

func parseSignature(protectedRaw string, unprotected header.Parameters, sigRaw string) (Signature, error) {
	s := Signature{Header: unprotected, protectedRaw: protectedRaw}
	var err error
	if protectedRaw != "" {
		if s.Protected, err = header.DecodeProtected(protectedRaw); err != nil {
			return Signature{}, fmt.Errorf("%w: %v", errors.ErrMalformedJWS, err)
		}
	}
	if s.Signature, err = header.Decode(sigRaw); err != nil {
		s.Signature, s.undecodable = nil, true
	}
	if _, err := s.joint(); err != nil {
		return Signature{}, err
	}
	return s, nil
}

// decodePayload sets Unencoded from the signatures' b64 headers, which
// must agree, and decodes the payload accordingly.
func (j *JSONWebSignature) decodePayload(payload string) error {
	for i, s := range j.Signatures {
		unencoded, err := s.unencoded()
		if err != nil {
			return err
		}
		if i > 0 && unencoded != j.Unencoded {
			return fmt.Errorf("%w: signatures disagree on b64", errors.ErrMalformedJWS)
		}
		j.Unencoded = unencoded
	}
	if j.Unencoded {
		j.Payload = []byte(payload)
		return nil
	}
	var err error
	if j.Payload, err = header.Decode(payload); err != nil {
		return fmt.Errorf("%w: payload is not base64url", errors.ErrMalformedJWS)
	}
	return nil
}

// understood lists the crit extensions this package implements.
var understood = map[string]bool{header.Base64URLEncodePayload: true}

// joint merges the protected and unprotected headers and validates the
// "crit" and "b64" parameters (RFC 7515 Section 4.1.11, RFC 7797).
func (s *Signature) joint() (header.Parameters, error) {
	joint, err := header.Merge(s.Protected, s.Header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedJWS, err)
	}
	if s.Header.Has(header.Critical) || s.Header.Has(header.Base64URLEncodePayload) {
		return nil, fmt.Errorf("%w: crit and b64 must be integrity protected", errors.ErrMalformedJWS)
	}

	crit, err := s.Protected.Strings(header.Critical)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedJWS, err)
	}
	if s.Protected.Has(header.Critical) && len(crit) == 0 {
		return nil, fmt.Errorf("%w: crit must not be empty", errors.ErrMalformedJWS)
	}
	for _, name := range crit {
		if !understood[name] {
			return nil, fmt.Errorf("%w: unsupported critical header %q", errors.ErrMalformedJWS, name)
		}
		if !s.Protected.Has(name) {
			return nil, fmt.Errorf("%w: critical header %q is missing", errors.ErrMalformedJWS, name)
		}
	}
	if s.Protected.Has(header.Base64URLEncodePayload) && !contains(crit, header.Base64URLEncodePayload) {
		return nil, fmt.Errorf("%w: b64 must be listed in crit", errors.ErrMalformedJWS)
	}
	return joint, nil
}

func (s *Signature) unencoded() (bool, error) {
	b64, present, err := s.Protected.Bool(header.Base64URLEncodePayload)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errors.ErrMalformedJWS, err)
	}
	return present && !b64, nil
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}
