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

package jwe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-josekit/pkg/encoding/header"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
)

// Form selects a JWE serialization.
type Form int

const (
	// Compact is the dot separated serialization (RFC 7516 Section 7.1).
	Compact Form = iota + 1

	// Flattened is the single recipient JSON serialization
	// (RFC 7516 Section 7.2.2).
	Flattened

	// General is the multi recipient JSON serialization
	// (RFC 7516 Section 7.2.1).
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

// RecipientInfo is one recipient of a JSONWebEncryption.
type RecipientInfo struct {
	// Header is the per-recipient unprotected header.
	Header header.Parameters

	EncryptedKey []byte
}

// JSONWebEncryption is a parsed or freshly produced JWE.
type JSONWebEncryption struct {
	// Protected is the decoded protected header.
	Protected header.Parameters

	// Unprotected is the shared unprotected header.
	Unprotected header.Parameters

	Recipients []RecipientInfo

	// AAD is the JWE AAD value, JSON serializations only.
	AAD []byte

	IV         []byte
	Ciphertext []byte
	Tag        []byte

	// protectedRaw is the protected header exactly as serialized; it is the
	// input to the content AAD.
	protectedRaw string
}

type rawRecipient struct {
	Header       header.Parameters `json:"header,omitempty"`
	EncryptedKey string            `json:"encrypted_key,omitempty"`
}

type rawJSONWebEncryption struct {
	Protected    string            `json:"protected,omitempty"`
	Unprotected  header.Parameters `json:"unprotected,omitempty"`
	Header       header.Parameters `json:"header,omitempty"`
	EncryptedKey string            `json:"encrypted_key,omitempty"`
	Recipients   []rawRecipient    `json:"recipients,omitempty"`
	AAD          string            `json:"aad,omitempty"`
	IV           string            `json:"iv"`
	Ciphertext   string            `json:"ciphertext"`
	Tag          string            `json:"tag"`
}

// ProtectedRaw returns the base64url protected header as serialized.
func (j *JSONWebEncryption) ProtectedRaw() string {
	return j.protectedRaw
}

// contentAAD computes the additional authenticated data for content
// encryption (RFC 7516 Section 5.1 step 14).
func contentAAD(protectedRaw string, aad []byte) []byte {
	if len(aad) == 0 {
		return []byte(protectedRaw)
	}
	return []byte(protectedRaw + "." + header.Encode(aad))
}

func (j *JSONWebEncryption) contentAAD() []byte {
	return contentAAD(j.protectedRaw, j.AAD)
}

// CompactSerialize returns the compact serialization. Only single recipient
// messages without unprotected headers or AAD can be compacted.
func (j *JSONWebEncryption) CompactSerialize() (string, error) {
	if len(j.Recipients) != 1 {
		return "", fmt.Errorf("%w: compact serialization requires exactly one recipient", errors.ErrInvalidArgument)
	}
	if len(j.Unprotected) > 0 || len(j.Recipients[0].Header) > 0 || len(j.AAD) > 0 {
		return "", fmt.Errorf("%w: compact serialization cannot carry unprotected headers or aad", errors.ErrInvalidArgument)
	}
	if j.protectedRaw == "" {
		return "", fmt.Errorf("%w: compact serialization requires a protected header", errors.ErrInvalidArgument)
	}
	return strings.Join([]string{
		j.protectedRaw,
		header.Encode(j.Recipients[0].EncryptedKey),
		header.Encode(j.IV),
		header.Encode(j.Ciphertext),
		header.Encode(j.Tag),
	}, "."), nil
}

func (j *JSONWebEncryption) raw() rawJSONWebEncryption {
	return rawJSONWebEncryption{
		Protected:   j.protectedRaw,
		Unprotected: j.Unprotected,
		AAD:         encodeOptional(j.AAD),
		IV:          header.Encode(j.IV),
		Ciphertext:  header.Encode(j.Ciphertext),
		Tag:         header.Encode(j.Tag),
	}
}

// FlattenedSerialize returns the flattened JSON serialization of a single
// recipient message.
func (j *JSONWebEncryption) FlattenedSerialize() ([]byte, error) {
	if len(j.Recipients) != 1 {
		return nil, fmt.Errorf("%w: flattened serialization requires exactly one recipient", errors.ErrInvalidArgument)
	}
	r := j.raw()
	r.Header = j.Recipients[0].Header
	r.EncryptedKey = encodeOptional(j.Recipients[0].EncryptedKey)
	return json.Marshal(r)
}

// GeneralSerialize returns the general JSON serialization.
func (j *JSONWebEncryption) GeneralSerialize() ([]byte, error) {
	if len(j.Recipients) == 0 {
		return nil, fmt.Errorf("%w: no recipients", errors.ErrInvalidArgument)
	}
	r := j.raw()
	r.Recipients = make([]rawRecipient, len(j.Recipients))
	for i, rcpt := range j.Recipients {
		r.Recipients[i] = rawRecipient{
			Header:       rcpt.Header,
			EncryptedKey: encodeOptional(rcpt.EncryptedKey),
		}
	}
	return json.Marshal(r)
}

// Serialize returns the message in the requested form. The compact form is
// returned as its ASCII bytes.
func (j *JSONWebEncryption) Serialize(form Form) ([]byte, error) {
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

func encodeOptional(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return header.Encode(b)
}

// Parse parses a JWE in any serialization. Input starting with "{" is
// treated as JSON.
func Parse(data []byte) (*JSONWebEncryption, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return ParseJSON(trimmed)
	}
	return ParseCompact(string(trimmed))
}

// ParseCompact parses the compact serialization.
func ParseCompact(s string) (*JSONWebEncryption, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 5 {
		return nil, fmt.Errorf("%w: compact serialization has %d parts, expected 5", errors.ErrMalformedJWE, len(parts))
	}
	protected, err := header.DecodeProtected(parts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedJWE, err)
	}

	j := &JSONWebEncryption{Protected: protected, protectedRaw: parts[0]}
	var ek []byte
	for i, dst := range []*[]byte{&ek, &j.IV, &j.Ciphertext, &j.Tag} {
		if *dst, err = header.Decode(parts[i+1]); err != nil {
			return nil, fmt.Errorf("%w: part %d is not base64url", errors.ErrMalformedJWE, i+2)
		}
	}
	j.Recipients = []RecipientInfo{{EncryptedKey: ek}}
	return j, nil
}

// ParseJSON parses the flattened or general JSON serialization.
func ParseJSON(data []byte) (*JSONWebEncryption, error) {
	var r rawJSONWebEncryption
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedJWE, err)
	}

	j := &JSONWebEncryption{Unprotected: r.Unprotected, protectedRaw: r.Protected}
	var err error
	if r.Protected != "" {
		if j.Protected, err = header.DecodeProtected(r.Protected); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrMalformedJWE, err)
		}
	}

	fields := []struct {
		name  string
		value string
		dst   *[]byte
	}{
		{"aad", r.AAD, &j.AAD},
		{"iv", r.IV, &j.IV},
		{"ciphertext", r.Ciphertext, &j.Ciphertext},
		{"tag", r.Tag, &j.Tag},
	}
	for _, f := range fields {
		if *f.dst, err = header.Decode(f.value); err != nil {
			return nil, fmt.Errorf("%w: %s is not base64url", errors.ErrMalformedJWE, f.name)
		}
	}

	switch {
	case r.Recipients != nil:
		if r.Header != nil || r.EncryptedKey != "" {
			return nil, fmt.Errorf("%w: recipients cannot be combined with flattened members", errors.ErrMalformedJWE)
		}
		if len(r.Recipients) == 0 {
			return nil, fmt.Errorf("%w: empty recipients array", errors.ErrMalformedJWE)
		}
		for i, rr := range r.Recipients {
			ek, err := header.Decode(rr.EncryptedKey)
			if err != nil {
				return nil, fmt.Errorf("%w: recipient %d encrypted_key is not base64url", errors.ErrMalformedJWE, i)
			}
			j.Recipients = append(j.Recipients, RecipientInfo{Header: rr.Header, EncryptedKey: ek})
		}
	default:
		ek, err := header.Decode(r.EncryptedKey)
		if err != nil {
			return nil, fmt.Errorf("%w: encrypted_key is not base64url", errors.ErrMalformedJWE)
		}
		j.Recipients = []RecipientInfo{{Header: r.Header, EncryptedKey: ek}}
	}

	if len(j.IV) == 0 || len(j.Tag) == 0 {
		return nil, fmt.Errorf("%w: iv and tag are required", errors.ErrMalformedJWE)
	}
	return j, nil
}

// jointHeader returns the union of the protected, shared unprotected and
// recipient i headers, checking that their names are disjoint and that no
// unsupported parameter is present.
func (j *JSONWebEncryption) jointHeader(i int) (header.Parameters, error) {
	joint, err := header.Merge(j.Protected, j.Unprotected, j.Recipients[i].Header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedJWE, err)
	}
	if err := checkUnsupported(joint); err != nil {
		return nil, err
	}
	return joint, nil
}

func checkUnsupported(h header.Parameters) error {
	if h.Has(header.CompressionAlgorithm) {
		return fmt.Errorf("%w: zip is not supported", errors.ErrUnsupportedAlgorithm)
	}
	if h.Has(header.Critical) {
		return fmt.Errorf("%w: crit is not supported for JWE", errors.ErrMalformedJWE)
	}
	return nil
}
