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

package jwa

import (
	"crypto"
	"fmt"

	"github.com/jeremyhahn/go-josekit/pkg/errors"
)

// ContentEncryption is a JWE "enc" value (RFC 7518 Section 5).
type ContentEncryption string

const (
	A128GCM      ContentEncryption = "A128GCM"
	A192GCM      ContentEncryption = "A192GCM"
	A256GCM      ContentEncryption = "A256GCM"
	A128CBCHS256 ContentEncryption = "A128CBC-HS256"
	A192CBCHS384 ContentEncryption = "A192CBC-HS384"
	A256CBCHS512 ContentEncryption = "A256CBC-HS512"
)

// ContentEncryptions lists every supported "enc" value.
var ContentEncryptions = []ContentEncryption{
	A128GCM, A192GCM, A256GCM, A128CBCHS256, A192CBCHS384, A256CBCHS512,
}

// ContentParams holds the sizes an "enc" algorithm requires, in bytes.
type ContentParams struct {
	KeyLen int
	IVLen  int
	TagLen int

	// CBC is true for the AES-CBC + HMAC-SHA2 composites; Hash is then the
	// HMAC hash and KeyLen covers both the MAC and the encryption halves.
	CBC  bool
	Hash crypto.Hash
}

var contentParams = map[ContentEncryption]ContentParams{
	A128GCM:      {KeyLen: 16, IVLen: 12, TagLen: 16},
	A192GCM:      {KeyLen: 24, IVLen: 12, TagLen: 16},
	A256GCM:      {KeyLen: 32, IVLen: 12, TagLen: 16},
	A128CBCHS256: {KeyLen: 32, IVLen: 16, TagLen: 16, CBC: true, Hash: crypto.SHA256},
	A192CBCHS384: {KeyLen: 48, IVLen: 16, TagLen: 24, CBC: true, Hash: crypto.SHA384},
	A256CBCHS512: {KeyLen: 64, IVLen: 16, TagLen: 32, CBC: true, Hash: crypto.SHA512},
}

// ParseContentEncryption resolves an "enc" name.
func ParseContentEncryption(name string) (ContentEncryption, error) {
	return lookup(name, ContentEncryptions, errors.ErrUnsupportedAlgorithm)
}

// String returns the registered name.
func (e ContentEncryption) String() string {
	return string(e)
}

// IsValid reports whether e is registered.
func (e ContentEncryption) IsValid() bool {
	_, ok := contentParams[e]
	return ok
}

// Params returns the size parameters of e.
func (e ContentEncryption) Params() (ContentParams, error) {
	p, ok := contentParams[e]
	if !ok {
		return ContentParams{}, fmt.Errorf("%w: enc %q", errors.ErrUnsupportedAlgorithm, string(e))
	}
	return p, nil
}

// KeyLen returns the CEK length in bytes, or 0 for an unregistered value.
func (e ContentEncryption) KeyLen() int {
	return contentParams[e].KeyLen
}
