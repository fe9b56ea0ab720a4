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

package jwk

import (
	"crypto"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"

	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// Thumbprint computes the RFC 7638 thumbprint of a public or private key.
func Thumbprint(key any, hashFunc crypto.Hash) (string, error) {
	j, err := FromKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to convert key to JWK: %w", err)
	}
	return j.Thumbprint(hashFunc)
}

// ThumbprintSHA256 computes the SHA-256 JWK thumbprint of a key.
func ThumbprintSHA256(key any) (string, error) {
	return Thumbprint(key, crypto.SHA256)
}

// Thumbprint computes the RFC 7638 thumbprint of the JWK:
//
//  1. keep only the required members for the key type
//  2. serialize them with lexicographically sorted names and no whitespace
//  3. hash the UTF-8 bytes and base64url encode the digest
//
// Required members are {e, kty, n} for RSA, {crv, kty, x, y} for EC,
// {crv, kty, x} for OKP (RFC 8037) and {k, kty} for oct.
func (k *JWK) Thumbprint(hashFunc crypto.Hash) (string, error) {
	fields, err := k.thumbprintFields()
	if err != nil {
		return "", err
	}
	switch hashFunc {
	case crypto.SHA1, crypto.SHA256, crypto.SHA384, crypto.SHA512:
	default:
		return "", fmt.Errorf("unsupported hash function: %v", hashFunc)
	}

	h := hashFunc.New()
	h.Write(serializeForThumbprint(fields))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

// ThumbprintSHA256 computes the SHA-256 thumbprint of the JWK.
func (k *JWK) ThumbprintSHA256() (string, error) {
	return k.Thumbprint(crypto.SHA256)
}

func (k *JWK) thumbprintFields() (map[string]string, error) {
	var fields map[string]string
	switch k.KeyType() {
	case jwa.KeyTypeRSA:
		fields = map[string]string{"e": k.E, "kty": k.Kty, "n": k.N}
	case jwa.KeyTypeEC:
		fields = map[string]string{"crv": k.Crv, "kty": k.Kty, "x": k.X, "y": k.Y}
	case jwa.KeyTypeOKP:
		fields = map[string]string{"crv": k.Crv, "kty": k.Kty, "x": k.X}
	case jwa.KeyTypeOct:
		fields = map[string]string{"k": k.K, "kty": k.Kty}
	default:
		return nil, fmt.Errorf("%w: unsupported key type for thumbprint: %s", errors.ErrMalformedKey, k.Kty)
	}
	for name, v := range fields {
		if v == "" {
			return nil, fmt.Errorf("%w: %s JWK missing required field for thumbprint: %s", errors.ErrMalformedKey, k.Kty, name)
		}
	}
	return fields, nil
}

func serializeForThumbprint(fields map[string]string) []byte {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		// json.Marshal of a string cannot fail
		n, _ := json.Marshal(name)
		v, _ := json.Marshal(fields[name])
		b.Write(n)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return []byte(b.String())
}
