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

// Package jwa is the registry of JSON Web Algorithms (RFC 7518) and named
// curves supported by the engine.
//
// Every enum is a closed string type whose value is the registered JOSE name.
// Parse functions accept the JOSE name and the case-insensitive compact form
// used by foreign bindings ("A256gcm", "EcdhEsA128kw", "Secp256k1"), so both
// spellings resolve to the same value:
//
//	enc, err := jwa.ParseContentEncryption("A256gcm")  // jwa.A256GCM
//	alg, err := jwa.ParseKeyAlgorithm("ECDH-ES+A128KW") // jwa.ECDHESA128KW
//
// Parameter lookups (key, IV and tag sizes, hash functions, key families) are
// pure functions over these values and never mutate shared state.
//
// The "none" signature algorithm is not registered and is always rejected.
package jwa

import (
	"fmt"
	"strings"
)

// normalize folds a name into the compact comparison form: separators removed
// and upper case.
func normalize(name string) string {
	r := strings.NewReplacer("-", "", "+", "", "_", "")
	return strings.ToUpper(r.Replace(name))
}

// lookup resolves name against the registered values of an enum.
func lookup[T ~string](name string, values []T, kind error) (T, error) {
	var zero T
	if name == "" {
		return zero, fmt.Errorf("%w: empty name", kind)
	}
	for _, v := range values {
		if string(v) == name {
			return v, nil
		}
	}
	n := normalize(name)
	for _, v := range values {
		if normalize(string(v)) == n {
			return v, nil
		}
	}
	return zero, fmt.Errorf("%w: %q", kind, name)
}

// KeyType is the JWK "kty" value.
type KeyType string

const (
	// KeyTypeEC is an elliptic curve key over a short Weierstrass curve.
	KeyTypeEC KeyType = "EC"

	// KeyTypeOKP is an octet key pair (RFC 8037): Ed25519, Ed448, X25519, X448.
	KeyTypeOKP KeyType = "OKP"

	// KeyTypeRSA is an RSA key.
	KeyTypeRSA KeyType = "RSA"

	// KeyTypeOct is a symmetric key.
	KeyTypeOct KeyType = "oct"
)

// String returns the kty value.
func (k KeyType) String() string {
	return string(k)
}
