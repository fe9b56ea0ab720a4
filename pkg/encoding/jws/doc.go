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

// Package jws implements JSON Web Signature (RFC 7515) in the compact,
// flattened JSON and general JSON serializations, including the unencoded
// payload option of RFC 7797.
//
// A Signer holds one or more keys. Each key contributes one signature;
// compact and flattened output require exactly one. A key without an
// explicit algorithm signs with the default for its type and curve (ES256,
// ES384, ES512 or ES256K for EC keys, EdDSA for Ed25519 and Ed448, RS256
// for RSA, HS256 for secrets).
//
// # Critical headers
//
// "b64" is the only understood "crit" extension. It must sit in the
// protected header and be listed in "crit", and every signature of an
// object must agree on it. Any other critical name fails with
// errors.ErrMalformedJWS. A compact unencoded payload may not contain '.'.
//
// # Verification
//
// A Verifier tries each signature whose "alg" suits its key and returns the
// first that validates. When the key carries a kid, signatures naming
// another kid (other than the key's RFC 7638 thumbprint) are skipped. Every
// cryptographic failure is reported as errors.ErrSignatureInvalid.
//
// # DIDComm
//
// With SignOptions.DIDComm set, the protected "typ" is
// "application/didcomm-signed+json" and every signer carries a kid, its
// thumbprint when none is given. The kid sits in the per-signature
// unprotected header except in the compact form.
//
// Example usage:
//
//	s, err := jws.NewSigner([]jws.SigningKey{{Algorithm: jwa.EdDSA, Key: priv}}, nil)
//	token, err := s.SignCompact([]byte("hello"))
//
//	v, err := jws.NewVerifier(pub, nil)
//	out, err := v.VerifyBytes([]byte(token))
package jws
