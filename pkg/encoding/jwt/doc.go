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

// Package jwt mints and verifies JSON Web Tokens (RFC 7519) with the
// josekit signing engine behind github.com/golang-jwt/jwt/v5.
//
// Signer builds tokens with golang-jwt and signs them through a
// SigningMethod, so every JWS algorithm is available, including ES256K and
// EdDSA over Ed448, and keys may be crypto.Signer implementations or JWKs.
// Verifier checks the signature with pkg/encoding/jws, which applies the
// algorithm policy and kid selection, then validates the registered claims
// with golang-jwt's validator.
//
// Programs that parse tokens with golang-jwt directly can call
// RegisterSigningMethods to route every algorithm through the same engine,
// and use KeySet.Keyfunc to select keys from a JWK Set.
//
// Example usage:
//
//	signer, err := jwt.NewSigner(privateKey, &jwt.SignerOptions{KeyID: "key-1"})
//	token, err := signer.Sign(gojwt.MapClaims{
//	    "iss": "josekit",
//	    "exp": time.Now().Add(time.Hour).Unix(),
//	})
//
//	verifier, err := jwt.NewVerifier(publicKey, &jwt.VerifyOptions{Issuer: "josekit"})
//	claims, err := verifier.Verify(token)
package jwt
