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

// Package errors defines the error kinds shared by every JOSE engine package.
//
// Every failure surfaced by the engine wraps exactly one of these sentinels and
// can be classified with errors.Is. The pkg/result package maps each sentinel to
// a stable numeric result code.
//
// Verification failures (ErrAuthenticationFailed, ErrUnwrapFailed and
// ErrSignatureInvalid) are always returned bare, without detail, so callers
// cannot tell a wrong key from a corrupted input.
//
// This package must not import any other package of this module.
package errors

import "errors"

var (
	// ErrUnsupportedAlgorithm indicates an algorithm name that is unknown,
	// disallowed by policy, or structurally incompatible with its companion
	// algorithm (for example "none", or EdDSA over a Weierstrass curve).
	ErrUnsupportedAlgorithm = errors.New("jose: unsupported algorithm")

	// ErrUnsupportedCurve indicates a named curve outside the registry.
	ErrUnsupportedCurve = errors.New("jose: unsupported curve")

	// ErrMalformedKey indicates JWK text that cannot be parsed or is missing
	// required members, or whose members have the wrong length for the curve.
	ErrMalformedKey = errors.New("jose: malformed key")

	// ErrInvalidKeyLength indicates key bytes whose length does not match what
	// the algorithm requires.
	ErrInvalidKeyLength = errors.New("jose: invalid key length")

	// ErrInvalidIvLength indicates an initialization vector of the wrong size.
	ErrInvalidIvLength = errors.New("jose: invalid iv length")

	// ErrAuthenticationFailed indicates an authentication tag mismatch.
	ErrAuthenticationFailed = errors.New("jose: authentication failed")

	// ErrKeyAgreementFailed indicates an ECDH failure such as a peer point
	// that is not on the curve or a low-order result.
	ErrKeyAgreementFailed = errors.New("jose: key agreement failed")

	// ErrUnwrapFailed indicates the integrity check of a wrapped key failed.
	ErrUnwrapFailed = errors.New("jose: key unwrap failed")

	// ErrInvalidKeyType indicates a key of the wrong type for the operation.
	ErrInvalidKeyType = errors.New("jose: invalid key type")

	// ErrNoMatchingRecipient indicates no JWE recipient corresponds to the
	// supplied key.
	ErrNoMatchingRecipient = errors.New("jose: no matching recipient")

	// ErrMalformedJWE indicates structurally invalid JWE input.
	ErrMalformedJWE = errors.New("jose: malformed jwe")

	// ErrMalformedJWS indicates structurally invalid JWS input.
	ErrMalformedJWS = errors.New("jose: malformed jws")

	// ErrSignatureInvalid indicates signature verification failed.
	ErrSignatureInvalid = errors.New("jose: signature invalid")

	// ErrUnsupportedAlgorithmForKey indicates an algorithm that is valid but not
	// usable with the supplied key.
	ErrUnsupportedAlgorithmForKey = errors.New("jose: unsupported algorithm for key")

	// ErrInvalidArgument indicates a missing or empty required input.
	ErrInvalidArgument = errors.New("jose: invalid argument")

	// ErrAlreadyReleased indicates an output buffer was released twice.
	ErrAlreadyReleased = errors.New("jose: output already released")
)
