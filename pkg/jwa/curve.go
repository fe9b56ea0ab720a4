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
	"fmt"

	"github.com/jeremyhahn/go-josekit/pkg/errors"
)

// NamedCurve identifies an elliptic curve by its JWK "crv" name.
type NamedCurve string

const (
	// P256 is NIST P-256 (secp256r1).
	P256 NamedCurve = "P-256"

	// P384 is NIST P-384 (secp384r1).
	P384 NamedCurve = "P-384"

	// P521 is NIST P-521 (secp521r1).
	P521 NamedCurve = "P-521"

	// Secp256k1 is the Koblitz curve used by Bitcoin and Ethereum (RFC 8812).
	Secp256k1 NamedCurve = "secp256k1"

	// Ed25519 is the Edwards curve for EdDSA signatures (RFC 8037).
	Ed25519 NamedCurve = "Ed25519"

	// Ed448 is the Edwards curve for EdDSA signatures (RFC 8037).
	Ed448 NamedCurve = "Ed448"

	// X25519 is the Montgomery curve for ECDH-ES key agreement (RFC 8037).
	X25519 NamedCurve = "X25519"

	// X448 is the Montgomery curve for ECDH-ES key agreement (RFC 8037).
	X448 NamedCurve = "X448"
)

// Curves lists every supported curve in registry order.
var Curves = []NamedCurve{P256, P384, P521, Secp256k1, Ed25519, Ed448, X25519, X448}

// CurveUsage is a bit set of the operations a curve supports.
type CurveUsage uint8

const (
	// UsageSignature marks curves usable for digital signatures.
	UsageSignature CurveUsage = 1 << iota

	// UsageKeyAgreement marks curves usable for ECDH-ES.
	UsageKeyAgreement
)

// CurveParams describes the encoding of keys on a curve.
type CurveParams struct {
	// KeyType is the JWK kty for keys on the curve.
	KeyType KeyType

	// Size is the byte length of a public coordinate (EC) or public key (OKP).
	Size int

	// PrivateSize is the byte length of the JWK "d" member.
	PrivateSize int

	Usage CurveUsage
}

var curveParams = map[NamedCurve]CurveParams{
	P256:      {KeyTypeEC, 32, 32, UsageSignature | UsageKeyAgreement},
	P384:      {KeyTypeEC, 48, 48, UsageSignature | UsageKeyAgreement},
	P521:      {KeyTypeEC, 66, 66, UsageSignature | UsageKeyAgreement},
	Secp256k1: {KeyTypeEC, 32, 32, UsageSignature | UsageKeyAgreement},
	Ed25519:   {KeyTypeOKP, 32, 32, UsageSignature},
	Ed448:     {KeyTypeOKP, 57, 57, UsageSignature},
	X25519:    {KeyTypeOKP, 32, 32, UsageKeyAgreement},
	X448:      {KeyTypeOKP, 56, 56, UsageKeyAgreement},
}

// ParseNamedCurve resolves a JWK curve name or its compact binding form.
func ParseNamedCurve(name string) (NamedCurve, error) {
	return lookup(name, Curves, errors.ErrUnsupportedCurve)
}

// String returns the JWK curve name.
func (c NamedCurve) String() string {
	return string(c)
}

// IsValid reports whether c is a registered curve.
func (c NamedCurve) IsValid() bool {
	_, ok := curveParams[c]
	return ok
}

// Params returns the encoding parameters of c.
func (c NamedCurve) Params() (CurveParams, error) {
	p, ok := curveParams[c]
	if !ok {
		return CurveParams{}, fmt.Errorf("%w: %q", errors.ErrUnsupportedCurve, string(c))
	}
	return p, nil
}

// Supports reports whether c supports usage u.
func (c NamedCurve) Supports(u CurveUsage) bool {
	p, ok := curveParams[c]
	return ok && p.Usage&u != 0
}

// CheckKeyAgreementCurve verifies c can be used with the ECDH-ES family.
func CheckKeyAgreementCurve(c NamedCurve) error {
	if !c.IsValid() {
		return fmt.Errorf("%w: %q", errors.ErrUnsupportedCurve, string(c))
	}
	if !c.Supports(UsageKeyAgreement) {
		return fmt.Errorf("%w: curve %s does not support key agreement", errors.ErrUnsupportedAlgorithm, c)
	}
	return nil
}
