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
	"strings"

	"github.com/jeremyhahn/go-josekit/pkg/errors"
)

// SignatureAlgorithm is a JWS "alg" value (RFC 7518 Section 3, RFC 8037,
// RFC 8812).
type SignatureAlgorithm string

const (
	ES256  SignatureAlgorithm = "ES256"
	ES384  SignatureAlgorithm = "ES384"
	ES512  SignatureAlgorithm = "ES512"
	ES256K SignatureAlgorithm = "ES256K"
	EdDSA  SignatureAlgorithm = "EdDSA"
	HS256  SignatureAlgorithm = "HS256"
	HS384  SignatureAlgorithm = "HS384"
	HS512  SignatureAlgorithm = "HS512"
	RS256  SignatureAlgorithm = "RS256"
	RS384  SignatureAlgorithm = "RS384"
	RS512  SignatureAlgorithm = "RS512"
	PS256  SignatureAlgorithm = "PS256"
	PS384  SignatureAlgorithm = "PS384"
	PS512  SignatureAlgorithm = "PS512"
)

// SignatureAlgorithms lists every supported JWS "alg" value.
var SignatureAlgorithms = []SignatureAlgorithm{
	ES256, ES384, ES512, ES256K, EdDSA,
	HS256, HS384, HS512,
	RS256, RS384, RS512,
	PS256, PS384, PS512,
}

// SignatureFamily groups signature algorithms that share a mechanism.
type SignatureFamily int

const (
	FamilyECDSA SignatureFamily = iota + 1
	FamilyEdDSA
	FamilyHMAC
	FamilyRSAPKCS1
	FamilyRSAPSS
)

// SignatureParams describes a signature algorithm.
type SignatureParams struct {
	Family SignatureFamily

	// Hash is the digest applied to the signing input. Zero for EdDSA, which
	// signs the input directly.
	Hash crypto.Hash

	// Curve is the only curve an ECDSA algorithm accepts.
	Curve NamedCurve
}

var signatureParams = map[SignatureAlgorithm]SignatureParams{
	ES256:  {Family: FamilyECDSA, Hash: crypto.SHA256, Curve: P256},
	ES384:  {Family: FamilyECDSA, Hash: crypto.SHA384, Curve: P384},
	ES512:  {Family: FamilyECDSA, Hash: crypto.SHA512, Curve: P521},
	ES256K: {Family: FamilyECDSA, Hash: crypto.SHA256, Curve: Secp256k1},
	EdDSA:  {Family: FamilyEdDSA},
	HS256:  {Family: FamilyHMAC, Hash: crypto.SHA256},
	HS384:  {Family: FamilyHMAC, Hash: crypto.SHA384},
	HS512:  {Family: FamilyHMAC, Hash: crypto.SHA512},
	RS256:  {Family: FamilyRSAPKCS1, Hash: crypto.SHA256},
	RS384:  {Family: FamilyRSAPKCS1, Hash: crypto.SHA384},
	RS512:  {Family: FamilyRSAPKCS1, Hash: crypto.SHA512},
	PS256:  {Family: FamilyRSAPSS, Hash: crypto.SHA256},
	PS384:  {Family: FamilyRSAPSS, Hash: crypto.SHA384},
	PS512:  {Family: FamilyRSAPSS, Hash: crypto.SHA512},
}

// ParseSignatureAlgorithm resolves a JWS "alg" name. "none" is rejected.
func ParseSignatureAlgorithm(name string) (SignatureAlgorithm, error) {
	if strings.EqualFold(name, "none") {
		return "", fmt.Errorf("%w: unsecured JWS is not accepted", errors.ErrUnsupportedAlgorithm)
	}
	return lookup(name, SignatureAlgorithms, errors.ErrUnsupportedAlgorithm)
}

// String returns the registered name.
func (s SignatureAlgorithm) String() string {
	return string(s)
}

// IsValid reports whether s is registered.
func (s SignatureAlgorithm) IsValid() bool {
	_, ok := signatureParams[s]
	return ok
}

// Params returns the parameters of s.
func (s SignatureAlgorithm) Params() (SignatureParams, error) {
	p, ok := signatureParams[s]
	if !ok {
		return SignatureParams{}, fmt.Errorf("%w: alg %q", errors.ErrUnsupportedAlgorithm, string(s))
	}
	return p, nil
}

// KeyType returns the JWK kty a key must have for s.
func (s SignatureAlgorithm) KeyType() KeyType {
	switch signatureParams[s].Family {
	case FamilyECDSA:
		return KeyTypeEC
	case FamilyEdDSA:
		return KeyTypeOKP
	case FamilyHMAC:
		return KeyTypeOct
	default:
		return KeyTypeRSA
	}
}

// CheckSignatureCurve verifies that curve c is a structurally valid pairing
// for the signature algorithm s.
func CheckSignatureCurve(s SignatureAlgorithm, c NamedCurve) error {
	p, err := s.Params()
	if err != nil {
		return err
	}
	if !c.IsValid() {
		return fmt.Errorf("%w: %q", errors.ErrUnsupportedCurve, string(c))
	}
	switch p.Family {
	case FamilyECDSA:
		if c != p.Curve {
			return fmt.Errorf("%w: %s requires curve %s, got %s", errors.ErrUnsupportedAlgorithm, s, p.Curve, c)
		}
	case FamilyEdDSA:
		if c != Ed25519 && c != Ed448 {
			return fmt.Errorf("%w: EdDSA requires an Edwards curve, got %s", errors.ErrUnsupportedAlgorithm, c)
		}
	default:
		return fmt.Errorf("%w: %s does not use a named curve", errors.ErrUnsupportedAlgorithm, s)
	}
	return nil
}

// DefaultSignatureAlgorithm returns the algorithm used when a signing key
// does not name one: the ECDSA algorithm bound to an EC curve, EdDSA for
// Edwards curves, RS256 for RSA and HS256 for symmetric keys.
func DefaultSignatureAlgorithm(kty KeyType, c NamedCurve) (SignatureAlgorithm, error) {
	switch kty {
	case KeyTypeRSA:
		return RS256, nil
	case KeyTypeOct:
		return HS256, nil
	case KeyTypeEC, KeyTypeOKP:
		switch c {
		case P256:
			return ES256, nil
		case P384:
			return ES384, nil
		case P521:
			return ES512, nil
		case Secp256k1:
			return ES256K, nil
		case Ed25519, Ed448:
			return EdDSA, nil
		}
		return "", fmt.Errorf("%w: curve %q has no signature algorithm", errors.ErrUnsupportedAlgorithm, string(c))
	}
	return "", fmt.Errorf("%w: key type %q", errors.ErrUnsupportedAlgorithm, string(kty))
}
