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

// KeyAlgorithm is a JWE "alg" value (RFC 7518 Section 4).
type KeyAlgorithm string

const (
	Direct           KeyAlgorithm = "dir"
	ECDHES           KeyAlgorithm = "ECDH-ES"
	ECDHESA128KW     KeyAlgorithm = "ECDH-ES+A128KW"
	ECDHESA192KW     KeyAlgorithm = "ECDH-ES+A192KW"
	ECDHESA256KW     KeyAlgorithm = "ECDH-ES+A256KW"
	RSA1_5           KeyAlgorithm = "RSA1_5"
	RSAOAEP          KeyAlgorithm = "RSA-OAEP"
	RSAOAEP256       KeyAlgorithm = "RSA-OAEP-256"
	RSAOAEP384       KeyAlgorithm = "RSA-OAEP-384"
	RSAOAEP512       KeyAlgorithm = "RSA-OAEP-512"
	PBES2HS256A128KW KeyAlgorithm = "PBES2-HS256+A128KW"
	PBES2HS384A192KW KeyAlgorithm = "PBES2-HS384+A192KW"
	PBES2HS512A256KW KeyAlgorithm = "PBES2-HS512+A256KW"
	A128KW           KeyAlgorithm = "A128KW"
	A192KW           KeyAlgorithm = "A192KW"
	A256KW           KeyAlgorithm = "A256KW"
	A128GCMKW        KeyAlgorithm = "A128GCMKW"
	A192GCMKW        KeyAlgorithm = "A192GCMKW"
	A256GCMKW        KeyAlgorithm = "A256GCMKW"
)

// KeyAlgorithms lists every supported "alg" value for JWE.
var KeyAlgorithms = []KeyAlgorithm{
	Direct,
	ECDHES, ECDHESA128KW, ECDHESA192KW, ECDHESA256KW,
	RSA1_5, RSAOAEP, RSAOAEP256, RSAOAEP384, RSAOAEP512,
	PBES2HS256A128KW, PBES2HS384A192KW, PBES2HS512A256KW,
	A128KW, A192KW, A256KW,
	A128GCMKW, A192GCMKW, A256GCMKW,
}

// KeyFamily groups key management algorithms that share a mechanism.
type KeyFamily int

const (
	FamilyDirect KeyFamily = iota + 1
	FamilyECDHES
	FamilyECDHESKW
	FamilyRSA15
	FamilyRSAOAEP
	FamilyPBES2
	FamilyAESKW
	FamilyAESGCMKW
)

// KeyParams describes a key management algorithm.
type KeyParams struct {
	Family KeyFamily

	// WrapKeyLen is the AES key-encryption key length in bytes for the
	// wrapping families and zero otherwise.
	WrapKeyLen int

	// Hash is the OAEP hash for RSA-OAEP and the PBKDF2 PRF hash for PBES2.
	Hash crypto.Hash
}

var keyParams = map[KeyAlgorithm]KeyParams{
	Direct:           {Family: FamilyDirect},
	ECDHES:           {Family: FamilyECDHES},
	ECDHESA128KW:     {Family: FamilyECDHESKW, WrapKeyLen: 16},
	ECDHESA192KW:     {Family: FamilyECDHESKW, WrapKeyLen: 24},
	ECDHESA256KW:     {Family: FamilyECDHESKW, WrapKeyLen: 32},
	RSA1_5:           {Family: FamilyRSA15},
	RSAOAEP:          {Family: FamilyRSAOAEP, Hash: crypto.SHA1},
	RSAOAEP256:       {Family: FamilyRSAOAEP, Hash: crypto.SHA256},
	RSAOAEP384:       {Family: FamilyRSAOAEP, Hash: crypto.SHA384},
	RSAOAEP512:       {Family: FamilyRSAOAEP, Hash: crypto.SHA512},
	PBES2HS256A128KW: {Family: FamilyPBES2, WrapKeyLen: 16, Hash: crypto.SHA256},
	PBES2HS384A192KW: {Family: FamilyPBES2, WrapKeyLen: 24, Hash: crypto.SHA384},
	PBES2HS512A256KW: {Family: FamilyPBES2, WrapKeyLen: 32, Hash: crypto.SHA512},
	A128KW:           {Family: FamilyAESKW, WrapKeyLen: 16},
	A192KW:           {Family: FamilyAESKW, WrapKeyLen: 24},
	A256KW:           {Family: FamilyAESKW, WrapKeyLen: 32},
	A128GCMKW:        {Family: FamilyAESGCMKW, WrapKeyLen: 16},
	A192GCMKW:        {Family: FamilyAESGCMKW, WrapKeyLen: 24},
	A256GCMKW:        {Family: FamilyAESGCMKW, WrapKeyLen: 32},
}

// ParseKeyAlgorithm resolves a JWE "alg" name.
func ParseKeyAlgorithm(name string) (KeyAlgorithm, error) {
	return lookup(name, KeyAlgorithms, errors.ErrUnsupportedAlgorithm)
}

// String returns the registered name.
func (a KeyAlgorithm) String() string {
	return string(a)
}

// IsValid reports whether a is registered.
func (a KeyAlgorithm) IsValid() bool {
	_, ok := keyParams[a]
	return ok
}

// Params returns the parameters of a.
func (a KeyAlgorithm) Params() (KeyParams, error) {
	p, ok := keyParams[a]
	if !ok {
		return KeyParams{}, fmt.Errorf("%w: alg %q", errors.ErrUnsupportedAlgorithm, string(a))
	}
	return p, nil
}

// Family returns the key family of a, or zero for an unregistered value.
func (a KeyAlgorithm) Family() KeyFamily {
	return keyParams[a].Family
}

// IsDirect reports whether the CEK is chosen by the algorithm itself rather
// than wrapped (dir and ECDH-ES). A message has at most one such recipient.
func (a KeyAlgorithm) IsDirect() bool {
	f := a.Family()
	return f == FamilyDirect || f == FamilyECDHES
}

// IsKeyAgreement reports whether a belongs to the ECDH-ES family.
func (a KeyAlgorithm) IsKeyAgreement() bool {
	f := a.Family()
	return f == FamilyECDHES || f == FamilyECDHESKW
}

// AcceptsKeyType reports whether a recipient key of type kty can be used
// with a. The ECDH-ES family takes EC and OKP keys, RSA1_5 and RSA-OAEP take
// RSA keys, and every other family takes symmetric keys.
func (a KeyAlgorithm) AcceptsKeyType(kty KeyType) bool {
	switch a.Family() {
	case FamilyRSA15, FamilyRSAOAEP:
		return kty == KeyTypeRSA
	case FamilyECDHES, FamilyECDHESKW:
		return kty == KeyTypeEC || kty == KeyTypeOKP
	case 0:
		return false
	default:
		return kty == KeyTypeOct
	}
}
