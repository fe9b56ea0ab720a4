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

// Package keymgmt implements the nineteen JWE key management algorithms of
// RFC 7518 Section 4: given a recipient key it produces (Wrap) or recovers
// (Unwrap) the content encryption key, together with the per-recipient
// header parameters the algorithm needs.
//
// Keys are Go key values as produced by the jwk package:
//
//	dir, AxxxKW, AxxxGCMKW   []byte of the algorithm's key length
//	PBES2-*                  []byte password
//	RSA1_5, RSA-OAEP*        *rsa.PublicKey to wrap, *rsa.PrivateKey to unwrap
//	ECDH-ES*                 EC/OKP public key to wrap, private key to unwrap
//
// A key of the wrong type for the algorithm, such as an EC key for
// RSA-OAEP or an Ed25519 key for ECDH-ES, wraps errors.ErrInvalidKeyType.
package keymgmt

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/jeremyhahn/go-josekit/pkg/crypto/aead"
	jrand "github.com/jeremyhahn/go-josekit/pkg/crypto/rand"
	"github.com/jeremyhahn/go-josekit/pkg/crypto/x448"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// DefaultPBES2SaltSize is the length of a generated "p2s" value.
const DefaultPBES2SaltSize = 16

// Params holds the per-recipient header parameters produced by Wrap and
// consumed by Unwrap. Byte fields hold decoded values.
type Params struct {
	// EPK is the ephemeral public key of the ECDH-ES family.
	EPK *jwk.JWK

	// APU and APV are the Concat KDF party info of the ECDH-ES family.
	APU []byte
	APV []byte

	// IV and Tag belong to the AxxxGCMKW family.
	IV  []byte
	Tag []byte

	// P2S and P2C belong to the PBES2 family.
	P2S []byte
	P2C int
}

// Options tunes Wrap and Unwrap. A nil *Options selects the defaults.
type Options struct {
	// Policy bounds PBES2 iteration counts. Nil allows the package defaults.
	Policy *jwa.Policy

	// Rand supplies CEKs, IVs, salts and ephemeral keys.
	Rand io.Reader

	// CEK fixes the content encryption key when another recipient of the
	// same message has already chosen it. Direct algorithms cannot honor
	// it and fail with errors.ErrInvalidArgument.
	CEK []byte

	// APU and APV are sent as Concat KDF party info for ECDH-ES.
	APU []byte
	APV []byte

	// P2C is the PBKDF2 iteration count. Zero selects
	// jwa.DefaultPBES2Iterations.
	P2C int
}

func (o *Options) rand() io.Reader {
	if o == nil {
		return jrand.Reader
	}
	return jrand.Or(o.Rand)
}

func (o *Options) policy() *jwa.Policy {
	if o == nil {
		return nil
	}
	return o.Policy
}

// Wrapped is the result of Wrap.
type Wrapped struct {
	// CEK is the content encryption key for the message.
	CEK []byte

	// EncryptedKey is the JWE Encrypted Key, empty for direct algorithms.
	EncryptedKey []byte

	Params Params
}

// Wrap produces the CEK for enc and its encrypted form for one recipient
// holding key under alg.
func Wrap(alg jwa.KeyAlgorithm, enc jwa.ContentEncryption, key any, opts *Options) (*Wrapped, error) {
	kp, err := alg.Params()
	if err != nil {
		return nil, err
	}
	cp, err := enc.Params()
	if err != nil {
		return nil, err
	}
	if opts != nil && opts.CEK != nil && len(opts.CEK) != cp.KeyLen {
		return nil, fmt.Errorf("%w: %s requires a %d byte CEK, got %d", errors.ErrInvalidKeyLength, enc, cp.KeyLen, len(opts.CEK))
	}

	switch kp.Family {
	case jwa.FamilyDirect:
		return wrapDirect(enc, cp, key, opts)
	case jwa.FamilyECDHES:
		return wrapECDHES(alg, enc, cp, key, opts)
	}

	cek, err := contentKey(enc, opts)
	if err != nil {
		return nil, err
	}
	w := &Wrapped{CEK: cek}

	switch kp.Family {
	case jwa.FamilyECDHESKW:
		err = wrapECDHESKW(alg, kp, key, opts, w)
	case jwa.FamilyRSA15:
		err = wrapRSA15(key, opts, w)
	case jwa.FamilyRSAOAEP:
		err = wrapRSAOAEP(alg, kp, key, opts, w)
	case jwa.FamilyPBES2:
		err = wrapPBES2(alg, kp, key, opts, w)
	case jwa.FamilyAESKW:
		err = wrapAESKW(alg, kp, key, w)
	case jwa.FamilyAESGCMKW:
		err = wrapAESGCMKW(alg, kp, key, opts, w)
	default:
		err = fmt.Errorf("%w: alg %s", errors.ErrUnsupportedAlgorithm, alg)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Unwrap recovers the CEK for enc from encryptedKey using the recipient's
// key and the header parameters in params.
func Unwrap(alg jwa.KeyAlgorithm, enc jwa.ContentEncryption, key any, encryptedKey []byte, params *Params, opts *Options) ([]byte, error) {
	kp, err := alg.Params()
	if err != nil {
		return nil, err
	}
	cp, err := enc.Params()
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = &Params{}
	}

	var cek []byte
	switch kp.Family {
	case jwa.FamilyDirect:
		cek, err = unwrapDirect(alg, cp, key, encryptedKey)
	case jwa.FamilyECDHES:
		cek, err = unwrapECDHES(alg, enc, cp, key, encryptedKey, params)
	case jwa.FamilyECDHESKW:
		cek, err = unwrapECDHESKW(alg, kp, key, encryptedKey, params)
	case jwa.FamilyRSA15:
		cek, err = unwrapRSA15(alg, cp, key, encryptedKey, opts)
	case jwa.FamilyRSAOAEP:
		cek, err = unwrapRSAOAEP(alg, kp, key, encryptedKey)
	case jwa.FamilyPBES2:
		cek, err = unwrapPBES2(alg, kp, key, encryptedKey, params, opts)
	case jwa.FamilyAESKW:
		cek, err = unwrapAESKW(alg, kp, key, encryptedKey)
	case jwa.FamilyAESGCMKW:
		cek, err = unwrapAESGCMKW(alg, kp, key, encryptedKey, params)
	default:
		err = fmt.Errorf("%w: alg %s", errors.ErrUnsupportedAlgorithm, alg)
	}
	if err != nil {
		return nil, err
	}
	if len(cek) != cp.KeyLen {
		return nil, errors.ErrUnwrapFailed
	}
	return cek, nil
}

func contentKey(enc jwa.ContentEncryption, opts *Options) ([]byte, error) {
	if opts != nil && opts.CEK != nil {
		return append([]byte(nil), opts.CEK...), nil
	}
	return aead.GenerateCEK(enc, opts.rand())
}

func keyMismatch(alg jwa.KeyAlgorithm, key any) error {
	return fmt.Errorf("%w: %s cannot use a %T key", errors.ErrInvalidKeyType, alg, key)
}

func symmetricKey(alg jwa.KeyAlgorithm, key any) ([]byte, error) {
	switch v := key.(type) {
	case []byte:
		return v, nil
	case *jwk.JWK:
		if !v.IsSymmetric() {
			return nil, keyMismatch(alg, key)
		}
		return v.ToSymmetricKey()
	}
	return nil, keyMismatch(alg, key)
}

// publicKeyOf returns the public half of an asymmetric key, or the key
// itself when it is already public.
func publicKeyOf(key any) crypto.PublicKey {
	switch v := key.(type) {
	case *ecdsa.PrivateKey:
		return &v.PublicKey
	case *ecdh.PrivateKey:
		return v.PublicKey()
	case *btcec.PrivateKey:
		return v.PubKey()
	case x448.PrivateKey:
		return v.PublicKey()
	case *rsa.PrivateKey:
		return &v.PublicKey
	}
	return key
}
