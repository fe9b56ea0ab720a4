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

// Package ecdh performs the Diffie-Hellman step of JWE ECDH-ES key agreement
// and the Concat KDF of RFC 7518 Section 4.6.2.
//
// Supported key types are:
//
//	P-256, P-384, P-521  *ecdsa.PrivateKey, *ecdh.PrivateKey
//	secp256k1            *btcec.PrivateKey
//	X25519               *ecdh.PrivateKey
//	X448                 x448.PrivateKey
//
// with the matching public key types. Failures of the agreement itself wrap
// errors.ErrKeyAgreementFailed; mismatched key types wrap
// errors.ErrInvalidKeyType.
//
// Example usage:
//
//	eph, err := ecdh.GenerateEphemeral(jwa.P256, nil)
//	z, err := ecdh.SharedSecret(eph.PrivateKey, recipientPub)
//	kek, err := ecdh.DeriveKey(z, "ECDH-ES+A128KW", apu, apv, 16)
package ecdh

import (
	"crypto"
	"crypto/ecdh"
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	josecipher "github.com/go-jose/go-jose/v4/cipher"

	"github.com/jeremyhahn/go-josekit/pkg/crypto/x448"
	"github.com/jeremyhahn/go-josekit/pkg/crypto/zeroize"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// MaxKeyLen bounds the derived key size accepted by DeriveKey.
const MaxKeyLen = 1 << 16

// GenerateEphemeral creates a fresh key pair on curve for one ECDH-ES
// operation. Only key agreement curves are accepted.
func GenerateEphemeral(curve jwa.NamedCurve, r io.Reader) (*jwk.KeyPair, error) {
	if err := jwa.CheckKeyAgreementCurve(curve); err != nil {
		return nil, err
	}
	return jwk.GenerateKeyPairWithReader(curve, r)
}

// SharedSecret performs Diffie-Hellman between priv and the peer key pub and
// returns the raw shared secret Z. For Weierstrass curves Z is the
// fixed-width x-coordinate of the shared point.
func SharedSecret(priv crypto.PrivateKey, pub crypto.PublicKey) ([]byte, error) {
	if priv == nil || pub == nil {
		return nil, fmt.Errorf("%w: nil key", errors.ErrInvalidArgument)
	}

	switch sk := priv.(type) {
	case *ecdsa.PrivateKey:
		pk, ok := pub.(*ecdsa.PublicKey)
		if !ok {
			return nil, mismatch(priv, pub)
		}
		if pk.Curve != sk.Curve {
			return nil, fmt.Errorf("%w: curve mismatch", errors.ErrKeyAgreementFailed)
		}
		esk, err := sk.ECDH()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidKeyType, err)
		}
		epk, err := pk.ECDH()
		if err != nil {
			return nil, fmt.Errorf("%w: peer point is not on the curve", errors.ErrKeyAgreementFailed)
		}
		return agree(esk, epk)

	case *ecdh.PrivateKey:
		var epk *ecdh.PublicKey
		switch v := pub.(type) {
		case *ecdh.PublicKey:
			epk = v
		case *ecdsa.PublicKey:
			k, err := v.ECDH()
			if err != nil {
				return nil, fmt.Errorf("%w: peer point is not on the curve", errors.ErrKeyAgreementFailed)
			}
			epk = k
		default:
			return nil, mismatch(priv, pub)
		}
		if epk.Curve() != sk.Curve() {
			return nil, fmt.Errorf("%w: curve mismatch", errors.ErrKeyAgreementFailed)
		}
		return agree(sk, epk)

	case *btcec.PrivateKey:
		pk, ok := pub.(*btcec.PublicKey)
		if !ok {
			return nil, mismatch(priv, pub)
		}
		// ParsePubKey rejects off-curve points, so re-parse keys that did
		// not come from the jwk package.
		checked, err := btcec.ParsePubKey(pk.SerializeUncompressed())
		if err != nil {
			return nil, fmt.Errorf("%w: peer point is not on the curve", errors.ErrKeyAgreementFailed)
		}
		return btcec.GenerateSharedSecret(sk, checked), nil

	case x448.PrivateKey:
		pk, ok := pub.(x448.PublicKey)
		if !ok {
			return nil, mismatch(priv, pub)
		}
		z, err := x448.DeriveSharedSecret(sk, pk)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrKeyAgreementFailed, err)
		}
		return z, nil
	}

	return nil, fmt.Errorf("%w: %T cannot be used for key agreement", errors.ErrInvalidKeyType, priv)
}

func agree(sk *ecdh.PrivateKey, pk *ecdh.PublicKey) ([]byte, error) {
	z, err := sk.ECDH(pk)
	if err != nil {
		// crypto/ecdh rejects an all-zero X25519 output.
		return nil, fmt.Errorf("%w: %v", errors.ErrKeyAgreementFailed, err)
	}
	return z, nil
}

func mismatch(priv crypto.PrivateKey, pub crypto.PublicKey) error {
	return fmt.Errorf("%w: %T does not agree with %T", errors.ErrInvalidKeyType, priv, pub)
}

// DeriveKey runs the single-step Concat KDF with SHA-256 over Z. algID is
// the "enc" value for direct ECDH-ES and the "alg" value for the key
// wrapping variants; apu and apv are the decoded header values.
func DeriveKey(z []byte, algID string, apu, apv []byte, keyLen int) ([]byte, error) {
	if len(z) == 0 {
		return nil, fmt.Errorf("%w: empty shared secret", errors.ErrKeyAgreementFailed)
	}
	if keyLen <= 0 || keyLen > MaxKeyLen {
		return nil, fmt.Errorf("%w: derived key length %d", errors.ErrInvalidKeyLength, keyLen)
	}

	supPubInfo := make([]byte, 4)
	binary.BigEndian.PutUint32(supPubInfo, uint32(keyLen)*8)

	kdf := josecipher.NewConcatKDF(crypto.SHA256, z,
		lengthPrefixed([]byte(algID)),
		lengthPrefixed(apu),
		lengthPrefixed(apv),
		supPubInfo,
		[]byte{},
	)

	key := make([]byte, keyLen)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrKeyAgreementFailed, err)
	}
	return key, nil
}

// Agree computes Z between priv and pub, derives keyLen bytes from it and
// wipes Z before returning.
func Agree(priv crypto.PrivateKey, pub crypto.PublicKey, algID string, apu, apv []byte, keyLen int) ([]byte, error) {
	z, err := SharedSecret(priv, pub)
	if err != nil {
		return nil, err
	}
	defer zeroize.Bytes(z)
	return DeriveKey(z, algID, apu, apv, keyLen)
}

func lengthPrefixed(data []byte) []byte {
	out := make([]byte, len(data)+4)
	binary.BigEndian.PutUint32(out, uint32(len(data)))
	copy(out[4:], data)
	return out
}
