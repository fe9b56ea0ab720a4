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
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/cloudflare/circl/sign/ed448"

	jrand "github.com/jeremyhahn/go-josekit/pkg/crypto/rand"
	"github.com/jeremyhahn/go-josekit/pkg/crypto/x448"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// MinRSABits is the smallest RSA modulus accepted for generation, signing
// and key encryption (RFC 7518 Sections 3.3 and 4.2).
const MinRSABits = 2048

// KeyPair is a private key and its public key on a named curve.
type KeyPair struct {
	Curve      jwa.NamedCurve
	PrivateKey crypto.PrivateKey
	PublicKey  crypto.PublicKey
}

// GenerateKeyPair generates a key pair on curve using the default random
// source.
func GenerateKeyPair(curve jwa.NamedCurve) (*KeyPair, error) {
	return GenerateKeyPairWithReader(curve, nil)
}

// GenerateKeyPairWithReader generates a key pair on curve reading entropy
// from r, or from the default source when r is nil.
func GenerateKeyPairWithReader(curve jwa.NamedCurve, r io.Reader) (*KeyPair, error) {
	r = jrand.Or(r)
	kp := &KeyPair{Curve: curve}

	switch curve {
	case jwa.P256, jwa.P384, jwa.P521:
		c, _ := NISTCurve(curve)
		key, err := ecdsa.GenerateKey(c, r)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s key: %w", curve, err)
		}
		kp.PrivateKey, kp.PublicKey = key, &key.PublicKey

	case jwa.Secp256k1:
		var scalar btcec.ModNScalar
		seed := make([]byte, 32)
		for {
			if _, err := io.ReadFull(r, seed); err != nil {
				return nil, fmt.Errorf("failed to generate secp256k1 key: %w", err)
			}
			if overflow := scalar.SetByteSlice(seed); !overflow && !scalar.IsZero() {
				break
			}
		}
		key, pub := btcec.PrivKeyFromBytes(seed)
		kp.PrivateKey, kp.PublicKey = key, pub

	case jwa.Ed25519:
		pub, key, err := ed25519.GenerateKey(r)
		if err != nil {
			return nil, fmt.Errorf("failed to generate Ed25519 key: %w", err)
		}
		kp.PrivateKey, kp.PublicKey = key, pub

	case jwa.Ed448:
		pub, key, err := ed448.GenerateKey(r)
		if err != nil {
			return nil, fmt.Errorf("failed to generate Ed448 key: %w", err)
		}
		kp.PrivateKey, kp.PublicKey = key, pub

	case jwa.X25519:
		key, err := ecdh.X25519().GenerateKey(r)
		if err != nil {
			return nil, fmt.Errorf("failed to generate X25519 key: %w", err)
		}
		kp.PrivateKey, kp.PublicKey = key, key.PublicKey()

	case jwa.X448:
		pair, err := x448.GenerateKey(r)
		if err != nil {
			return nil, err
		}
		kp.PrivateKey, kp.PublicKey = pair.PrivateKey, pair.PublicKey

	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnsupportedCurve, string(curve))
	}
	return kp, nil
}

// GenerateRSAKey generates an RSA private key of at least MinRSABits.
func GenerateRSAKey(bits int, r io.Reader) (*rsa.PrivateKey, error) {
	if bits < MinRSABits {
		return nil, fmt.Errorf("%w: RSA keys must be at least %d bits", errors.ErrInvalidKeyLength, MinRSABits)
	}
	key, err := rsa.GenerateKey(jrand.Or(r), bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}
	return key, nil
}

// GenerateSymmetricKey returns size random bytes.
func GenerateSymmetricKey(size int, r io.Reader) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", errors.ErrInvalidKeyLength, size)
	}
	key := make([]byte, size)
	if _, err := io.ReadFull(jrand.Or(r), key); err != nil {
		return nil, fmt.Errorf("failed to generate symmetric key: %w", err)
	}
	return key, nil
}

// KeyPair converts a private JWK on a named curve to a KeyPair.
func (k *JWK) KeyPair() (*KeyPair, error) {
	crv, err := k.Curve()
	if err != nil {
		return nil, err
	}
	if crv == "" {
		return nil, fmt.Errorf("%w: kty %s has no named curve", errors.ErrInvalidKeyType, k.Kty)
	}
	priv, err := k.ToPrivateKey()
	if err != nil {
		return nil, err
	}
	pub, err := k.ToPublicKey()
	if err != nil {
		return nil, err
	}
	return &KeyPair{Curve: crv, PrivateKey: priv, PublicKey: pub}, nil
}

// JWK exports the key pair as a private JWK.
func (kp *KeyPair) JWK() (*JWK, error) {
	return FromPrivateKey(kp.PrivateKey)
}

// PublicJWK exports the public half as a JWK.
func (kp *KeyPair) PublicJWK() (*JWK, error) {
	return FromPublicKey(kp.PublicKey)
}

// RawKeyPair is the raw byte form of a key pair, base64url encoded. EC public
// keys are uncompressed SEC1 points and EC private keys are fixed-width
// big-endian scalars; OKP keys use their RFC 8037 raw encodings.
type RawKeyPair struct {
	Curve      string `json:"curve"`
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// Raw returns the raw encoding of the key pair.
func (kp *KeyPair) Raw() (*RawKeyPair, error) {
	j, err := kp.JWK()
	if err != nil {
		return nil, err
	}
	raw := &RawKeyPair{Curve: j.Crv, PrivateKey: j.D}
	switch j.KeyType() {
	case jwa.KeyTypeEC:
		x, _ := decodeField("x", j.X)
		y, _ := decodeField("y", j.Y)
		raw.PublicKey = encode(uncompressed(x, y))
	case jwa.KeyTypeOKP:
		raw.PublicKey = j.X
	default:
		return nil, fmt.Errorf("%w: kty %s", errors.ErrInvalidKeyType, j.Kty)
	}
	return raw, nil
}

// MarshalJSON encodes the key pair as its private JWK.
func (kp *KeyPair) MarshalJSON() ([]byte, error) {
	j, err := kp.JWK()
	if err != nil {
		return nil, err
	}
	return json.Marshal(j)
}

// CurveOf returns the named curve of a private or public key, or "" for RSA
// and symmetric keys.
func CurveOf(key any) (jwa.NamedCurve, error) {
	switch v := key.(type) {
	case []byte, *rsa.PrivateKey, *rsa.PublicKey:
		return "", nil
	case *JWK:
		return v.Curve()
	}
	var j *JWK
	var err error
	if j, err = FromPrivateKey(key); err != nil {
		if j, err = FromPublicKey(key); err != nil {
			return "", err
		}
	}
	return jwa.NamedCurve(j.Crv), nil
}
