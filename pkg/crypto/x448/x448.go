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

// Package x448 provides X448 (RFC 7748) keys and Diffie-Hellman key agreement
// for ECDH-ES over the "X448" curve. The scalar multiplication comes from
// github.com/cloudflare/circl; the standard library covers X25519 only.
package x448

import (
	"crypto"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/dh/x448"

	jrand "github.com/jeremyhahn/go-josekit/pkg/crypto/rand"
)

// Size is the length in bytes of X448 private keys, public keys and shared
// secrets.
const Size = x448.Size

var (
	// ErrInvalidKeySize indicates key bytes that are not Size long.
	ErrInvalidKeySize = errors.New("x448: invalid key size")

	// ErrLowOrderPoint indicates an all-zero shared secret, produced by a
	// low-order peer public key.
	ErrLowOrderPoint = errors.New("x448: low order point")
)

// PublicKey is an X448 public key (the u-coordinate, little-endian).
type PublicKey []byte

// PrivateKey is an X448 private scalar.
type PrivateKey []byte

// KeyPair holds an X448 private key and its public key.
type KeyPair struct {
	PrivateKey PrivateKey
	PublicKey  PublicKey
}

// KeyAgreement provides X448 key generation and Diffie-Hellman.
type KeyAgreement interface {
	// GenerateKey generates a new key pair.
	GenerateKey() (*KeyPair, error)

	// DeriveSharedSecret computes the raw shared secret with a peer. The
	// result must go through a KDF before use.
	DeriveSharedSecret(privateKey PrivateKey, peerPublicKey PublicKey) ([]byte, error)
}

type x448KeyAgreement struct {
	rand io.Reader
}

// New returns a KeyAgreement drawing randomness from r, or from the default
// source when r is nil.
func New(r io.Reader) KeyAgreement {
	return &x448KeyAgreement{rand: jrand.Or(r)}
}

func (ka *x448KeyAgreement) GenerateKey() (*KeyPair, error) {
	return GenerateKey(ka.rand)
}

func (ka *x448KeyAgreement) DeriveSharedSecret(privateKey PrivateKey, peerPublicKey PublicKey) ([]byte, error) {
	return DeriveSharedSecret(privateKey, peerPublicKey)
}

// GenerateKey generates an X448 key pair from r.
func GenerateKey(r io.Reader) (*KeyPair, error) {
	var secret, public x448.Key
	if _, err := io.ReadFull(jrand.Or(r), secret[:]); err != nil {
		return nil, fmt.Errorf("x448: failed to generate key: %w", err)
	}
	x448.KeyGen(&public, &secret)
	return &KeyPair{
		PrivateKey: PrivateKey(secret[:]),
		PublicKey:  PublicKey(public[:]),
	}, nil
}

// NewPrivateKey validates and copies raw private key bytes.
func NewPrivateKey(b []byte) (PrivateKey, error) {
	if len(b) != Size {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeySize, len(b))
	}
	return PrivateKey(append([]byte(nil), b...)), nil
}

// NewPublicKey validates and copies raw public key bytes.
func NewPublicKey(b []byte) (PublicKey, error) {
	if len(b) != Size {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeySize, len(b))
	}
	return PublicKey(append([]byte(nil), b...)), nil
}

// Public returns the public key for k.
func (k PrivateKey) Public() crypto.PublicKey {
	return k.PublicKey()
}

// PublicKey returns the public key for k as a PublicKey.
func (k PrivateKey) PublicKey() PublicKey {
	var secret, public x448.Key
	copy(secret[:], k)
	x448.KeyGen(&public, &secret)
	return PublicKey(public[:])
}

// Equal reports whether x holds the same private key.
func (k PrivateKey) Equal(x crypto.PrivateKey) bool {
	o, ok := x.(PrivateKey)
	return ok && subtle.ConstantTimeCompare(k, o) == 1
}

// Equal reports whether x holds the same public key.
func (k PublicKey) Equal(x crypto.PublicKey) bool {
	o, ok := x.(PublicKey)
	return ok && subtle.ConstantTimeCompare(k, o) == 1
}

// DeriveSharedSecret performs X448 between privateKey and peerPublicKey.
func DeriveSharedSecret(privateKey PrivateKey, peerPublicKey PublicKey) ([]byte, error) {
	if len(privateKey) != Size || len(peerPublicKey) != Size {
		return nil, ErrInvalidKeySize
	}
	var secret, public, shared x448.Key
	copy(secret[:], privateKey)
	copy(public[:], peerPublicKey)
	if !x448.Shared(&shared, &secret, &public) {
		return nil, ErrLowOrderPoint
	}
	return shared[:], nil
}
