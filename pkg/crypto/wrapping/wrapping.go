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

// Package wrapping implements the key encryption primitives used by JWE key
// management (RFC 7518 Sections 4.2 through 4.8): RSAES-PKCS1-v1_5,
// RSAES-OAEP, AES Key Wrap, AES-GCM key wrap and PBES2 key derivation.
//
// Integrity failures while unwrapping wrap errors.ErrUnwrapFailed and carry
// no further detail.
package wrapping

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rsa"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"
	"io"

	josecipher "github.com/go-jose/go-jose/v4/cipher"
	"golang.org/x/crypto/pbkdf2"

	jrand "github.com/jeremyhahn/go-josekit/pkg/crypto/rand"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
)

const (
	// GCMIVSize is the IV length for AES-GCM key wrapping.
	GCMIVSize = 12

	// GCMTagSize is the authentication tag length for AES-GCM key wrapping.
	GCMTagSize = 16

	// MinPBES2SaltSize is the minimum "p2s" length (RFC 7518 Section 4.8.1.1).
	MinPBES2SaltSize = 8
)

func newBlock(kek []byte) (cipher.Block, error) {
	switch len(kek) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: AES key wrap requires a 16, 24 or 32 byte key, got %d", errors.ErrInvalidKeyLength, len(kek))
	}
	return aes.NewCipher(kek)
}

// AESKeyWrap wraps cek with kek using RFC 3394 AES Key Wrap.
func AESKeyWrap(kek, cek []byte) ([]byte, error) {
	if len(cek) == 0 || len(cek)%8 != 0 {
		return nil, fmt.Errorf("%w: wrapped key must be a non-empty multiple of 8 bytes", errors.ErrInvalidKeyLength)
	}
	block, err := newBlock(kek)
	if err != nil {
		return nil, err
	}
	wrapped, err := josecipher.KeyWrap(block, cek)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidKeyLength, err)
	}
	return wrapped, nil
}

// AESKeyUnwrap reverses AESKeyWrap and checks the RFC 3394 integrity value.
func AESKeyUnwrap(kek, wrapped []byte) ([]byte, error) {
	block, err := newBlock(kek)
	if err != nil {
		return nil, err
	}
	if len(wrapped) < 24 || len(wrapped)%8 != 0 {
		return nil, errors.ErrUnwrapFailed
	}
	cek, err := josecipher.KeyUnwrap(block, wrapped)
	if err != nil {
		return nil, errors.ErrUnwrapFailed
	}
	return cek, nil
}

// AESGCMKeyWrap encrypts cek with AES-GCM under kek and a 96-bit iv, as
// used by the AxxxGCMKW algorithms. The tag is returned separately for the
// "tag" header parameter.
func AESGCMKeyWrap(kek, iv, cek []byte) (encryptedKey, tag []byte, err error) {
	block, err := newBlock(kek)
	if err != nil {
		return nil, nil, err
	}
	if len(iv) != GCMIVSize {
		return nil, nil, fmt.Errorf("%w: GCM key wrap requires a %d byte iv, got %d", errors.ErrInvalidIvLength, GCMIVSize, len(iv))
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	sealed := gcm.Seal(nil, iv, cek, nil)
	split := len(sealed) - GCMTagSize
	return sealed[:split], sealed[split:], nil
}

// AESGCMKeyUnwrap decrypts an AES-GCM wrapped key.
func AESGCMKeyUnwrap(kek, iv, tag, encryptedKey []byte) ([]byte, error) {
	block, err := newBlock(kek)
	if err != nil {
		return nil, err
	}
	if len(iv) != GCMIVSize {
		return nil, fmt.Errorf("%w: GCM key wrap requires a %d byte iv, got %d", errors.ErrInvalidIvLength, GCMIVSize, len(iv))
	}
	if len(tag) != GCMTagSize {
		return nil, errors.ErrUnwrapFailed
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	sealed := make([]byte, 0, len(encryptedKey)+len(tag))
	sealed = append(sealed, encryptedKey...)
	sealed = append(sealed, tag...)
	cek, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, errors.ErrUnwrapFailed
	}
	return cek, nil
}

// RSA1_5Wrap encrypts cek with RSAES-PKCS1-v1_5.
func RSA1_5Wrap(pub *rsa.PublicKey, cek []byte, r io.Reader) ([]byte, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: nil RSA public key", errors.ErrInvalidArgument)
	}
	wrapped, err := rsa.EncryptPKCS1v15(jrand.Or(r), pub, cek)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidKeyLength, err)
	}
	return wrapped, nil
}

// RSA1_5Unwrap decrypts an RSAES-PKCS1-v1_5 wrapped key of cekLen bytes.
//
// On any padding or length failure a random key of cekLen bytes is returned
// instead of an error (RFC 7516 Section 11.5), so that the caller fails later
// in content decryption with the same error and timing as a wrong key.
func RSA1_5Unwrap(priv *rsa.PrivateKey, encryptedKey []byte, cekLen int, r io.Reader) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: nil RSA private key", errors.ErrInvalidArgument)
	}
	cek := make([]byte, cekLen)
	if _, err := io.ReadFull(jrand.Or(r), cek); err != nil {
		return nil, fmt.Errorf("wrapping: failed to read random bytes: %w", err)
	}
	if len(encryptedKey) != priv.Size() {
		return cek, nil
	}
	// DecryptPKCS1v15SessionKey leaves cek untouched on failure.
	_ = rsa.DecryptPKCS1v15SessionKey(nil, priv, encryptedKey, cek)
	return cek, nil
}

// RSAOAEPWrap encrypts cek with RSAES-OAEP using hash for both the OAEP
// digest and MGF1.
func RSAOAEPWrap(pub *rsa.PublicKey, hash crypto.Hash, cek []byte, r io.Reader) ([]byte, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: nil RSA public key", errors.ErrInvalidArgument)
	}
	if !hash.Available() {
		return nil, fmt.Errorf("%w: hash %v", errors.ErrUnsupportedAlgorithm, hash)
	}
	wrapped, err := rsa.EncryptOAEP(hash.New(), jrand.Or(r), pub, cek, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidKeyLength, err)
	}
	return wrapped, nil
}

// RSAOAEPUnwrap decrypts an RSAES-OAEP wrapped key.
func RSAOAEPUnwrap(priv *rsa.PrivateKey, hash crypto.Hash, encryptedKey []byte) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: nil RSA private key", errors.ErrInvalidArgument)
	}
	if !hash.Available() {
		return nil, fmt.Errorf("%w: hash %v", errors.ErrUnsupportedAlgorithm, hash)
	}
	cek, err := rsa.DecryptOAEP(hash.New(), nil, priv, encryptedKey, nil)
	if err != nil {
		return nil, errors.ErrUnwrapFailed
	}
	return cek, nil
}

// PBES2DeriveKey derives a key-encryption key from password with PBKDF2.
// The salt input is the UTF-8 alg name, a zero byte, and p2s (RFC 7518
// Section 4.8.1.1).
func PBES2DeriveKey(password []byte, alg string, p2s []byte, p2c, keyLen int, hash crypto.Hash) ([]byte, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: empty PBES2 password", errors.ErrInvalidArgument)
	}
	if len(p2s) < MinPBES2SaltSize {
		return nil, fmt.Errorf("%w: p2s must be at least %d bytes", errors.ErrInvalidArgument, MinPBES2SaltSize)
	}
	if p2c <= 0 {
		return nil, fmt.Errorf("%w: p2c must be positive", errors.ErrInvalidArgument)
	}
	if !hash.Available() {
		return nil, fmt.Errorf("%w: hash %v", errors.ErrUnsupportedAlgorithm, hash)
	}

	salt := make([]byte, 0, len(alg)+1+len(p2s))
	salt = append(salt, alg...)
	salt = append(salt, 0)
	salt = append(salt, p2s...)

	return pbkdf2.Key(password, salt, p2c, keyLen, hash.New), nil
}
