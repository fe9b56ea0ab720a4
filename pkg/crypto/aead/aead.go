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

package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"

	jrand "github.com/jeremyhahn/go-josekit/pkg/crypto/rand"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// New returns a cipher.AEAD for enc keyed with key. Seal and Open use the
// IV as nonce and carry the authentication tag appended to the ciphertext.
func New(enc jwa.ContentEncryption, key []byte) (cipher.AEAD, error) {
	p, err := enc.Params()
	if err != nil {
		return nil, err
	}
	if len(key) != p.KeyLen {
		return nil, fmt.Errorf("%w: %s requires a %d byte key, got %d", errors.ErrInvalidKeyLength, enc, p.KeyLen, len(key))
	}
	if p.CBC {
		return newCBCHMAC(key, p)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidKeyLength, err)
	}
	return cipher.NewGCM(block)
}

// Encrypt encrypts plaintext under enc and returns the ciphertext and the
// authentication tag separately, as JWE serializes them.
func Encrypt(enc jwa.ContentEncryption, key, iv, plaintext, aad []byte) (ciphertext, tag []byte, err error) {
	a, err := New(enc, key)
	if err != nil {
		return nil, nil, err
	}
	if len(iv) != a.NonceSize() {
		return nil, nil, fmt.Errorf("%w: %s requires a %d byte iv, got %d", errors.ErrInvalidIvLength, enc, a.NonceSize(), len(iv))
	}
	sealed := a.Seal(nil, iv, plaintext, aad)
	split := len(sealed) - a.Overhead()
	return sealed[:split], sealed[split:], nil
}

// Decrypt verifies tag and decrypts ciphertext under enc. Any mismatch of
// tag, ciphertext, iv contents or aad yields errors.ErrAuthenticationFailed
// with no further detail.
func Decrypt(enc jwa.ContentEncryption, key, ciphertext, iv, tag, aad []byte) ([]byte, error) {
	a, err := New(enc, key)
	if err != nil {
		return nil, err
	}
	if len(iv) != a.NonceSize() {
		return nil, fmt.Errorf("%w: %s requires a %d byte iv, got %d", errors.ErrInvalidIvLength, enc, a.NonceSize(), len(iv))
	}
	if len(tag) != a.Overhead() {
		return nil, errors.ErrAuthenticationFailed
	}
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	plaintext, err := a.Open(nil, iv, sealed, aad)
	if err != nil {
		return nil, errors.ErrAuthenticationFailed
	}
	return plaintext, nil
}

// GenerateCEK returns a random content encryption key for enc.
func GenerateCEK(enc jwa.ContentEncryption, r io.Reader) ([]byte, error) {
	p, err := enc.Params()
	if err != nil {
		return nil, err
	}
	return random(p.KeyLen, r)
}

// GenerateIV returns a random initialization vector for enc.
func GenerateIV(enc jwa.ContentEncryption, r io.Reader) ([]byte, error) {
	p, err := enc.Params()
	if err != nil {
		return nil, err
	}
	return random(p.IVLen, r)
}

func random(n int, r io.Reader) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(jrand.Or(r), b); err != nil {
		return nil, fmt.Errorf("aead: failed to read random bytes: %w", err)
	}
	return b, nil
}
