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
	"crypto/hmac"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"crypto/subtle"
	"encoding/binary"
	"hash"

	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// cbcHMAC is AES-CBC + HMAC-SHA2 (RFC 7518 Section 5.2). The key is
// MAC_KEY || ENC_KEY and the tag is the first TagLen bytes of
// HMAC(MAC_KEY, A || IV || E || AL).
type cbcHMAC struct {
	block  cipher.Block
	macKey []byte
	hash   func() hash.Hash
	tagLen int
}

func newCBCHMAC(key []byte, p jwa.ContentParams) (cipher.AEAD, error) {
	half := len(key) / 2
	block, err := aes.NewCipher(key[half:])
	if err != nil {
		return nil, errors.ErrInvalidKeyLength
	}
	return &cbcHMAC{
		block:  block,
		macKey: append([]byte(nil), key[:half]...),
		hash:   p.Hash.New,
		tagLen: p.TagLen,
	}, nil
}

func (c *cbcHMAC) NonceSize() int {
	return aes.BlockSize
}

func (c *cbcHMAC) Overhead() int {
	return c.tagLen
}

func (c *cbcHMAC) Seal(dst, nonce, plaintext, additionalData []byte) []byte {
	if len(nonce) != aes.BlockSize {
		panic("aead: incorrect nonce length given to CBC-HMAC")
	}
	padded := pad(plaintext)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, nonce).CryptBlocks(ciphertext, padded)

	tag := c.tag(additionalData, nonce, ciphertext)
	ret, out := sliceForAppend(dst, len(ciphertext)+c.tagLen)
	copy(out, ciphertext)
	copy(out[len(ciphertext):], tag)
	return ret
}

func (c *cbcHMAC) Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != aes.BlockSize || len(ciphertext) < c.tagLen {
		return nil, errors.ErrAuthenticationFailed
	}
	split := len(ciphertext) - c.tagLen
	body, tag := ciphertext[:split], ciphertext[split:]

	// The tag is checked before the ciphertext is decrypted or unpadded.
	expected := c.tag(additionalData, nonce, body)
	if subtle.ConstantTimeCompare(expected, tag) != 1 {
		return nil, errors.ErrAuthenticationFailed
	}
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return nil, errors.ErrAuthenticationFailed
	}

	plaintext := make([]byte, len(body))
	cipher.NewCBCDecrypter(c.block, nonce).CryptBlocks(plaintext, body)
	unpadded, ok := unpad(plaintext)
	if !ok {
		return nil, errors.ErrAuthenticationFailed
	}
	ret, out := sliceForAppend(dst, len(unpadded))
	copy(out, unpadded)
	return ret, nil
}

func (c *cbcHMAC) tag(aad, iv, ciphertext []byte) []byte {
	var al [8]byte
	binary.BigEndian.PutUint64(al[:], uint64(len(aad))*8)

	m := hmac.New(c.hash, c.macKey)
	m.Write(aad)
	m.Write(iv)
	m.Write(ciphertext)
	m.Write(al[:])
	return m.Sum(nil)[:c.tagLen]
}

// pad applies PKCS#7 padding to a whole number of AES blocks.
func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	out := make([]byte, len(b)+n)
	copy(out, b)
	for i := len(b); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// unpad strips PKCS#7 padding, inspecting the last block in constant time.
func unpad(b []byte) ([]byte, bool) {
	n := int(b[len(b)-1])
	good := subtle.ConstantTimeLessOrEq(1, n) & subtle.ConstantTimeLessOrEq(n, aes.BlockSize)
	for i := 1; i <= aes.BlockSize; i++ {
		inPad := subtle.ConstantTimeLessOrEq(i, n)
		match := subtle.ConstantTimeByteEq(b[len(b)-i], byte(n))
		good &= match | (inPad ^ 1)
	}
	if good != 1 {
		return nil, false
	}
	return b[:len(b)-n], true
}

func sliceForAppend(in []byte, n int) (head, tail []byte) {
	if total := len(in) + n; cap(in) >= total {
		head = in[:total]
	} else {
		head = make([]byte, total)
		copy(head, in)
	}
	tail = head[len(in):]
	return
}
