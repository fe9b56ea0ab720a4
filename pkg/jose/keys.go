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

package jose

import (
	"encoding/json"

	"github.com/jeremyhahn/go-josekit/pkg/crypto/aead"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/header"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
	"github.com/jeremyhahn/go-josekit/pkg/metrics"
	"github.com/jeremyhahn/go-josekit/pkg/result"
)

// GenerateKeyPairJWK generates a key pair on curve and returns its private
// JWK.
func (e *Engine) GenerateKeyPairJWK(curve jwa.NamedCurve) (*result.JSONString, result.Code, error) {
	return e.run("generate_key_pair_jwk", metrics.OpGenerateKey, curve.String(), func() ([]byte, error) {
		kp, err := jwk.GenerateKeyPairWithReader(curve, e.rand)
		if err != nil {
			return nil, err
		}
		return json.Marshal(kp)
	})
}

// GenerateKeyPair generates a key pair on curve and returns
// {"curve","public_key","private_key"} with raw base64url keys.
func (e *Engine) GenerateKeyPair(curve jwa.NamedCurve) (*result.JSONString, result.Code, error) {
	return e.run("generate_key_pair", metrics.OpGenerateKey, curve.String(), func() ([]byte, error) {
		kp, err := jwk.GenerateKeyPairWithReader(curve, e.rand)
		if err != nil {
			return nil, err
		}
		raw, err := kp.Raw()
		if err != nil {
			return nil, err
		}
		return json.Marshal(raw)
	})
}

type sealed struct {
	Ciphertext string `json:"ciphertext"`
	Tag        string `json:"tag"`
}

type opened struct {
	Plaintext string `json:"plaintext"`
}

// Encrypt runs the content encryption algorithm directly and returns
// {"ciphertext","tag"}.
func (e *Engine) Encrypt(enc jwa.ContentEncryption, key, iv, message, aad []byte) (*result.JSONString, result.Code, error) {
	return e.run("encrypt", metrics.OpEncrypt, enc.String(), func() ([]byte, error) {
		if err := e.policy.CheckContentEncryption(enc); err != nil {
			return nil, err
		}
		ct, tag, err := aead.Encrypt(enc, key, iv, message, aad)
		if err != nil {
			return nil, err
		}
		return json.Marshal(sealed{Ciphertext: header.Encode(ct), Tag: header.Encode(tag)})
	})
}

// Decrypt reverses Encrypt and returns {"plaintext"}. Any tampering returns
// result.CodeAuthenticationFailed.
func (e *Engine) Decrypt(enc jwa.ContentEncryption, key, ciphertext, iv, tag, aad []byte) (*result.JSONString, result.Code, error) {
	return e.run("decrypt", metrics.OpDecrypt, enc.String(), func() ([]byte, error) {
		if err := e.policy.CheckContentEncryption(enc); err != nil {
			return nil, err
		}
		pt, err := aead.Decrypt(enc, key, ciphertext, iv, tag, aad)
		if err != nil {
			return nil, err
		}
		return json.Marshal(opened{Plaintext: header.Encode(pt)})
	})
}

// GenerateKeyPairJWK uses the default engine.
func GenerateKeyPairJWK(curve jwa.NamedCurve) (*result.JSONString, result.Code, error) {
	return defaultEngine.GenerateKeyPairJWK(curve)
}

// GenerateKeyPair uses the default engine.
func GenerateKeyPair(curve jwa.NamedCurve) (*result.JSONString, result.Code, error) {
	return defaultEngine.GenerateKeyPair(curve)
}

// Encrypt uses the default engine.
func Encrypt(enc jwa.ContentEncryption, key, iv, message, aad []byte) (*result.JSONString, result.Code, error) {
	return defaultEngine.Encrypt(enc, key, iv, message, aad)
}

// Decrypt uses the default engine.
func Decrypt(enc jwa.ContentEncryption, key, ciphertext, iv, tag, aad []byte) (*result.JSONString, result.Code, error) {
	return defaultEngine.Decrypt(enc, key, ciphertext, iv, tag, aad)
}
