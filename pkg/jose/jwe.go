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
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jeremyhahn/go-josekit/pkg/crypto/aead"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwe"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
	"github.com/jeremyhahn/go-josekit/pkg/metrics"
	"github.com/jeremyhahn/go-josekit/pkg/result"
)

// GeneralEncryptJSON encrypts payload for every key in recipients, a JWK
// set given as a JSON array or a {"keys":[...]} object, and returns the
// general JSON serialization. A recipient JWK carrying "alg" uses it,
// others use alg. An empty enc selects the fastest AES-GCM variant for the
// platform.
func (e *Engine) GeneralEncryptJSON(alg jwa.KeyAlgorithm, enc jwa.ContentEncryption, payload, recipients []byte, didcomm bool) (*result.JSONString, result.Code, error) {
	return e.run("general_encrypt_json", metrics.OpEncryptJSON, alg.String(), func() ([]byte, error) {
		keys, err := jwk.ParseSet(recipients)
		if err != nil {
			return nil, err
		}
		encrypter, err := e.encrypter(alg, enc, keys, didcomm)
		if err != nil {
			return nil, err
		}
		return encrypter.EncryptGeneral(payload)
	})
}

// FlattenedEncryptJSON encrypts payload for a single recipient JWK and
// returns the flattened JSON serialization.
func (e *Engine) FlattenedEncryptJSON(alg jwa.KeyAlgorithm, enc jwa.ContentEncryption, payload, recipient []byte, didcomm bool) (*result.JSONString, result.Code, error) {
	return e.run("flattened_encrypt_json", metrics.OpEncryptJSON, alg.String(), func() ([]byte, error) {
		key, err := jwk.Parse(recipient)
		if err != nil {
			return nil, err
		}
		encrypter, err := e.encrypter(alg, enc, []*jwk.JWK{key}, didcomm)
		if err != nil {
			return nil, err
		}
		return encrypter.EncryptFlattened(payload)
	})
}

// CompactEncryptJSON encrypts payload for a single recipient JWK and
// returns the compact serialization as a JSON string.
func (e *Engine) CompactEncryptJSON(alg jwa.KeyAlgorithm, enc jwa.ContentEncryption, payload, recipient []byte) (*result.JSONString, result.Code, error) {
	return e.run("compact_encrypt_json", metrics.OpEncryptJSON, alg.String(), func() ([]byte, error) {
		key, err := jwk.Parse(recipient)
		if err != nil {
			return nil, err
		}
		encrypter, err := e.encrypter(alg, enc, []*jwk.JWK{key}, false)
		if err != nil {
			return nil, err
		}
		s, err := encrypter.EncryptCompact(payload)
		if err != nil {
			return nil, err
		}
		return json.Marshal(s)
	})
}

// DecryptJSON decrypts a JWE in any serialization with jwk and returns
// {"payload","protected","header"}. A compact JWE may be passed bare or as
// a JSON string.
func (e *Engine) DecryptJSON(message, key []byte) (*result.JSONString, result.Code, error) {
	return e.run("decrypt_json", metrics.OpDecryptJSON, "", func() ([]byte, error) {
		j, err := jwk.Parse(key)
		if err != nil {
			return nil, err
		}
		data, err := unquote(message, errors.ErrMalformedJWE)
		if err != nil {
			return nil, err
		}
		d, err := jwe.NewDecrypter(j, &jwe.DecryptOptions{Policy: e.policy, Rand: e.rand})
		if err != nil {
			return nil, err
		}
		out, err := d.DecryptBytes(data)
		if err != nil {
			return nil, err
		}
		return marshalPayload(out.Plaintext, out.Protected, out.Header)
	})
}

func (e *Engine) encrypter(alg jwa.KeyAlgorithm, enc jwa.ContentEncryption, keys []*jwk.JWK, didcomm bool) (*jwe.Encrypter, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no recipients", errors.ErrInvalidArgument)
	}
	recipients := make([]jwe.Recipient, 0, len(keys))
	for _, k := range keys {
		r := jwe.Recipient{Algorithm: alg, Key: k}
		if k.Alg != "" {
			r.Algorithm = jwa.KeyAlgorithm(k.Alg)
		}
		recipients = append(recipients, r)
	}
	return jwe.NewEncrypter(aead.Resolve(enc), recipients, &jwe.EncryptOptions{
		P2C:     e.iterations,
		DIDComm: didcomm,
		Policy:  e.policy,
		Rand:    e.rand,
	})
}

// unquote accepts a serialization either bare or wrapped in a JSON string.
func unquote(data []byte, malformed error) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return trimmed, nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", malformed, err)
	}
	return []byte(s), nil
}

// GeneralEncryptJSON uses the default engine.
func GeneralEncryptJSON(alg jwa.KeyAlgorithm, enc jwa.ContentEncryption, payload, recipients []byte, didcomm bool) (*result.JSONString, result.Code, error) {
	return defaultEngine.GeneralEncryptJSON(alg, enc, payload, recipients, didcomm)
}

// FlattenedEncryptJSON uses the default engine.
func FlattenedEncryptJSON(alg jwa.KeyAlgorithm, enc jwa.ContentEncryption, payload, recipient []byte, didcomm bool) (*result.JSONString, result.Code, error) {
	return defaultEngine.FlattenedEncryptJSON(alg, enc, payload, recipient, didcomm)
}

// CompactEncryptJSON uses the default engine.
func CompactEncryptJSON(alg jwa.KeyAlgorithm, enc jwa.ContentEncryption, payload, recipient []byte) (*result.JSONString, result.Code, error) {
	return defaultEngine.CompactEncryptJSON(alg, enc, payload, recipient)
}

// DecryptJSON uses the default engine.
func DecryptJSON(message, key []byte) (*result.JSONString, result.Code, error) {
	return defaultEngine.DecryptJSON(message, key)
}
