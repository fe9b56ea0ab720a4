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
	"fmt"

	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/jws"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
	"github.com/jeremyhahn/go-josekit/pkg/metrics"
	"github.com/jeremyhahn/go-josekit/pkg/result"
)

// CompactSignJSON signs payload with a private JWK and returns the compact
// serialization as a JSON string. The JWK "alg" takes precedence over alg;
// when both are empty the key type default is used.
func (e *Engine) CompactSignJSON(alg jwa.SignatureAlgorithm, payload, key []byte, didcomm bool) (*result.JSONString, result.Code, error) {
	return e.run("compact_sign_json", metrics.OpSign, alg.String(), func() ([]byte, error) {
		signer, err := e.signer(alg, key, didcomm)
		if err != nil {
			return nil, err
		}
		s, err := signer.SignCompact(payload)
		if err != nil {
			return nil, err
		}
		return json.Marshal(s)
	})
}

// FlattenedSignJSON signs payload with a private JWK and returns the
// flattened JSON serialization.
func (e *Engine) FlattenedSignJSON(alg jwa.SignatureAlgorithm, payload, key []byte, didcomm bool) (*result.JSONString, result.Code, error) {
	return e.run("flattened_sign_json", metrics.OpSign, alg.String(), func() ([]byte, error) {
		signer, err := e.signer(alg, key, didcomm)
		if err != nil {
			return nil, err
		}
		return signer.SignFlattened(payload)
	})
}

// GeneralSignJSON signs payload once per private JWK in keys, a JSON array
// or {"keys":[...]} object. Each signature uses the JWK "alg", or the key
// type default.
func (e *Engine) GeneralSignJSON(payload, keys []byte, didcomm bool) (*result.JSONString, result.Code, error) {
	return e.run("general_sign_json", metrics.OpSign, "", func() ([]byte, error) {
		set, err := jwk.ParseSet(keys)
		if err != nil {
			return nil, err
		}
		if len(set) == 0 {
			return nil, fmt.Errorf("%w: no signing keys", errors.ErrInvalidArgument)
		}
		signing := make([]jws.SigningKey, 0, len(set))
		for _, k := range set {
			signing = append(signing, jws.SigningKey{Key: k})
		}
		signer, err := jws.NewSigner(signing, e.signOptions(didcomm))
		if err != nil {
			return nil, err
		}
		return signer.SignGeneral(payload)
	})
}

// CompactJSONVerify verifies a compact JWS, bare or as a JSON string, and
// returns {"payload","protected","header"}.
func (e *Engine) CompactJSONVerify(message, key []byte) (*result.JSONString, result.Code, error) {
	return e.run("compact_json_verify", metrics.OpVerify, "", func() ([]byte, error) {
		data, err := unquote(message, errors.ErrMalformedJWS)
		if err != nil {
			return nil, err
		}
		j, err := jws.ParseCompact(string(data))
		if err != nil {
			return nil, err
		}
		return e.verify(j, key)
	})
}

// JSONVerify verifies a flattened or general JWS and returns
// {"payload","protected","header"} for the first signature that validates.
func (e *Engine) JSONVerify(message, key []byte) (*result.JSONString, result.Code, error) {
	return e.run("json_verify", metrics.OpVerify, "", func() ([]byte, error) {
		j, err := jws.ParseJSON(message)
		if err != nil {
			return nil, err
		}
		return e.verify(j, key)
	})
}

func (e *Engine) signer(alg jwa.SignatureAlgorithm, key []byte, didcomm bool) (*jws.Signer, error) {
	j, err := jwk.Parse(key)
	if err != nil {
		return nil, err
	}
	if j.Alg != "" {
		alg = jwa.SignatureAlgorithm(j.Alg)
	}
	return jws.NewSigner([]jws.SigningKey{{Algorithm: alg, Key: j}}, e.signOptions(didcomm))
}

func (e *Engine) signOptions(didcomm bool) *jws.SignOptions {
	return &jws.SignOptions{DIDComm: didcomm, Policy: e.policy, Rand: e.rand}
}

func (e *Engine) verify(j *jws.JSONWebSignature, key []byte) ([]byte, error) {
	k, err := jwk.Parse(key)
	if err != nil {
		return nil, err
	}
	v, err := jws.NewVerifier(k, &jws.VerifyOptions{Policy: e.policy})
	if err != nil {
		return nil, err
	}
	out, err := v.Verify(j)
	if err != nil {
		return nil, err
	}
	return marshalPayload(out.Payload, out.Protected, out.Header)
}

// CompactSignJSON uses the default engine.
func CompactSignJSON(alg jwa.SignatureAlgorithm, payload, key []byte, didcomm bool) (*result.JSONString, result.Code, error) {
	return defaultEngine.CompactSignJSON(alg, payload, key, didcomm)
}

// FlattenedSignJSON uses the default engine.
func FlattenedSignJSON(alg jwa.SignatureAlgorithm, payload, key []byte, didcomm bool) (*result.JSONString, result.Code, error) {
	return defaultEngine.FlattenedSignJSON(alg, payload, key, didcomm)
}

// GeneralSignJSON uses the default engine.
func GeneralSignJSON(payload, keys []byte, didcomm bool) (*result.JSONString, result.Code, error) {
	return defaultEngine.GeneralSignJSON(payload, keys, didcomm)
}

// CompactJSONVerify uses the default engine.
func CompactJSONVerify(message, key []byte) (*result.JSONString, result.Code, error) {
	return defaultEngine.CompactJSONVerify(message, key)
}

// JSONVerify uses the default engine.
func JSONVerify(message, key []byte) (*result.JSONString, result.Code, error) {
	return defaultEngine.JSONVerify(message, key)
}
