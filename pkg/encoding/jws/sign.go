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

package jws

import (
	"bytes"
	"crypto"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-josekit/pkg/encoding/header"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
	"github.com/jeremyhahn/go-josekit/pkg/signing"
)

// DIDCommSignedType is the protected "typ" of DIDComm signed messages.
const DIDCommSignedType = "application/didcomm-signed+json"

// SigningKey describes one signer.
type SigningKey struct {
	// Algorithm is the signature algorithm. When empty the "alg" member of
	// a *jwk.JWK key is used, then the default for the key type.
	Algorithm jwa.SignatureAlgorithm

	// Key is a private key, an HMAC secret as []byte, a crypto.Signer or a
	// *jwk.JWK holding private material.
	Key any

	// KeyID overrides the "kid" of the JWK.
	KeyID string

	// Protected and Header hold extra per-signature parameters.
	Protected header.Parameters
	Header    header.Parameters
}

// SignOptions tunes a Signer. A nil *SignOptions selects the defaults.
type SignOptions struct {
	// Protected holds parameters added to every protected header.
	Protected header.Parameters

	// Unencoded signs the payload without base64url encoding it
	// (RFC 7797), adding "b64":false and "crit":["b64"].
	Unencoded bool

	// DIDComm marks the message as a DIDComm signed envelope.
	DIDComm bool

	Policy *jwa.Policy
	Rand   io.Reader
}

type resolvedKey struct {
	alg       jwa.SignatureAlgorithm
	key       any
	kid       string
	protected header.Parameters
	header    header.Parameters
}

// Signer produces JWS objects for a fixed set of keys.
type Signer struct {
	keys []resolvedKey
	opts SignOptions
}

// NewSigner validates the signing keys against the policy.
func NewSigner(keys []SigningKey, opts *SignOptions) (*Signer, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: at least one signing key is required", errors.ErrInvalidArgument)
	}
	s := &Signer{}
	if opts != nil {
		s.opts = *opts
	}
	for i, k := range keys {
		rk, err := resolveKey(k, s.opts)
		if err != nil {
			return nil, fmt.Errorf("signer %d: %w", i, err)
		}
		s.keys = append(s.keys, rk)
	}
	return s, nil
}

func resolveKey(k SigningKey, opts SignOptions) (resolvedKey, error) {
	if k.Key == nil {
		return resolvedKey{}, fmt.Errorf("%w: nil signing key", errors.ErrInvalidArgument)
	}
	rk := resolvedKey{alg: k.Algorithm, key: k.Key, kid: k.KeyID, protected: k.Protected, header: k.Header}

	j, isJWK := k.Key.(*jwk.JWK)
	if isJWK {
		if rk.alg == "" {
			rk.alg = jwa.SignatureAlgorithm(j.Alg)
		}
		if !j.IsSymmetric() && !j.IsPrivate() {
			return resolvedKey{}, fmt.Errorf("%w: signing requires a private key", errors.ErrInvalidKeyType)
		}
		var err error
		if rk.key, err = j.Key(); err != nil {
			return resolvedKey{}, err
		}
		if rk.kid == "" {
			rk.kid = j.Kid
		}
	} else {
		var err error
		if j, err = describe(k.Key); err != nil {
			return resolvedKey{}, err
		}
	}

	if rk.alg == "" {
		curve, err := j.Curve()
		if err != nil {
			return resolvedKey{}, err
		}
		if rk.alg, err = jwa.DefaultSignatureAlgorithm(j.KeyType(), curve); err != nil {
			return resolvedKey{}, err
		}
	}
	if err := opts.Policy.CheckSignature(rk.alg); err != nil {
		return resolvedKey{}, err
	}
	if rk.alg.KeyType() != j.KeyType() {
		return resolvedKey{}, fmt.Errorf("%w: %s cannot use a %s key", errors.ErrUnsupportedAlgorithmForKey, rk.alg, j.KeyType())
	}
	if kty := j.KeyType(); kty == jwa.KeyTypeEC || kty == jwa.KeyTypeOKP {
		curve, err := j.Curve()
		if err != nil {
			return resolvedKey{}, err
		}
		if err := jwa.CheckSignatureCurve(rk.alg, curve); err != nil {
			return resolvedKey{}, fmt.Errorf("%w: %v", errors.ErrUnsupportedAlgorithmForKey, err)
		}
	}
	if isJWK {
		if err := confirmKey(j, rk.alg); err != nil {
			return resolvedKey{}, err
		}
	}

	if opts.DIDComm && rk.kid == "" {
		var err error
		if rk.kid, err = j.KeyID(); err != nil {
			return resolvedKey{}, err
		}
		if rk.kid == "" {
			return resolvedKey{}, fmt.Errorf("%w: DIDComm signers must have a kid", errors.ErrInvalidArgument)
		}
	}
	return rk, nil
}

// describe returns a JWK view of a Go key, used for its type, curve and
// thumbprint.
func describe(key any) (*jwk.JWK, error) {
	j, err := jwk.FromKey(key)
	if err == nil {
		return j, nil
	}
	if s, ok := key.(crypto.Signer); ok {
		if j, err = jwk.FromPublicKey(s.Public()); err == nil {
			return j, nil
		}
	}
	return nil, fmt.Errorf("%w: %T", errors.ErrUnsupportedAlgorithmForKey, key)
}

// confirmKey checks the JWK "alg" and "use" members against alg.
func confirmKey(j *jwk.JWK, alg jwa.SignatureAlgorithm) error {
	if j.Alg != "" && j.Alg != alg.String() {
		return fmt.Errorf("%w: key is restricted to %s", errors.ErrUnsupportedAlgorithmForKey, j.Alg)
	}
	if j.Use != "" && j.Use != jwk.UseSignature {
		return fmt.Errorf("%w: key use is %q", errors.ErrUnsupportedAlgorithmForKey, j.Use)
	}
	return nil
}

// Algorithms returns the algorithm each key signs with, in key order.
func (s *Signer) Algorithms() []jwa.SignatureAlgorithm {
	algs := make([]jwa.SignatureAlgorithm, len(s.keys))
	for i, k := range s.keys {
		algs[i] = k.alg
	}
	return algs
}

// SignCompact signs payload to the compact serialization.
func (s *Signer) SignCompact(payload []byte) (string, error) {
	j, err := s.Sign(payload, Compact)
	if err != nil {
		return "", err
	}
	return j.CompactSerialize()
}

// SignFlattened signs payload to the flattened JSON serialization.
func (s *Signer) SignFlattened(payload []byte) ([]byte, error) {
	j, err := s.Sign(payload, Flattened)
	if err != nil {
		return nil, err
	}
	return j.FlattenedSerialize()
}

// SignGeneral signs payload to the general JSON serialization.
func (s *Signer) SignGeneral(payload []byte) ([]byte, error) {
	j, err := s.Sign(payload, General)
	if err != nil {
		return nil, err
	}
	return j.GeneralSerialize()
}

// Sign computes one signature per key and lays out the headers for form.
func (s *Signer) Sign(payload []byte, form Form) (*JSONWebSignature, error) {
	switch form {
	case Compact:
		if s.opts.Unencoded && bytes.IndexByte(payload, '.') >= 0 {
			return nil, fmt.Errorf("%w: unencoded compact payload cannot contain '.'", errors.ErrInvalidArgument)
		}
		fallthrough
	case Flattened:
		if len(s.keys) != 1 {
			return nil, fmt.Errorf("%w: %s serialization requires exactly one signer", errors.ErrInvalidArgument, form)
		}
	case General:
	default:
		return nil, fmt.Errorf("%w: unknown serialization %s", errors.ErrInvalidArgument, form)
	}

	j := &JSONWebSignature{Payload: payload, Unencoded: s.opts.Unencoded}
	for i, k := range s.keys {
		sig, err := s.signature(k, form, payload)
		if err != nil {
			return nil, fmt.Errorf("signer %d: %w", i, err)
		}
		j.Signatures = append(j.Signatures, sig)
	}
	return j, nil
}

func (s *Signer) signature(k resolvedKey, form Form, payload []byte) (Signature, error) {
	protected := header.Parameters{header.Algorithm: k.alg.String()}
	unprotected := k.header.Clone()
	if s.opts.DIDComm {
		protected[header.Type] = DIDCommSignedType
	}
	if s.opts.Unencoded {
		protected[header.Base64URLEncodePayload] = false
		protected[header.Critical] = []string{header.Base64URLEncodePayload}
	}
	if k.kid != "" {
		// DIDComm keeps the signer kid out of the integrity protected header
		// wherever the serialization allows it.
		if s.opts.DIDComm && form != Compact {
			if unprotected == nil {
				unprotected = header.Parameters{}
			}
			unprotected[header.KeyID] = k.kid
		} else {
			protected[header.KeyID] = k.kid
		}
	}
	for name, v := range s.opts.Protected {
		if _, set := protected[name]; !set {
			protected[name] = v
		}
	}
	protected, err := header.Merge(protected, k.protected)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %v", errors.ErrInvalidArgument, err)
	}
	if form == Compact && len(unprotected) > 0 {
		return Signature{}, fmt.Errorf("%w: compact serialization cannot carry an unprotected header", errors.ErrInvalidArgument)
	}

	raw, err := header.EncodeProtected(protected)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %v", errors.ErrInvalidArgument, err)
	}
	sig := Signature{Protected: protected, Header: unprotected, protectedRaw: raw}
	if _, err := sig.joint(); err != nil {
		return Signature{}, err
	}

	sig.Signature, err = signing.SignWithReader(k.alg, k.key, signingInput(raw, payload, s.opts.Unencoded), s.opts.Rand)
	if err != nil {
		return Signature{}, err
	}
	return sig, nil
}
