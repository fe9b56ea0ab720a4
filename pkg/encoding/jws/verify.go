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
	stderrors "errors"
	"fmt"

	"github.com/jeremyhahn/go-josekit/pkg/encoding/header"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
	"github.com/jeremyhahn/go-josekit/pkg/signing"
)

// VerifyOptions tunes a Verifier. A nil *VerifyOptions selects the
// defaults.
type VerifyOptions struct {
	Policy *jwa.Policy
}

// Verified is the result of a successful verification.
type Verified struct {
	Payload []byte

	// Protected is the decoded protected header of the valid signature.
	Protected header.Parameters

	// Header is its unprotected header.
	Header header.Parameters

	// Signature is the index of the signature that validated.
	Signature int
}

// Verifier checks signatures with one key.
type Verifier struct {
	source *jwk.JWK
	key    any
	kty    jwa.KeyType
	ids    map[string]bool
	opts   VerifyOptions
}

// NewVerifier prepares key for verification. key is a public or private
// key, an HMAC secret as []byte, or a *jwk.JWK.
func NewVerifier(key any, opts *VerifyOptions) (*Verifier, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil key", errors.ErrInvalidArgument)
	}
	v := &Verifier{key: key, ids: map[string]bool{}}
	if opts != nil {
		v.opts = *opts
	}

	var err error
	j, isJWK := key.(*jwk.JWK)
	if isJWK {
		v.source = j
	} else if j, err = describe(key); err != nil {
		return nil, err
	}
	v.kty = j.KeyType()
	if j.Kid == "" {
		return v, nil
	}
	// A key with a kid also answers to its thumbprint, the kid DIDComm
	// signers fall back to.
	v.ids[j.Kid] = true
	if !j.IsSymmetric() {
		tp, err := j.ThumbprintSHA256()
		if err != nil {
			return nil, err
		}
		v.ids[tp] = true
	}
	return v, nil
}

// VerifyBytes parses data in any serialization and verifies it.
func (v *Verifier) VerifyBytes(data []byte) (*Verified, error) {
	j, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return v.Verify(j)
}

// Verify succeeds when at least one signature validates with the key.
// When the key has a kid, signatures whose kid names a different key are
// not tried.
func (v *Verifier) Verify(j *JSONWebSignature) (*Verified, error) {
	if j == nil || len(j.Signatures) == 0 {
		return nil, fmt.Errorf("%w: no signatures", errors.ErrMalformedJWS)
	}

	var firstErr, attemptErr error
	for i := range j.Signatures {
		sig := &j.Signatures[i]
		err := v.verify(sig, j)
		if err == nil {
			return &Verified{
				Payload:   j.Payload,
				Protected: sig.Protected.Clone(),
				Header:    sig.Header.Clone(),
				Signature: i,
			}, nil
		}
		var skip *skipError
		if stderrors.As(err, &skip) {
			if firstErr == nil {
				firstErr = skip.err
			}
			continue
		}
		if attemptErr == nil {
			attemptErr = err
		}
	}
	switch {
	case attemptErr != nil:
		return nil, attemptErr
	case firstErr != nil:
		return nil, firstErr
	}
	return nil, errors.ErrSignatureInvalid
}

// skipError marks a signature the key is not applicable to.
type skipError struct {
	err error
}

func (e *skipError) Error() string { return e.err.Error() }

func (e *skipError) Unwrap() error { return e.err }

func (v *Verifier) verify(sig *Signature, j *JSONWebSignature) error {
	joint, err := sig.joint()
	if err != nil {
		return err
	}
	unencoded, err := sig.unencoded()
	if err != nil {
		return err
	}
	if unencoded != j.Unencoded {
		return fmt.Errorf("%w: signatures disagree on b64", errors.ErrMalformedJWS)
	}

	name, err := joint.String(header.Algorithm)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMalformedJWS, err)
	}
	if name == "" {
		return fmt.Errorf("%w: missing alg", errors.ErrMalformedJWS)
	}
	alg := jwa.SignatureAlgorithm(name)
	if err := v.opts.Policy.CheckSignature(alg); err != nil {
		return &skipError{err}
	}
	if alg.KeyType() != v.kty {
		return &skipError{fmt.Errorf("%w: %s cannot use a %s key", errors.ErrUnsupportedAlgorithmForKey, alg, v.kty)}
	}
	if v.source != nil {
		if err := confirmKey(v.source, alg); err != nil {
			return &skipError{err}
		}
	}
	if kid, _ := joint.String(header.KeyID); kid != "" && len(v.ids) > 0 && !v.ids[kid] {
		return &skipError{errors.ErrSignatureInvalid}
	}
	if sig.undecodable {
		return errors.ErrSignatureInvalid
	}

	return signing.Verify(alg, v.key, signingInput(sig.protectedRaw, j.Payload, unencoded), sig.Signature)
}
