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

package jwt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/jws"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// SignerOptions tunes a Signer. A nil *SignerOptions selects the defaults.
type SignerOptions struct {
	// Algorithm overrides the key's default algorithm.
	Algorithm jwa.SignatureAlgorithm

	// KeyID is placed in the "kid" header. It defaults to the kid of a
	// *jwk.JWK key.
	KeyID string

	Policy *jwa.Policy
}

// Signer mints JWTs with one key.
type Signer struct {
	method *SigningMethod
	key    any
	kid    string
}

// NewSigner validates key for signing. key is a private key, a
// crypto.Signer, an HMAC secret as []byte or a private or symmetric
// *jwk.JWK.
//
// Example:
//
//	signer, err := jwt.NewSigner(privateKey, nil)
//	token, err := signer.Sign(gojwt.MapClaims{"sub": "user123"})
func NewSigner(key any, opts *SignerOptions) (*Signer, error) {
	var o SignerOptions
	if opts != nil {
		o = *opts
	}
	js, err := jws.NewSigner([]jws.SigningKey{{Algorithm: o.Algorithm, Key: key}}, &jws.SignOptions{Policy: o.Policy})
	if err != nil {
		return nil, err
	}
	method, err := NewSigningMethod(js.Algorithms()[0])
	if err != nil {
		return nil, err
	}
	s := &Signer{method: method, key: key, kid: o.KeyID}
	if j, ok := key.(*jwk.JWK); ok && s.kid == "" {
		s.kid = j.Kid
	}
	return s, nil
}

// Algorithm returns the signing algorithm.
func (s *Signer) Algorithm() jwa.SignatureAlgorithm {
	return s.method.alg
}

// Sign serializes claims and signs them.
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(s.method, claims)
	if s.kid != "" {
		token.Header["kid"] = s.kid
	}
	return token.SignedString(s.key)
}

// VerifyOptions contains the signature policy and the claim checks applied
// after the signature validates.
type VerifyOptions struct {
	Policy *jwa.Policy

	// Issuer, Audience and Subject are checked when not empty.
	Issuer   string
	Audience string
	Subject  string

	// Leeway is the clock skew tolerated on exp, nbf and iat.
	Leeway time.Duration

	RequireExpiry bool

	// Now replaces time.Now.
	Now func() time.Time
}

// Verifier verifies JWT signatures with one key and validates the claims
// with golang-jwt's validator.
type Verifier struct {
	verifier  *jws.Verifier
	validator *jwt.Validator
}

// NewVerifier prepares key for verification. key is anything
// jws.NewVerifier accepts.
func NewVerifier(key any, opts *VerifyOptions) (*Verifier, error) {
	var o VerifyOptions
	if opts != nil {
		o = *opts
	}
	v, err := jws.NewVerifier(key, &jws.VerifyOptions{Policy: o.Policy})
	if err != nil {
		return nil, err
	}
	return &Verifier{verifier: v, validator: jwt.NewValidator(o.parserOptions()...)}, nil
}

func (o VerifyOptions) parserOptions() []jwt.ParserOption {
	var opts []jwt.ParserOption
	if o.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(o.Issuer))
	}
	if o.Audience != "" {
		opts = append(opts, jwt.WithAudience(o.Audience))
	}
	if o.Subject != "" {
		opts = append(opts, jwt.WithSubject(o.Subject))
	}
	if o.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(o.Leeway))
	}
	if o.RequireExpiry {
		opts = append(opts, jwt.WithExpirationRequired())
	}
	if o.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(o.Now))
	}
	return opts
}

// Verify verifies token and returns its claims.
//
// Example:
//
//	verifier, err := jwt.NewVerifier(publicKey, &jwt.VerifyOptions{Issuer: "josekit"})
//	claims, err := verifier.Verify(token)
func (v *Verifier) Verify(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if err := v.VerifyClaims(token, &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyClaims verifies token, decodes its payload into claims, which must
// be a pointer, and validates them. Signature failures return
// errors.ErrSignatureInvalid; claim failures return golang-jwt's errors
// such as jwt.ErrTokenExpired.
func (v *Verifier) VerifyClaims(token string, claims jwt.Claims) error {
	j, err := jws.ParseCompact(token)
	if err != nil {
		return err
	}
	if j.Unencoded {
		return fmt.Errorf("%w: a JWT payload must be base64url encoded", errors.ErrMalformedJWS)
	}
	out, err := v.verifier.Verify(j)
	if err != nil {
		return err
	}
	if err := decodeClaims(out.Payload, claims); err != nil {
		return err
	}
	return v.validator.Validate(claims)
}

func decodeClaims(payload []byte, claims jwt.Claims) error {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(claims); err != nil {
		return fmt.Errorf("%w: %v", jwt.ErrTokenMalformed, err)
	}
	return nil
}

// ExtractKID returns the kid header of a compact JWT without verifying it.
// A token without a kid returns "".
func ExtractKID(token string) (string, error) {
	j, err := jws.ParseCompact(token)
	if err != nil {
		return "", err
	}
	sig := j.Signatures[0]
	kid, err := sig.Protected.String("kid")
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrMalformedJWS, err)
	}
	return kid, nil
}
