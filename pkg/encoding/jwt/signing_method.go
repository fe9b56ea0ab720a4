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
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
	"github.com/jeremyhahn/go-josekit/pkg/signing"
)

// SigningMethod implements jwt.SigningMethod on top of pkg/signing. Keys
// may be Go keys, crypto.Signer implementations, HMAC secrets as []byte or
// *jwk.JWK values, so one method covers every JWS algorithm including
// ES256K and Ed448.
type SigningMethod struct {
	alg jwa.SignatureAlgorithm
}

var _ jwt.SigningMethod = (*SigningMethod)(nil)

// NewSigningMethod returns the method for alg.
func NewSigningMethod(alg jwa.SignatureAlgorithm) (*SigningMethod, error) {
	if !alg.IsValid() {
		return nil, fmt.Errorf("%w: alg %q", errors.ErrUnsupportedAlgorithm, string(alg))
	}
	return &SigningMethod{alg: alg}, nil
}

// Alg returns the JWS "alg" name.
func (m *SigningMethod) Alg() string {
	return m.alg.String()
}

// Algorithm returns the registry value.
func (m *SigningMethod) Algorithm() jwa.SignatureAlgorithm {
	return m.alg
}

// Sign signs the JWT signing input.
func (m *SigningMethod) Sign(signingString string, key any) ([]byte, error) {
	return signing.Sign(m.alg, key, []byte(signingString))
}

// Verify checks sig over the JWT signing input.
func (m *SigningMethod) Verify(signingString string, sig []byte, key any) error {
	if err := signing.Verify(m.alg, key, []byte(signingString), sig); err != nil {
		return fmt.Errorf("%w: %w", jwt.ErrSignatureInvalid, err)
	}
	return nil
}

var registerOnce sync.Once

// RegisterSigningMethods installs a SigningMethod for every JWS algorithm
// in the golang-jwt registry, replacing the built in methods of the same
// name. Parsers created with jwt.NewParser then accept the full algorithm
// set. Calling it more than once has no further effect.
func RegisterSigningMethods() {
	registerOnce.Do(func() {
		for _, alg := range jwa.SignatureAlgorithms {
			m := &SigningMethod{alg: alg}
			jwt.RegisterSigningMethod(alg.String(), func() jwt.SigningMethod { return m })
		}
	})
}

// ValidMethods lists the names accepted by policy, for jwt.WithValidMethods.
// A nil policy allows every registered algorithm.
func ValidMethods(policy *jwa.Policy) []string {
	var names []string
	for _, alg := range jwa.SignatureAlgorithms {
		if policy.CheckSignature(alg) == nil {
			names = append(names, alg.String())
		}
	}
	return names
}
