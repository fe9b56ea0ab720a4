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

	"github.com/golang-jwt/jwt/v5"

	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
)

// KeySet selects verification keys by the token's "kid". Keys without an
// explicit kid are indexed by their RFC 7638 thumbprint.
type KeySet struct {
	keys  map[string]*jwk.JWK
	order []string
}

// NewKeySet indexes keys. Symmetric keys must carry a kid, and kids must
// be unique.
func NewKeySet(keys []*jwk.JWK) (*KeySet, error) {
	s := &KeySet{keys: make(map[string]*jwk.JWK, len(keys))}
	for i, k := range keys {
		if k == nil {
			return nil, fmt.Errorf("%w: key %d is nil", errors.ErrInvalidArgument, i)
		}
		kid, err := k.KeyID()
		if err != nil {
			return nil, err
		}
		if kid == "" {
			return nil, fmt.Errorf("%w: key %d has no kid", errors.ErrInvalidArgument, i)
		}
		if _, dup := s.keys[kid]; dup {
			return nil, fmt.Errorf("%w: duplicate kid %q", errors.ErrInvalidArgument, kid)
		}
		s.keys[kid] = k
		s.order = append(s.order, kid)
	}
	return s, nil
}

// ParseKeySet parses a JWK Set document.
func ParseKeySet(data []byte) (*KeySet, error) {
	keys, err := jwk.ParseSet(data)
	if err != nil {
		return nil, err
	}
	return NewKeySet(keys)
}

// KeyIDs returns the indexed kids in insertion order.
func (s *KeySet) KeyIDs() []string {
	return append([]string(nil), s.order...)
}

// Lookup returns the key for kid. A token without a kid resolves only
// when the set holds exactly one key.
func (s *KeySet) Lookup(kid string) (*jwk.JWK, error) {
	if kid == "" {
		if len(s.order) == 1 {
			return s.keys[s.order[0]], nil
		}
		return nil, errors.ErrSignatureInvalid
	}
	k, ok := s.keys[kid]
	if !ok {
		return nil, errors.ErrSignatureInvalid
	}
	return k, nil
}

// Keyfunc resolves the verification key for a golang-jwt parser. The key is
// returned as its Go value so the built in golang-jwt methods accept it.
//
// Example:
//
//	jwt.RegisterSigningMethods()
//	token, err := gojwt.Parse(tokenString, set.Keyfunc)
func (s *KeySet) Keyfunc(token *jwt.Token) (any, error) {
	kid, _ := token.Header["kid"].(string)
	k, err := s.Lookup(kid)
	if err != nil {
		return nil, err
	}
	return k.Key()
}

// VerifyClaims verifies token with the key its kid selects and decodes the
// claims as Verifier.VerifyClaims does.
func (s *KeySet) VerifyClaims(token string, claims jwt.Claims, opts *VerifyOptions) error {
	kid, err := ExtractKID(token)
	if err != nil {
		return err
	}
	k, err := s.Lookup(kid)
	if err != nil {
		return err
	}
	v, err := NewVerifier(k, opts)
	if err != nil {
		return err
	}
	return v.VerifyClaims(token, claims)
}
