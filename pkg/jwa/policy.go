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

package jwa

import (
	"fmt"

	"github.com/jeremyhahn/go-josekit/pkg/errors"
)

const (
	// DefaultPBES2Iterations is the PBKDF2 iteration count used when a caller
	// does not choose one.
	DefaultPBES2Iterations = 100000

	// MinPBES2Iterations is the smallest count accepted on decryption
	// (RFC 7518 Section 4.8.1.2 recommends at least 1000).
	MinPBES2Iterations = 1000

	// MaxPBES2Iterations bounds the work an attacker-supplied "p2c" can force.
	MaxPBES2Iterations = 10000000
)

// Policy is an explicit allow-list of algorithms. The zero value and a nil
// *Policy both behave like DefaultPolicy.
type Policy struct {
	signature map[SignatureAlgorithm]struct{}
	key       map[KeyAlgorithm]struct{}
	content   map[ContentEncryption]struct{}

	// MinPBES2Iterations and MaxPBES2Iterations bound the "p2c" header on
	// decryption. Zero selects the package defaults.
	MinPBES2Iterations int
	MaxPBES2Iterations int
}

// DefaultPolicy allows every registered algorithm.
func DefaultPolicy() *Policy {
	return &Policy{}
}

// NewPolicy builds a policy allowing only the listed algorithms. An empty
// list for a category allows every registered algorithm of that category.
func NewPolicy(sig []SignatureAlgorithm, key []KeyAlgorithm, enc []ContentEncryption) (*Policy, error) {
	p := &Policy{}
	if len(sig) > 0 {
		p.signature = make(map[SignatureAlgorithm]struct{}, len(sig))
		for _, a := range sig {
			if !a.IsValid() {
				return nil, fmt.Errorf("%w: alg %q", errors.ErrUnsupportedAlgorithm, string(a))
			}
			p.signature[a] = struct{}{}
		}
	}
	if len(key) > 0 {
		p.key = make(map[KeyAlgorithm]struct{}, len(key))
		for _, a := range key {
			if !a.IsValid() {
				return nil, fmt.Errorf("%w: alg %q", errors.ErrUnsupportedAlgorithm, string(a))
			}
			p.key[a] = struct{}{}
		}
	}
	if len(enc) > 0 {
		p.content = make(map[ContentEncryption]struct{}, len(enc))
		for _, e := range enc {
			if !e.IsValid() {
				return nil, fmt.Errorf("%w: enc %q", errors.ErrUnsupportedAlgorithm, string(e))
			}
			p.content[e] = struct{}{}
		}
	}
	return p, nil
}

// CheckSignature verifies s is registered and allowed.
func (p *Policy) CheckSignature(s SignatureAlgorithm) error {
	if !s.IsValid() {
		return fmt.Errorf("%w: alg %q", errors.ErrUnsupportedAlgorithm, string(s))
	}
	if p != nil && p.signature != nil {
		if _, ok := p.signature[s]; !ok {
			return fmt.Errorf("%w: alg %s is not allowed", errors.ErrUnsupportedAlgorithm, s)
		}
	}
	return nil
}

// CheckKeyAlgorithm verifies a is registered and allowed.
func (p *Policy) CheckKeyAlgorithm(a KeyAlgorithm) error {
	if !a.IsValid() {
		return fmt.Errorf("%w: alg %q", errors.ErrUnsupportedAlgorithm, string(a))
	}
	if p != nil && p.key != nil {
		if _, ok := p.key[a]; !ok {
			return fmt.Errorf("%w: alg %s is not allowed", errors.ErrUnsupportedAlgorithm, a)
		}
	}
	return nil
}

// CheckContentEncryption verifies e is registered and allowed.
func (p *Policy) CheckContentEncryption(e ContentEncryption) error {
	if !e.IsValid() {
		return fmt.Errorf("%w: enc %q", errors.ErrUnsupportedAlgorithm, string(e))
	}
	if p != nil && p.content != nil {
		if _, ok := p.content[e]; !ok {
			return fmt.Errorf("%w: enc %s is not allowed", errors.ErrUnsupportedAlgorithm, e)
		}
	}
	return nil
}

// CheckPair verifies that a and e are both allowed and form a valid pair:
// direct encryption requires nothing more, and every registered alg can
// protect every registered enc.
func (p *Policy) CheckPair(a KeyAlgorithm, e ContentEncryption) error {
	if err := p.CheckKeyAlgorithm(a); err != nil {
		return err
	}
	return p.CheckContentEncryption(e)
}

// CheckPBES2Iterations verifies a "p2c" value lies within the policy bounds.
func (p *Policy) CheckPBES2Iterations(count int) error {
	lo, hi := MinPBES2Iterations, MaxPBES2Iterations
	if p != nil {
		if p.MinPBES2Iterations > 0 {
			lo = p.MinPBES2Iterations
		}
		if p.MaxPBES2Iterations > 0 {
			hi = p.MaxPBES2Iterations
		}
	}
	if count < lo || count > hi {
		return fmt.Errorf("%w: p2c %d outside [%d, %d]", errors.ErrUnsupportedAlgorithm, count, lo, hi)
	}
	return nil
}
