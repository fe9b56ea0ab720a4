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

package signing

import (
	"crypto"
	"crypto/rsa"
	"fmt"

	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// SignerOpts returns the crypto.SignerOpts a crypto.Signer needs to produce
// an alg signature: the digest hash for ECDSA and RSA PKCS#1 v1.5, PSS
// options with a hash-length salt for RSASSA-PSS, and crypto.Hash(0) for
// EdDSA, which signs the input directly.
func SignerOpts(alg jwa.SignatureAlgorithm) (crypto.SignerOpts, error) {
	p, err := alg.Params()
	if err != nil {
		return nil, err
	}
	switch p.Family {
	case jwa.FamilyRSAPSS:
		return &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: p.Hash}, nil
	case jwa.FamilyEdDSA:
		return crypto.Hash(0), nil
	case jwa.FamilyHMAC:
		return nil, fmt.Errorf("%w: %s is not an asymmetric algorithm", errors.ErrUnsupportedAlgorithmForKey, alg)
	}
	return p.Hash, nil
}

// digest hashes input with h, or returns it unchanged for h == 0.
func digest(h crypto.Hash, input []byte) ([]byte, error) {
	if h == 0 {
		return input, nil
	}
	if !h.Available() {
		return nil, fmt.Errorf("%w: hash %v is not linked", errors.ErrUnsupportedAlgorithm, h)
	}
	hasher := h.New()
	hasher.Write(input)
	return hasher.Sum(nil), nil
}
