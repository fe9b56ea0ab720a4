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

package jwk

import (
	"crypto"
	"crypto/rsa"
	"fmt"
	"math/big"

	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

func fromRSAPublicKey(pub crypto.PublicKey) (*JWK, bool, error) {
	key, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, false, nil
	}
	return &JWK{
		Kty: string(jwa.KeyTypeRSA),
		N:   encode(key.N.Bytes()),
		E:   encode(big.NewInt(int64(key.E)).Bytes()),
	}, true, nil
}

func fromRSAPrivateKey(priv crypto.PrivateKey) (*JWK, bool, error) {
	key, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, false, nil
	}
	if len(key.Primes) != 2 {
		return nil, true, fmt.Errorf("%w: multi-prime RSA keys are not supported", errors.ErrInvalidKeyType)
	}
	if key.Precomputed.Dp == nil {
		key.Precompute()
	}
	j, _, _ := fromRSAPublicKey(&key.PublicKey)
	j.D = encode(key.D.Bytes())
	j.P = encode(key.Primes[0].Bytes())
	j.Q = encode(key.Primes[1].Bytes())
	j.DP = encode(key.Precomputed.Dp.Bytes())
	j.DQ = encode(key.Precomputed.Dq.Bytes())
	j.QI = encode(key.Precomputed.Qinv.Bytes())
	return j, true, nil
}

func decodeInt(name, value string) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: RSA JWK missing required field: %s", errors.ErrMalformedKey, name)
	}
	b, err := decodeField(name, value)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: RSA JWK field %s is empty", errors.ErrMalformedKey, name)
	}
	return new(big.Int).SetBytes(b), nil
}

func (k *JWK) toRSAPublicKey() (*rsa.PublicKey, error) {
	n, err := decodeInt("n", k.N)
	if err != nil {
		return nil, err
	}
	e, err := decodeInt("e", k.E)
	if err != nil {
		return nil, err
	}
	if !e.IsInt64() || e.Int64() > 1<<31-1 || e.Int64() < 3 {
		return nil, fmt.Errorf("%w: RSA exponent out of range", errors.ErrMalformedKey)
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func (k *JWK) toRSAPrivateKey() (*rsa.PrivateKey, error) {
	pub, err := k.toRSAPublicKey()
	if err != nil {
		return nil, err
	}
	d, err := decodeInt("d", k.D)
	if err != nil {
		return nil, err
	}
	p, err := decodeInt("p", k.P)
	if err != nil {
		return nil, err
	}
	q, err := decodeInt("q", k.Q)
	if err != nil {
		return nil, err
	}
	priv := &rsa.PrivateKey{
		PublicKey: *pub,
		D:         d,
		Primes:    []*big.Int{p, q},
	}
	if err := priv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedKey, err)
	}
	priv.Precompute()
	return priv, nil
}
