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
	"bytes"
	"crypto"
	"crypto/ecdh"
	"crypto/ed25519"
	"fmt"

	"github.com/cloudflare/circl/sign/ed448"

	"github.com/jeremyhahn/go-josekit/pkg/crypto/x448"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

func okp(crv jwa.NamedCurve, x []byte) *JWK {
	return &JWK{
		Kty: string(jwa.KeyTypeOKP),
		Crv: string(crv),
		X:   encode(x),
	}
}

func fromOKPPublicKey(pub crypto.PublicKey) (*JWK, bool, error) {
	switch key := pub.(type) {
	case ed25519.PublicKey:
		if len(key) != ed25519.PublicKeySize {
			return nil, true, fmt.Errorf("%w: Ed25519 public key size %d", errors.ErrInvalidKeyLength, len(key))
		}
		return okp(jwa.Ed25519, key), true, nil
	case ed448.PublicKey:
		if len(key) != ed448.PublicKeySize {
			return nil, true, fmt.Errorf("%w: Ed448 public key size %d", errors.ErrInvalidKeyLength, len(key))
		}
		return okp(jwa.Ed448, key), true, nil
	case *ecdh.PublicKey:
		if key.Curve() != ecdh.X25519() {
			return nil, false, nil
		}
		return okp(jwa.X25519, key.Bytes()), true, nil
	case x448.PublicKey:
		if len(key) != x448.Size {
			return nil, true, fmt.Errorf("%w: X448 public key size %d", errors.ErrInvalidKeyLength, len(key))
		}
		return okp(jwa.X448, key), true, nil
	}
	return nil, false, nil
}

func fromOKPPrivateKey(priv crypto.PrivateKey) (*JWK, bool, error) {
	switch key := priv.(type) {
	case ed25519.PrivateKey:
		if len(key) != ed25519.PrivateKeySize {
			return nil, true, fmt.Errorf("%w: Ed25519 private key size %d", errors.ErrInvalidKeyLength, len(key))
		}
		j := okp(jwa.Ed25519, key.Public().(ed25519.PublicKey))
		j.D = encode(key.Seed())
		return j, true, nil
	case ed448.PrivateKey:
		if len(key) != ed448.PrivateKeySize {
			return nil, true, fmt.Errorf("%w: Ed448 private key size %d", errors.ErrInvalidKeyLength, len(key))
		}
		j := okp(jwa.Ed448, key.Public().(ed448.PublicKey))
		j.D = encode(key.Seed())
		return j, true, nil
	case *ecdh.PrivateKey:
		if key.Curve() != ecdh.X25519() {
			return nil, false, nil
		}
		j := okp(jwa.X25519, key.PublicKey().Bytes())
		j.D = encode(key.Bytes())
		return j, true, nil
	case x448.PrivateKey:
		if len(key) != x448.Size {
			return nil, true, fmt.Errorf("%w: X448 private key size %d", errors.ErrInvalidKeyLength, len(key))
		}
		j := okp(jwa.X448, key.PublicKey())
		j.D = encode(key)
		return j, true, nil
	}
	return nil, false, nil
}

func (k *JWK) okpPublic() (jwa.NamedCurve, []byte, error) {
	crv, err := k.Curve()
	if err != nil {
		return "", nil, err
	}
	p, _ := crv.Params()
	x, err := decodeFixed("OKP", "x", k.X, p.Size)
	if err != nil {
		return "", nil, err
	}
	return crv, x, nil
}

func (k *JWK) toOKPPublicKey() (crypto.PublicKey, error) {
	crv, x, err := k.okpPublic()
	if err != nil {
		return nil, err
	}
	switch crv {
	case jwa.Ed25519:
		return ed25519.PublicKey(x), nil
	case jwa.Ed448:
		return ed448.PublicKey(x), nil
	case jwa.X25519:
		pub, err := ecdh.X25519().NewPublicKey(x)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid X25519 public key", errors.ErrMalformedKey)
		}
		return pub, nil
	case jwa.X448:
		return x448.PublicKey(x), nil
	}
	return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedCurve, crv)
}

func (k *JWK) toOKPPrivateKey() (crypto.PrivateKey, error) {
	crv, x, err := k.okpPublic()
	if err != nil {
		return nil, err
	}
	p, _ := crv.Params()
	d, err := decodeFixed("OKP", "d", k.D, p.PrivateSize)
	if err != nil {
		return nil, err
	}

	var priv crypto.PrivateKey
	var pub []byte
	switch crv {
	case jwa.Ed25519:
		key := ed25519.NewKeyFromSeed(d)
		priv, pub = key, key.Public().(ed25519.PublicKey)
	case jwa.Ed448:
		key := ed448.NewKeyFromSeed(d)
		priv, pub = key, key.Public().(ed448.PublicKey)
	case jwa.X25519:
		key, err := ecdh.X25519().NewPrivateKey(d)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid X25519 private key", errors.ErrMalformedKey)
		}
		priv, pub = key, key.PublicKey().Bytes()
	case jwa.X448:
		key := x448.PrivateKey(d)
		priv, pub = key, key.PublicKey()
	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedCurve, crv)
	}
	if !bytes.Equal(pub, x) {
		return nil, fmt.Errorf("%w: private key does not match public key", errors.ErrMalformedKey)
	}
	return priv, nil
}
