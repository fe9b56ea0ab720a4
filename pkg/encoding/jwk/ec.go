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
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// NISTCurve returns the elliptic.Curve for a NIST named curve.
func NISTCurve(c jwa.NamedCurve) (elliptic.Curve, error) {
	switch c {
	case jwa.P256:
		return elliptic.P256(), nil
	case jwa.P384:
		return elliptic.P384(), nil
	case jwa.P521:
		return elliptic.P521(), nil
	default:
		return nil, fmt.Errorf("%w: %q is not a NIST curve", errors.ErrUnsupportedCurve, string(c))
	}
}

// ECDHCurve returns the crypto/ecdh curve for a NIST named curve or X25519.
func ECDHCurve(c jwa.NamedCurve) (ecdh.Curve, error) {
	switch c {
	case jwa.P256:
		return ecdh.P256(), nil
	case jwa.P384:
		return ecdh.P384(), nil
	case jwa.P521:
		return ecdh.P521(), nil
	case jwa.X25519:
		return ecdh.X25519(), nil
	default:
		return nil, fmt.Errorf("%w: %q has no crypto/ecdh implementation", errors.ErrUnsupportedCurve, string(c))
	}
}

// nistCurveName maps an elliptic.Curve back to its JWK name.
func nistCurveName(curve elliptic.Curve) (jwa.NamedCurve, error) {
	switch curve {
	case elliptic.P256():
		return jwa.P256, nil
	case elliptic.P384():
		return jwa.P384, nil
	case elliptic.P521():
		return jwa.P521, nil
	default:
		return "", fmt.Errorf("%w: %s", errors.ErrUnsupportedCurve, curve.Params().Name)
	}
}

func fixed(n *big.Int, size int) []byte {
	return n.FillBytes(make([]byte, size))
}

func fromECPublicKey(pub crypto.PublicKey) (*JWK, bool, error) {
	switch key := pub.(type) {
	case *ecdsa.PublicKey:
		crv, err := nistCurveName(key.Curve)
		if err != nil {
			return nil, true, err
		}
		size := (key.Curve.Params().BitSize + 7) / 8
		return &JWK{
			Kty: string(jwa.KeyTypeEC),
			Crv: string(crv),
			X:   encode(fixed(key.X, size)),
			Y:   encode(fixed(key.Y, size)),
		}, true, nil
	case *btcec.PublicKey:
		return &JWK{
			Kty: string(jwa.KeyTypeEC),
			Crv: string(jwa.Secp256k1),
			X:   encode(fixed(key.X(), 32)),
			Y:   encode(fixed(key.Y(), 32)),
		}, true, nil
	case *ecdh.PublicKey:
		crv, err := ecdhCurveName(key.Curve())
		if err != nil {
			return nil, true, err
		}
		if crv == jwa.X25519 {
			return nil, false, nil
		}
		raw := key.Bytes()
		size := (len(raw) - 1) / 2
		return &JWK{
			Kty: string(jwa.KeyTypeEC),
			Crv: string(crv),
			X:   encode(raw[1 : 1+size]),
			Y:   encode(raw[1+size:]),
		}, true, nil
	}
	return nil, false, nil
}

func fromECPrivateKey(priv crypto.PrivateKey) (*JWK, bool, error) {
	switch key := priv.(type) {
	case *ecdsa.PrivateKey:
		j, _, err := fromECPublicKey(&key.PublicKey)
		if err != nil {
			return nil, true, err
		}
		size := (key.Curve.Params().BitSize + 7) / 8
		j.D = encode(fixed(key.D, size))
		return j, true, nil
	case *btcec.PrivateKey:
		j, _, err := fromECPublicKey(key.PubKey())
		if err != nil {
			return nil, true, err
		}
		j.D = encode(key.Serialize())
		return j, true, nil
	case *ecdh.PrivateKey:
		j, ok, err := fromECPublicKey(key.PublicKey())
		if !ok || err != nil {
			return nil, ok, err
		}
		j.D = encode(key.Bytes())
		return j, true, nil
	}
	return nil, false, nil
}

func ecdhCurveName(c ecdh.Curve) (jwa.NamedCurve, error) {
	switch c {
	case ecdh.P256():
		return jwa.P256, nil
	case ecdh.P384():
		return jwa.P384, nil
	case ecdh.P521():
		return jwa.P521, nil
	case ecdh.X25519():
		return jwa.X25519, nil
	default:
		return "", fmt.Errorf("%w: unknown ecdh curve", errors.ErrUnsupportedCurve)
	}
}

// ecPoint decodes and size-checks the x and y members.
func (k *JWK) ecPoint() (jwa.NamedCurve, []byte, []byte, error) {
	crv, err := k.Curve()
	if err != nil {
		return "", nil, nil, err
	}
	p, _ := crv.Params()
	x, err := decodeFixed("EC", "x", k.X, p.Size)
	if err != nil {
		return "", nil, nil, err
	}
	y, err := decodeFixed("EC", "y", k.Y, p.Size)
	if err != nil {
		return "", nil, nil, err
	}
	return crv, x, y, nil
}

func uncompressed(x, y []byte) []byte {
	out := make([]byte, 0, 1+len(x)+len(y))
	out = append(out, 0x04)
	out = append(out, x...)
	return append(out, y...)
}

func (k *JWK) toECPublicKey() (crypto.PublicKey, error) {
	crv, x, y, err := k.ecPoint()
	if err != nil {
		return nil, err
	}
	if crv == jwa.Secp256k1 {
		pub, err := btcec.ParsePubKey(uncompressed(x, y))
		if err != nil {
			return nil, fmt.Errorf("%w: secp256k1 point is not on the curve", errors.ErrMalformedKey)
		}
		return pub, nil
	}
	curve, err := ECDHCurve(crv)
	if err != nil {
		return nil, err
	}
	// crypto/ecdh rejects points that are not on the curve.
	if _, err := curve.NewPublicKey(uncompressed(x, y)); err != nil {
		return nil, fmt.Errorf("%w: %s point is not on the curve", errors.ErrMalformedKey, crv)
	}
	nist, _ := NISTCurve(crv)
	return &ecdsa.PublicKey{
		Curve: nist,
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}, nil
}

func (k *JWK) toECPrivateKey() (crypto.PrivateKey, error) {
	crv, x, y, err := k.ecPoint()
	if err != nil {
		return nil, err
	}
	p, _ := crv.Params()
	d, err := decodeFixed("EC", "d", k.D, p.PrivateSize)
	if err != nil {
		return nil, err
	}

	if crv == jwa.Secp256k1 {
		var scalar btcec.ModNScalar
		if overflow := scalar.SetByteSlice(d); overflow || scalar.IsZero() {
			return nil, fmt.Errorf("%w: secp256k1 scalar out of range", errors.ErrMalformedKey)
		}
		priv, _ := btcec.PrivKeyFromBytes(d)
		if !bytes.Equal(priv.PubKey().SerializeUncompressed(), uncompressed(x, y)) {
			return nil, fmt.Errorf("%w: private key does not match public key", errors.ErrMalformedKey)
		}
		return priv, nil
	}

	curve, err := ECDHCurve(crv)
	if err != nil {
		return nil, err
	}
	ek, err := curve.NewPrivateKey(d)
	if err != nil {
		return nil, fmt.Errorf("%w: %s scalar out of range", errors.ErrMalformedKey, crv)
	}
	if !bytes.Equal(ek.PublicKey().Bytes(), uncompressed(x, y)) {
		return nil, fmt.Errorf("%w: private key does not match public key", errors.ErrMalformedKey)
	}
	nist, _ := NISTCurve(crv)
	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: nist,
			X:     new(big.Int).SetBytes(x),
			Y:     new(big.Int).SetBytes(y),
		},
		D: new(big.Int).SetBytes(d),
	}, nil
}
