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
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/cloudflare/circl/sign/ed448"
	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"

	jrand "github.com/jeremyhahn/go-josekit/pkg/crypto/rand"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// Signer binds a crypto.Signer to a JWS algorithm. It accepts software keys
// as well as opaque signers such as hardware-backed keys, and converts
// ASN.1 ECDSA output to the fixed-width R||S form JWS requires.
type Signer struct {
	signer crypto.Signer
	alg    jwa.SignatureAlgorithm
	opts   crypto.SignerOpts
}

// NewSigner checks that signer's public key is usable with alg.
func NewSigner(signer crypto.Signer, alg jwa.SignatureAlgorithm) (*Signer, error) {
	if signer == nil {
		return nil, fmt.Errorf("%w: signer is required", errors.ErrInvalidArgument)
	}
	opts, err := SignerOpts(alg)
	if err != nil {
		return nil, err
	}
	if err := CheckPublicKey(alg, signer.Public()); err != nil {
		return nil, err
	}
	return &Signer{signer: signer, alg: alg, opts: opts}, nil
}

// Public returns the public key of the wrapped signer.
func (s *Signer) Public() crypto.PublicKey {
	return s.signer.Public()
}

// Algorithm returns the JWS algorithm the signer produces.
func (s *Signer) Algorithm() jwa.SignatureAlgorithm {
	return s.alg
}

// Sign returns the JWS signature over the signing input.
func (s *Signer) Sign(rand io.Reader, input []byte) ([]byte, error) {
	d, err := digest(s.opts.HashFunc(), input)
	if err != nil {
		return nil, err
	}
	sig, err := s.signer.Sign(jrand.Or(rand), d, s.opts)
	if err != nil {
		return nil, fmt.Errorf("%s signing failed: %w", s.alg, err)
	}
	if pub, ok := s.signer.Public().(*ecdsa.PublicKey); ok {
		return fixedWidth(sig, coordinateSize(pub))
	}
	return sig, nil
}

// fixedWidth converts an ASN.1 ECDSA signature to R||S, each left padded to
// size bytes (RFC 7518 Section 3.4).
func fixedWidth(der []byte, size int) ([]byte, error) {
	var (
		r, s  []byte
		inner cryptobyte.String
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(&r) ||
		!inner.ReadASN1Integer(&s) ||
		!inner.Empty() {
		return nil, fmt.Errorf("%w: signer returned malformed ECDSA signature", errors.ErrInvalidArgument)
	}
	r, s = trimZero(r), trimZero(s)
	if len(r) > size || len(s) > size {
		return nil, fmt.Errorf("%w: signer returned oversized ECDSA signature", errors.ErrInvalidArgument)
	}
	out := make([]byte, 2*size)
	copy(out[size-len(r):size], r)
	copy(out[2*size-len(s):], s)
	return out, nil
}

func trimZero(b []byte) []byte {
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	return b
}

func coordinateSize(pub *ecdsa.PublicKey) int {
	return (pub.Curve.Params().BitSize + 7) / 8
}

// Sign computes the JWS signature of input with key under alg. key is an
// HMAC secret as []byte, a *btcec.PrivateKey for ES256K, a *jwk.JWK, or any
// crypto.Signer: *ecdsa.PrivateKey, *rsa.PrivateKey, ed25519.PrivateKey,
// ed448.PrivateKey or an opaque signer.
func Sign(alg jwa.SignatureAlgorithm, key any, input []byte) ([]byte, error) {
	return SignWithReader(alg, key, input, nil)
}

// SignWithReader is Sign with an explicit entropy source for ECDSA and
// RSASSA-PSS. A nil reader selects the default source.
func SignWithReader(alg jwa.SignatureAlgorithm, key any, input []byte, rand io.Reader) ([]byte, error) {
	p, err := alg.Params()
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("%w: nil signing key", errors.ErrInvalidArgument)
	}
	if j, ok := key.(*jwk.JWK); ok {
		if key, err = j.Key(); err != nil {
			return nil, err
		}
	}

	switch k := key.(type) {
	case []byte:
		if p.Family != jwa.FamilyHMAC {
			return nil, keyMismatch(alg, key)
		}
		return signHMAC(p.Hash, k, input)
	case *btcec.PrivateKey:
		if alg != jwa.ES256K {
			return nil, keyMismatch(alg, key)
		}
		return signES256K(k, input)
	case crypto.Signer:
		s, err := NewSigner(k, alg)
		if err != nil {
			return nil, err
		}
		return s.Sign(rand, input)
	}
	return nil, keyMismatch(alg, key)
}

func keyMismatch(alg jwa.SignatureAlgorithm, key any) error {
	return fmt.Errorf("%w: %s cannot use %T", errors.ErrUnsupportedAlgorithmForKey, alg, key)
}

// CheckPublicKey verifies pub has the type, curve and size alg requires.
func CheckPublicKey(alg jwa.SignatureAlgorithm, pub crypto.PublicKey) error {
	p, err := alg.Params()
	if err != nil {
		return err
	}
	switch k := pub.(type) {
	case *rsa.PublicKey:
		if p.Family != jwa.FamilyRSAPKCS1 && p.Family != jwa.FamilyRSAPSS {
			return keyMismatch(alg, pub)
		}
		if k.N.BitLen() < jwk.MinRSABits {
			return fmt.Errorf("%w: RSA key is %d bits, minimum is %d", errors.ErrInvalidKeyLength, k.N.BitLen(), jwk.MinRSABits)
		}
		return nil
	case *ecdsa.PublicKey, *btcec.PublicKey:
		if p.Family != jwa.FamilyECDSA {
			return keyMismatch(alg, pub)
		}
	case ed25519.PublicKey:
		if p.Family != jwa.FamilyEdDSA {
			return keyMismatch(alg, pub)
		}
		if len(k) != ed25519.PublicKeySize {
			return fmt.Errorf("%w: Ed25519 public key is %d bytes", errors.ErrInvalidKeyLength, len(k))
		}
		return nil
	case ed448.PublicKey:
		if p.Family != jwa.FamilyEdDSA {
			return keyMismatch(alg, pub)
		}
		if len(k) != ed448.PublicKeySize {
			return fmt.Errorf("%w: Ed448 public key is %d bytes", errors.ErrInvalidKeyLength, len(k))
		}
		return nil
	default:
		return keyMismatch(alg, pub)
	}

	curve, err := jwk.CurveOf(pub)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrUnsupportedAlgorithmForKey, err)
	}
	if err := jwa.CheckSignatureCurve(alg, curve); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrUnsupportedAlgorithmForKey, err)
	}
	return nil
}
