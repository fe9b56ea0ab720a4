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
	"crypto/hmac"
	"crypto/rsa"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/cloudflare/circl/sign/ed448"

	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// es256kSize is the width of each secp256k1 signature half.
const es256kSize = 32

func hmacKey(h crypto.Hash, key []byte) error {
	if len(key) < h.Size() {
		return fmt.Errorf("%w: HMAC key is %d bytes, minimum is %d", errors.ErrInvalidKeyLength, len(key), h.Size())
	}
	return nil
}

func signHMAC(h crypto.Hash, key, input []byte) ([]byte, error) {
	if err := hmacKey(h, key); err != nil {
		return nil, err
	}
	mac := hmac.New(h.New, key)
	mac.Write(input)
	return mac.Sum(nil), nil
}

func signES256K(key *btcec.PrivateKey, input []byte) ([]byte, error) {
	d, err := digest(crypto.SHA256, input)
	if err != nil {
		return nil, err
	}
	sig := btcecdsa.Sign(key, d)
	r, s := sig.R(), sig.S()
	rb, sb := r.Bytes(), s.Bytes()
	return append(rb[:], sb[:]...), nil
}

// Verify checks sig over input with key under alg. key is an HMAC secret as
// []byte, a public or private key, or a *jwk.JWK. Any mismatch between the
// signature and the input yields errors.ErrSignatureInvalid unwrapped.
func Verify(alg jwa.SignatureAlgorithm, key any, input, sig []byte) error {
	p, err := alg.Params()
	if err != nil {
		return err
	}
	if key == nil {
		return fmt.Errorf("%w: nil verification key", errors.ErrInvalidArgument)
	}
	if j, ok := key.(*jwk.JWK); ok {
		if j.IsSymmetric() {
			key, err = j.ToSymmetricKey()
		} else {
			key, err = j.ToPublicKey()
		}
		if err != nil {
			return err
		}
	}

	if secret, ok := key.([]byte); ok {
		if p.Family != jwa.FamilyHMAC {
			return keyMismatch(alg, key)
		}
		return verifyHMAC(p.Hash, secret, input, sig)
	}
	if p.Family == jwa.FamilyHMAC {
		return keyMismatch(alg, key)
	}

	pub := publicKey(key)
	if err := CheckPublicKey(alg, pub); err != nil {
		return err
	}
	d, err := digest(p.Hash, input)
	if err != nil {
		return err
	}

	var ok bool
	switch k := pub.(type) {
	case *rsa.PublicKey:
		if p.Family == jwa.FamilyRSAPSS {
			ok = rsa.VerifyPSS(k, p.Hash, d, sig, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: p.Hash}) == nil
		} else {
			ok = rsa.VerifyPKCS1v15(k, p.Hash, d, sig) == nil
		}
	case *ecdsa.PublicKey:
		ok = verifyECDSA(k, d, sig)
	case *btcec.PublicKey:
		ok = verifyES256K(k, d, sig)
	case ed25519.PublicKey:
		ok = ed25519.Verify(k, input, sig)
	case ed448.PublicKey:
		ok = ed448.Verify(k, input, sig, "")
	}
	if !ok {
		return errors.ErrSignatureInvalid
	}
	return nil
}

// publicKey returns the public half of a private key, or key itself.
func publicKey(key any) crypto.PublicKey {
	switch k := key.(type) {
	case *btcec.PrivateKey:
		return k.PubKey()
	case crypto.Signer:
		return k.Public()
	}
	return key
}

func verifyHMAC(h crypto.Hash, key, input, sig []byte) error {
	want, err := signHMAC(h, key, input)
	if err != nil {
		return err
	}
	if !hmac.Equal(want, sig) {
		return errors.ErrSignatureInvalid
	}
	return nil
}

func verifyECDSA(pub *ecdsa.PublicKey, digest, sig []byte) bool {
	size := coordinateSize(pub)
	if len(sig) != 2*size {
		return false
	}
	r := new(big.Int).SetBytes(sig[:size])
	s := new(big.Int).SetBytes(sig[size:])
	return ecdsa.Verify(pub, digest, r, s)
}

func verifyES256K(pub *btcec.PublicKey, digest, sig []byte) bool {
	if len(sig) != 2*es256kSize {
		return false
	}
	var r, s btcec.ModNScalar
	if r.SetByteSlice(sig[:es256kSize]) || s.SetByteSlice(sig[es256kSize:]) || r.IsZero() || s.IsZero() {
		return false
	}
	return btcecdsa.NewSignature(&r, &s).Verify(digest, pub)
}
