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

package keymgmt

import (
	"crypto"
	"crypto/rsa"
	"crypto/subtle"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-josekit/pkg/crypto/ecdh"
	"github.com/jeremyhahn/go-josekit/pkg/crypto/wrapping"
	"github.com/jeremyhahn/go-josekit/pkg/crypto/zeroize"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// dir

func wrapDirect(enc jwa.ContentEncryption, cp jwa.ContentParams, key any, opts *Options) (*Wrapped, error) {
	k, err := symmetricKey(jwa.Direct, key)
	if err != nil {
		return nil, err
	}
	if len(k) != cp.KeyLen {
		return nil, fmt.Errorf("%w: dir with %s requires a %d byte key, got %d", errors.ErrInvalidKeyLength, enc, cp.KeyLen, len(k))
	}
	if opts != nil && opts.CEK != nil && subtle.ConstantTimeCompare(opts.CEK, k) != 1 {
		return nil, fmt.Errorf("%w: dir cannot share a message with another direct recipient", errors.ErrInvalidArgument)
	}
	return &Wrapped{CEK: append([]byte(nil), k...)}, nil
}

func unwrapDirect(alg jwa.KeyAlgorithm, cp jwa.ContentParams, key any, encryptedKey []byte) ([]byte, error) {
	if len(encryptedKey) != 0 {
		return nil, fmt.Errorf("%w: %s requires an empty encrypted key", errors.ErrMalformedJWE, alg)
	}
	k, err := symmetricKey(alg, key)
	if err != nil {
		return nil, err
	}
	if len(k) != cp.KeyLen {
		return nil, fmt.Errorf("%w: dir requires a %d byte key, got %d", errors.ErrInvalidKeyLength, cp.KeyLen, len(k))
	}
	return append([]byte(nil), k...), nil
}

// ECDH-ES

func ephemeral(alg jwa.KeyAlgorithm, key any, opts *Options) (*jwk.KeyPair, crypto.PublicKey, error) {
	pub := publicKeyOf(key)
	curve, err := jwk.CurveOf(pub)
	if err != nil || curve == "" {
		return nil, nil, keyMismatch(alg, key)
	}
	if !curve.Supports(jwa.UsageKeyAgreement) {
		return nil, nil, fmt.Errorf("%w: %s cannot use a %s key", errors.ErrInvalidKeyType, alg, curve)
	}
	eph, err := ecdh.GenerateEphemeral(curve, opts.rand())
	if err != nil {
		return nil, nil, err
	}
	return eph, pub, nil
}

func agreeSender(alg jwa.KeyAlgorithm, algID string, keyLen int, key any, opts *Options) ([]byte, Params, error) {
	eph, pub, err := ephemeral(alg, key, opts)
	if err != nil {
		return nil, Params{}, err
	}
	var apu, apv []byte
	if opts != nil {
		apu, apv = opts.APU, opts.APV
	}
	derived, err := ecdh.Agree(eph.PrivateKey, pub, algID, apu, apv, keyLen)
	if err != nil {
		return nil, Params{}, err
	}
	epk, err := eph.PublicJWK()
	if err != nil {
		return nil, Params{}, err
	}
	return derived, Params{EPK: epk, APU: apu, APV: apv}, nil
}

func agreeRecipient(alg jwa.KeyAlgorithm, algID string, keyLen int, key any, params *Params) ([]byte, error) {
	if params.EPK == nil {
		return nil, fmt.Errorf("%w: %s requires an epk header", errors.ErrMalformedJWE, alg)
	}
	if params.EPK.IsPrivate() {
		return nil, fmt.Errorf("%w: epk must not contain private members", errors.ErrMalformedJWE)
	}
	if params.EPK.IsSymmetric() || params.EPK.KeyType() == jwa.KeyTypeRSA {
		return nil, fmt.Errorf("%w: epk must be an EC or OKP key", errors.ErrMalformedJWE)
	}
	curve, err := jwk.CurveOf(key)
	if err != nil || curve == "" {
		return nil, keyMismatch(alg, key)
	}
	if !curve.Supports(jwa.UsageKeyAgreement) {
		return nil, fmt.Errorf("%w: %s cannot use a %s key", errors.ErrInvalidKeyType, alg, curve)
	}
	epkCurve, err := params.EPK.Curve()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrKeyAgreementFailed, err)
	}
	if epkCurve != curve {
		return nil, fmt.Errorf("%w: epk curve %s does not match key curve %s", errors.ErrKeyAgreementFailed, epkCurve, curve)
	}
	epk, err := params.EPK.ToPublicKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrKeyAgreementFailed, err)
	}
	return ecdh.Agree(key, epk, algID, params.APU, params.APV, keyLen)
}

func wrapECDHES(alg jwa.KeyAlgorithm, enc jwa.ContentEncryption, cp jwa.ContentParams, key any, opts *Options) (*Wrapped, error) {
	if opts != nil && opts.CEK != nil {
		return nil, fmt.Errorf("%w: ECDH-ES cannot share a message with another direct recipient", errors.ErrInvalidArgument)
	}
	cek, params, err := agreeSender(alg, enc.String(), cp.KeyLen, key, opts)
	if err != nil {
		return nil, err
	}
	return &Wrapped{CEK: cek, Params: params}, nil
}

func unwrapECDHES(alg jwa.KeyAlgorithm, enc jwa.ContentEncryption, cp jwa.ContentParams, key any, encryptedKey []byte, params *Params) ([]byte, error) {
	if len(encryptedKey) != 0 {
		return nil, fmt.Errorf("%w: %s requires an empty encrypted key", errors.ErrMalformedJWE, alg)
	}
	return agreeRecipient(alg, enc.String(), cp.KeyLen, key, params)
}

func wrapECDHESKW(alg jwa.KeyAlgorithm, kp jwa.KeyParams, key any, opts *Options, w *Wrapped) error {
	kek, params, err := agreeSender(alg, alg.String(), kp.WrapKeyLen, key, opts)
	if err != nil {
		return err
	}
	defer zeroize.Bytes(kek)
	ek, err := wrapping.AESKeyWrap(kek, w.CEK)
	if err != nil {
		return err
	}
	w.EncryptedKey, w.Params = ek, params
	return nil
}

func unwrapECDHESKW(alg jwa.KeyAlgorithm, kp jwa.KeyParams, key any, encryptedKey []byte, params *Params) ([]byte, error) {
	kek, err := agreeRecipient(alg, alg.String(), kp.WrapKeyLen, key, params)
	if err != nil {
		return nil, err
	}
	defer zeroize.Bytes(kek)
	return wrapping.AESKeyUnwrap(kek, encryptedKey)
}

// RSA

func rsaPublic(alg jwa.KeyAlgorithm, key any) (*rsa.PublicKey, error) {
	pub, ok := publicKeyOf(key).(*rsa.PublicKey)
	if !ok {
		return nil, keyMismatch(alg, key)
	}
	if pub.N.BitLen() < jwk.MinRSABits {
		return nil, fmt.Errorf("%w: RSA keys must be at least %d bits", errors.ErrInvalidKeyLength, jwk.MinRSABits)
	}
	return pub, nil
}

func rsaPrivate(alg jwa.KeyAlgorithm, key any) (*rsa.PrivateKey, error) {
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, keyMismatch(alg, key)
	}
	if priv.N.BitLen() < jwk.MinRSABits {
		return nil, fmt.Errorf("%w: RSA keys must be at least %d bits", errors.ErrInvalidKeyLength, jwk.MinRSABits)
	}
	return priv, nil
}

func wrapRSA15(key any, opts *Options, w *Wrapped) error {
	pub, err := rsaPublic(jwa.RSA1_5, key)
	if err != nil {
		return err
	}
	w.EncryptedKey, err = wrapping.RSA1_5Wrap(pub, w.CEK, opts.rand())
	return err
}

func unwrapRSA15(alg jwa.KeyAlgorithm, cp jwa.ContentParams, key any, encryptedKey []byte, opts *Options) ([]byte, error) {
	priv, err := rsaPrivate(alg, key)
	if err != nil {
		return nil, err
	}
	return wrapping.RSA1_5Unwrap(priv, encryptedKey, cp.KeyLen, opts.rand())
}

func wrapRSAOAEP(alg jwa.KeyAlgorithm, kp jwa.KeyParams, key any, opts *Options, w *Wrapped) error {
	pub, err := rsaPublic(alg, key)
	if err != nil {
		return err
	}
	w.EncryptedKey, err = wrapping.RSAOAEPWrap(pub, kp.Hash, w.CEK, opts.rand())
	return err
}

func unwrapRSAOAEP(alg jwa.KeyAlgorithm, kp jwa.KeyParams, key any, encryptedKey []byte) ([]byte, error) {
	priv, err := rsaPrivate(alg, key)
	if err != nil {
		return nil, err
	}
	return wrapping.RSAOAEPUnwrap(priv, kp.Hash, encryptedKey)
}

// PBES2

func wrapPBES2(alg jwa.KeyAlgorithm, kp jwa.KeyParams, key any, opts *Options, w *Wrapped) error {
	password, err := symmetricKey(alg, key)
	if err != nil {
		return err
	}
	p2c := jwa.DefaultPBES2Iterations
	if opts != nil && opts.P2C != 0 {
		p2c = opts.P2C
	}
	if err := opts.policy().CheckPBES2Iterations(p2c); err != nil {
		return err
	}
	p2s := make([]byte, DefaultPBES2SaltSize)
	if _, err := io.ReadFull(opts.rand(), p2s); err != nil {
		return fmt.Errorf("keymgmt: failed to read random bytes: %w", err)
	}
	kek, err := wrapping.PBES2DeriveKey(password, alg.String(), p2s, p2c, kp.WrapKeyLen, kp.Hash)
	if err != nil {
		return err
	}
	defer zeroize.Bytes(kek)
	ek, err := wrapping.AESKeyWrap(kek, w.CEK)
	if err != nil {
		return err
	}
	w.EncryptedKey = ek
	w.Params = Params{P2S: p2s, P2C: p2c}
	return nil
}

func unwrapPBES2(alg jwa.KeyAlgorithm, kp jwa.KeyParams, key any, encryptedKey []byte, params *Params, opts *Options) ([]byte, error) {
	password, err := symmetricKey(alg, key)
	if err != nil {
		return nil, err
	}
	if params.P2S == nil || params.P2C == 0 {
		return nil, fmt.Errorf("%w: %s requires p2s and p2c headers", errors.ErrMalformedJWE, alg)
	}
	if err := opts.policy().CheckPBES2Iterations(params.P2C); err != nil {
		return nil, err
	}
	kek, err := wrapping.PBES2DeriveKey(password, alg.String(), params.P2S, params.P2C, kp.WrapKeyLen, kp.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedJWE, err)
	}
	defer zeroize.Bytes(kek)
	return wrapping.AESKeyUnwrap(kek, encryptedKey)
}

// AES key wrap

func kekOf(alg jwa.KeyAlgorithm, kp jwa.KeyParams, key any) ([]byte, error) {
	kek, err := symmetricKey(alg, key)
	if err != nil {
		return nil, err
	}
	if len(kek) != kp.WrapKeyLen {
		return nil, fmt.Errorf("%w: %s requires a %d byte key, got %d", errors.ErrInvalidKeyLength, alg, kp.WrapKeyLen, len(kek))
	}
	return kek, nil
}

func wrapAESKW(alg jwa.KeyAlgorithm, kp jwa.KeyParams, key any, w *Wrapped) error {
	kek, err := kekOf(alg, kp, key)
	if err != nil {
		return err
	}
	w.EncryptedKey, err = wrapping.AESKeyWrap(kek, w.CEK)
	return err
}

func unwrapAESKW(alg jwa.KeyAlgorithm, kp jwa.KeyParams, key any, encryptedKey []byte) ([]byte, error) {
	kek, err := kekOf(alg, kp, key)
	if err != nil {
		return nil, err
	}
	return wrapping.AESKeyUnwrap(kek, encryptedKey)
}

func wrapAESGCMKW(alg jwa.KeyAlgorithm, kp jwa.KeyParams, key any, opts *Options, w *Wrapped) error {
	kek, err := kekOf(alg, kp, key)
	if err != nil {
		return err
	}
	iv := make([]byte, wrapping.GCMIVSize)
	if _, err := io.ReadFull(opts.rand(), iv); err != nil {
		return fmt.Errorf("keymgmt: failed to read random bytes: %w", err)
	}
	ek, tag, err := wrapping.AESGCMKeyWrap(kek, iv, w.CEK)
	if err != nil {
		return err
	}
	w.EncryptedKey = ek
	w.Params = Params{IV: iv, Tag: tag}
	return nil
}

func unwrapAESGCMKW(alg jwa.KeyAlgorithm, kp jwa.KeyParams, key any, encryptedKey []byte, params *Params) ([]byte, error) {
	kek, err := kekOf(alg, kp, key)
	if err != nil {
		return nil, err
	}
	if params.IV == nil || params.Tag == nil {
		return nil, fmt.Errorf("%w: %s requires iv and tag headers", errors.ErrMalformedJWE, alg)
	}
	return wrapping.AESGCMKeyUnwrap(kek, params.IV, params.Tag, encryptedKey)
}
