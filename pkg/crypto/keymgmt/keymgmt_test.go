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
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

var testRSAKey *rsa.PrivateKey

func rsaKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	if testRSAKey == nil {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		testRSAKey = k
	}
	return testRSAKey
}

// keysFor returns the wrapping and unwrapping key for alg.
func keysFor(t *testing.T, alg jwa.KeyAlgorithm, enc jwa.ContentEncryption, crv jwa.NamedCurve) (any, any) {
	t.Helper()
	p, _ := alg.Params()
	switch p.Family {
	case jwa.FamilyDirect:
		k := bytes.Repeat([]byte{0x11}, enc.KeyLen())
		return k, k
	case jwa.FamilyECDHES, jwa.FamilyECDHESKW:
		kp, err := jwk.GenerateKeyPair(crv)
		require.NoError(t, err)
		return kp.PublicKey, kp.PrivateKey
	case jwa.FamilyRSA15, jwa.FamilyRSAOAEP:
		k := rsaKey(t)
		return &k.PublicKey, k
	case jwa.FamilyPBES2:
		pw := []byte("correct horse battery staple")
		return pw, pw
	default:
		k := bytes.Repeat([]byte{0x22}, p.WrapKeyLen)
		return k, k
	}
}

func TestWrapUnwrapAllAlgorithms(t *testing.T) {
	opts := &Options{P2C: jwa.MinPBES2Iterations}

	for _, alg := range jwa.KeyAlgorithms {
		for _, enc := range []jwa.ContentEncryption{jwa.A128GCM, jwa.A256GCM, jwa.A256CBCHS512} {
			t.Run(alg.String()+"/"+enc.String(), func(t *testing.T) {
				wrapKey, unwrapKey := keysFor(t, alg, enc, jwa.P256)

				w, err := Wrap(alg, enc, wrapKey, opts)
				require.NoError(t, err)
				assert.Len(t, w.CEK, enc.KeyLen())
				if alg.IsDirect() {
					assert.Empty(t, w.EncryptedKey)
				} else {
					assert.NotEmpty(t, w.EncryptedKey)
				}

				cek, err := Unwrap(alg, enc, unwrapKey, w.EncryptedKey, &w.Params, opts)
				require.NoError(t, err)
				assert.Equal(t, w.CEK, cek)
			})
		}
	}
}

func TestECDHESAllCurves(t *testing.T) {
	for _, crv := range []jwa.NamedCurve{jwa.P256, jwa.P384, jwa.P521, jwa.Secp256k1, jwa.X25519, jwa.X448} {
		for _, alg := range []jwa.KeyAlgorithm{jwa.ECDHES, jwa.ECDHESA128KW, jwa.ECDHESA256KW} {
			t.Run(crv.String()+"/"+alg.String(), func(t *testing.T) {
				pub, priv := keysFor(t, alg, jwa.A256GCM, crv)
				opts := &Options{APU: []byte("alice"), APV: []byte("bob")}

				w, err := Wrap(alg, jwa.A256GCM, pub, opts)
				require.NoError(t, err)
				require.NotNil(t, w.Params.EPK)
				assert.False(t, w.Params.EPK.IsPrivate())
				assert.Equal(t, crv.String(), w.Params.EPK.Crv)
				assert.Equal(t, []byte("alice"), w.Params.APU)

				cek, err := Unwrap(alg, jwa.A256GCM, priv, w.EncryptedKey, &w.Params, nil)
				require.NoError(t, err)
				assert.Equal(t, w.CEK, cek)

				// Party info is bound into the derived key.
				params := w.Params
				params.APV = []byte("mallory")
				cek, err = Unwrap(alg, jwa.A256GCM, priv, w.EncryptedKey, &params, nil)
				if alg.IsDirect() {
					require.NoError(t, err)
					assert.NotEqual(t, w.CEK, cek)
				} else {
					assert.ErrorIs(t, err, errors.ErrUnwrapFailed)
				}
			})
		}
	}
}

func TestWrapWithPresetCEK(t *testing.T) {
	cek := bytes.Repeat([]byte{0x7f}, 32)
	opts := &Options{CEK: cek}

	w, err := Wrap(jwa.A256KW, jwa.A256GCM, bytes.Repeat([]byte{1}, 32), opts)
	require.NoError(t, err)
	assert.Equal(t, cek, w.CEK)

	pub, _ := keysFor(t, jwa.ECDHES, jwa.A256GCM, jwa.P256)
	_, err = Wrap(jwa.ECDHES, jwa.A256GCM, pub, opts)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	_, err = Wrap(jwa.Direct, jwa.A256GCM, bytes.Repeat([]byte{2}, 32), opts)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	w, err = Wrap(jwa.Direct, jwa.A256GCM, cek, opts)
	require.NoError(t, err)
	assert.Equal(t, cek, w.CEK)

	_, err = Wrap(jwa.A256KW, jwa.A256GCM, bytes.Repeat([]byte{1}, 32), &Options{CEK: cek[:16]})
	assert.ErrorIs(t, err, errors.ErrInvalidKeyLength)
}

func TestKeyTypeMismatch(t *testing.T) {
	rsaPriv := rsaKey(t)
	ed, err := jwk.GenerateKeyPair(jwa.Ed25519)
	require.NoError(t, err)
	ecPub, ecPriv := keysFor(t, jwa.ECDHES, jwa.A128GCM, jwa.P256)

	tests := []struct {
		alg jwa.KeyAlgorithm
		key any
	}{
		{jwa.A128KW, &rsaPriv.PublicKey},
		{jwa.RSAOAEP256, ecPub},
		{jwa.RSA1_5, ecPub},
		{jwa.RSAOAEP, bytes.Repeat([]byte{1}, 16)},
		{jwa.ECDHES, &rsaPriv.PublicKey},
		{jwa.ECDHES, ed.PublicKey},
		{jwa.ECDHESA128KW, bytes.Repeat([]byte{1}, 16)},
		{jwa.Direct, ed.PrivateKey},
	}
	for _, tt := range tests {
		_, err := Wrap(tt.alg, jwa.A128GCM, tt.key, nil)
		assert.ErrorIs(t, err, errors.ErrInvalidKeyType, "%s with %T", tt.alg, tt.key)
	}

	_, err = Unwrap(jwa.RSAOAEP, jwa.A128GCM, ecPriv, make([]byte, 256), nil, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidKeyType)
}

func TestInvalidKeyLengths(t *testing.T) {
	_, err := Wrap(jwa.A256KW, jwa.A128GCM, make([]byte, 16), nil)
	assert.ErrorIs(t, err, errors.ErrInvalidKeyLength)

	_, err = Wrap(jwa.A128GCMKW, jwa.A128GCM, make([]byte, 32), nil)
	assert.ErrorIs(t, err, errors.ErrInvalidKeyLength)

	_, err = Wrap(jwa.Direct, jwa.A256CBCHS512, make([]byte, 32), nil)
	assert.ErrorIs(t, err, errors.ErrInvalidKeyLength)

	small, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	_, err = Wrap(jwa.RSAOAEP256, jwa.A128GCM, &small.PublicKey, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidKeyLength)
}

func TestUnwrapWrongKey(t *testing.T) {
	kek := bytes.Repeat([]byte{3}, 16)
	w, err := Wrap(jwa.A128KW, jwa.A128GCM, kek, nil)
	require.NoError(t, err)

	_, err = Unwrap(jwa.A128KW, jwa.A128GCM, bytes.Repeat([]byte{4}, 16), w.EncryptedKey, nil, nil)
	assert.ErrorIs(t, err, errors.ErrUnwrapFailed)

	// The CEK length must match the content encryption.
	_, err = Unwrap(jwa.A128KW, jwa.A256GCM, kek, w.EncryptedKey, nil, nil)
	assert.ErrorIs(t, err, errors.ErrUnwrapFailed)
}

func TestUnwrapMissingParams(t *testing.T) {
	_, priv := keysFor(t, jwa.ECDHES, jwa.A128GCM, jwa.X25519)
	_, err := Unwrap(jwa.ECDHES, jwa.A128GCM, priv, nil, &Params{}, nil)
	assert.ErrorIs(t, err, errors.ErrMalformedJWE)

	_, err = Unwrap(jwa.A128GCMKW, jwa.A128GCM, make([]byte, 16), make([]byte, 16), &Params{}, nil)
	assert.ErrorIs(t, err, errors.ErrMalformedJWE)

	_, err = Unwrap(jwa.PBES2HS256A128KW, jwa.A128GCM, []byte("pw"), make([]byte, 24), &Params{}, nil)
	assert.ErrorIs(t, err, errors.ErrMalformedJWE)

	_, err = Unwrap(jwa.Direct, jwa.A128GCM, make([]byte, 16), []byte{1}, nil, nil)
	assert.ErrorIs(t, err, errors.ErrMalformedJWE)
}

func TestECDHESCurveMismatch(t *testing.T) {
	pub, _ := keysFor(t, jwa.ECDHES, jwa.A128GCM, jwa.P256)
	_, other := keysFor(t, jwa.ECDHES, jwa.A128GCM, jwa.P384)

	w, err := Wrap(jwa.ECDHES, jwa.A128GCM, pub, nil)
	require.NoError(t, err)

	_, err = Unwrap(jwa.ECDHES, jwa.A128GCM, other, nil, &w.Params, nil)
	assert.ErrorIs(t, err, errors.ErrKeyAgreementFailed)

	priv := w.Params.EPK
	priv.D = "AAAA"
	_, err = Unwrap(jwa.ECDHES, jwa.A128GCM, other, nil, &Params{EPK: priv}, nil)
	assert.ErrorIs(t, err, errors.ErrMalformedJWE)
}

func TestPBES2IterationBounds(t *testing.T) {
	pw := []byte("password")

	_, err := Wrap(jwa.PBES2HS256A128KW, jwa.A128GCM, pw, &Options{P2C: 10})
	assert.ErrorIs(t, err, errors.ErrUnsupportedAlgorithm)

	w, err := Wrap(jwa.PBES2HS256A128KW, jwa.A128GCM, pw, &Options{P2C: 2000})
	require.NoError(t, err)
	assert.Equal(t, 2000, w.Params.P2C)
	assert.Len(t, w.Params.P2S, DefaultPBES2SaltSize)

	strict := &jwa.Policy{MaxPBES2Iterations: 1500}
	_, err = Unwrap(jwa.PBES2HS256A128KW, jwa.A128GCM, pw, w.EncryptedKey, &w.Params, &Options{Policy: strict})
	assert.ErrorIs(t, err, errors.ErrUnsupportedAlgorithm)

	_, err = Unwrap(jwa.PBES2HS256A128KW, jwa.A128GCM, []byte("wrong"), w.EncryptedKey, &w.Params, nil)
	assert.ErrorIs(t, err, errors.ErrUnwrapFailed)
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := Wrap("none", jwa.A128GCM, nil, nil)
	assert.ErrorIs(t, err, errors.ErrUnsupportedAlgorithm)

	_, err = Unwrap(jwa.A128KW, "A1GCM", nil, nil, nil, nil)
	assert.ErrorIs(t, err, errors.ErrUnsupportedAlgorithm)
}
