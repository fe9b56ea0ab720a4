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

package ecdh

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"math/big"
	"testing"

	josecipher "github.com/go-jose/go-jose/v4/cipher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// RFC 7518 Appendix C keys.
const (
	aliceJWK = `{"kty":"EC","crv":"P-256",
		"x":"gI0GAILBdu7T53akrFmMyGcsF3n5dO7MmwNBHKW5SV0",
		"y":"SLW_xSffzlPWrHEVI30DHM_4egVwt3NQqeUD7nMFpps",
		"d":"0_NxaRPUMQoAJt50Gz8YiTr8gRTwyEaCumd-MToTmIo"}`
	bobJWK = `{"kty":"EC","crv":"P-256",
		"x":"weNJy2HscCSM6AEDTDg04biOvhFhyyWvOHQfeF_PxMQ",
		"y":"e8lnCO-AlStT-NJVX-crhB7QRYhiix03illJOVAOyck",
		"d":"VEmDZpDXXK8p8N0Cndsxs924q6nS1RXFASRl6BfUqdw"}`
)

func parsePrivate(t *testing.T, s string) *ecdsa.PrivateKey {
	t.Helper()
	k, err := jwk.Parse([]byte(s))
	require.NoError(t, err)
	priv, err := k.ToPrivateKey()
	require.NoError(t, err)
	return priv.(*ecdsa.PrivateKey)
}

func TestRFC7518AppendixC(t *testing.T) {
	alice := parsePrivate(t, aliceJWK)
	bob := parsePrivate(t, bobJWK)

	expected := []byte{86, 170, 141, 234, 248, 35, 109, 32, 92, 34, 40, 205, 113, 167, 16, 26}

	key, err := Agree(alice, &bob.PublicKey, "A128GCM", []byte("Alice"), []byte("Bob"), 16)
	require.NoError(t, err)
	assert.Equal(t, expected, key)

	key, err = Agree(bob, &alice.PublicKey, "A128GCM", []byte("Alice"), []byte("Bob"), 16)
	require.NoError(t, err)
	assert.Equal(t, expected, key)
}

func TestDeriveKeyMatchesGoJose(t *testing.T) {
	for _, curve := range []elliptic.Curve{elliptic.P256(), elliptic.P384(), elliptic.P521()} {
		t.Run(curve.Params().Name, func(t *testing.T) {
			crv := jwa.NamedCurve(curve.Params().Name)
			a, err := GenerateEphemeral(crv, nil)
			require.NoError(t, err)
			b, err := GenerateEphemeral(crv, nil)
			require.NoError(t, err)

			for _, size := range []int{16, 24, 32, 64} {
				got, err := Agree(a.PrivateKey, b.PublicKey, "ECDH-ES+A256KW", []byte("apu"), nil, size)
				require.NoError(t, err)

				want := josecipher.DeriveECDHES("ECDH-ES+A256KW", []byte("apu"), nil,
					a.PrivateKey.(*ecdsa.PrivateKey), b.PublicKey.(*ecdsa.PublicKey), size)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestSharedSecretAllCurves(t *testing.T) {
	for _, crv := range []jwa.NamedCurve{jwa.P256, jwa.P384, jwa.P521, jwa.Secp256k1, jwa.X25519, jwa.X448} {
		t.Run(crv.String(), func(t *testing.T) {
			a, err := GenerateEphemeral(crv, nil)
			require.NoError(t, err)
			b, err := GenerateEphemeral(crv, nil)
			require.NoError(t, err)

			z1, err := SharedSecret(a.PrivateKey, b.PublicKey)
			require.NoError(t, err)
			z2, err := SharedSecret(b.PrivateKey, a.PublicKey)
			require.NoError(t, err)
			assert.Equal(t, z1, z2)

			p, _ := crv.Params()
			assert.Len(t, z1, p.Size)
		})
	}
}

func TestGenerateEphemeralRejectsSignatureCurves(t *testing.T) {
	for _, crv := range []jwa.NamedCurve{jwa.Ed25519, jwa.Ed448} {
		_, err := GenerateEphemeral(crv, nil)
		assert.ErrorIs(t, err, errors.ErrUnsupportedAlgorithm, crv)
	}
}

func TestSharedSecretRejectsOffCurvePoint(t *testing.T) {
	alice := parsePrivate(t, aliceJWK)
	bad := &ecdsa.PublicKey{Curve: elliptic.P256(), X: big.NewInt(1), Y: big.NewInt(1)}

	_, err := SharedSecret(alice, bad)
	assert.ErrorIs(t, err, errors.ErrKeyAgreementFailed)
}

func TestSharedSecretKeyMismatch(t *testing.T) {
	p256, _ := GenerateEphemeral(jwa.P256, nil)
	p384, _ := GenerateEphemeral(jwa.P384, nil)
	x25519, _ := GenerateEphemeral(jwa.X25519, nil)
	x448, _ := GenerateEphemeral(jwa.X448, nil)

	_, err := SharedSecret(p256.PrivateKey, p384.PublicKey)
	assert.ErrorIs(t, err, errors.ErrKeyAgreementFailed)

	_, err = SharedSecret(x25519.PrivateKey, x448.PublicKey)
	assert.ErrorIs(t, err, errors.ErrInvalidKeyType)

	_, err = SharedSecret(x448.PrivateKey, p256.PublicKey)
	assert.ErrorIs(t, err, errors.ErrInvalidKeyType)

	_, err = SharedSecret([]byte("secret"), p256.PublicKey)
	assert.ErrorIs(t, err, errors.ErrInvalidKeyType)

	_, err = SharedSecret(nil, p256.PublicKey)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestX25519LowOrderPoint(t *testing.T) {
	a, err := GenerateEphemeral(jwa.X25519, nil)
	require.NoError(t, err)

	// The all-zero u-coordinate is a point of small order.
	k, err := jwk.Parse([]byte(`{"kty":"OKP","crv":"X25519","x":"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"}`))
	require.NoError(t, err)
	pub, err := k.ToPublicKey()
	require.NoError(t, err)

	_, err = SharedSecret(a.PrivateKey, pub)
	assert.ErrorIs(t, err, errors.ErrKeyAgreementFailed)
}

func TestDeriveKeyArguments(t *testing.T) {
	_, err := DeriveKey(nil, "A128GCM", nil, nil, 16)
	assert.ErrorIs(t, err, errors.ErrKeyAgreementFailed)

	_, err = DeriveKey([]byte{1}, "A128GCM", nil, nil, 0)
	assert.ErrorIs(t, err, errors.ErrInvalidKeyLength)

	_, err = DeriveKey([]byte{1}, "A128GCM", nil, nil, MaxKeyLen+1)
	assert.ErrorIs(t, err, errors.ErrInvalidKeyLength)

	k1, err := DeriveKey([]byte{1, 2, 3}, "A128GCM", nil, nil, 16)
	require.NoError(t, err)
	k2, err := DeriveKey([]byte{1, 2, 3}, "A256GCM", nil, nil, 16)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}
