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
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

func TestGenerateKeyPairRoundTrip(t *testing.T) {
	for _, crv := range jwa.Curves {
		t.Run(crv.String(), func(t *testing.T) {
			kp, err := GenerateKeyPair(crv)
			require.NoError(t, err)
			assert.Equal(t, crv, kp.Curve)

			exported, err := kp.JWK()
			require.NoError(t, err)
			assert.Equal(t, crv.String(), exported.Crv)

			data, err := json.Marshal(kp)
			require.NoError(t, err)

			parsed, err := Parse(data)
			require.NoError(t, err)
			assert.Equal(t, exported, parsed)

			back, err := parsed.KeyPair()
			require.NoError(t, err)
			assert.Equal(t, crv, back.Curve)

			assert.IsType(t, kp.PrivateKey, back.PrivateKey)
			assert.IsType(t, kp.PublicKey, back.PublicKey)

			reexported, err := back.JWK()
			require.NoError(t, err)
			assert.Equal(t, exported, reexported)

			pub, err := kp.PublicJWK()
			require.NoError(t, err)
			assert.Empty(t, pub.D)
			assert.Equal(t, exported.X, pub.X)
		})
	}
}

func TestGenerateKeyPairUnsupportedCurve(t *testing.T) {
	_, err := GenerateKeyPair("P-224")
	assert.ErrorIs(t, err, errors.ErrUnsupportedCurve)
}

func TestRawKeyPair(t *testing.T) {
	sizes := map[jwa.NamedCurve][2]int{
		jwa.P256:      {65, 32},
		jwa.P384:      {97, 48},
		jwa.P521:      {133, 66},
		jwa.Secp256k1: {65, 32},
		jwa.Ed25519:   {32, 32},
		jwa.Ed448:     {57, 57},
		jwa.X25519:    {32, 32},
		jwa.X448:      {56, 56},
	}
	for crv, want := range sizes {
		t.Run(crv.String(), func(t *testing.T) {
			kp, err := GenerateKeyPair(crv)
			require.NoError(t, err)
			raw, err := kp.Raw()
			require.NoError(t, err)
			assert.Equal(t, crv.String(), raw.Curve)

			pub, err := base64.RawURLEncoding.DecodeString(raw.PublicKey)
			require.NoError(t, err)
			priv, err := base64.RawURLEncoding.DecodeString(raw.PrivateKey)
			require.NoError(t, err)
			assert.Len(t, pub, want[0])
			assert.Len(t, priv, want[1])
		})
	}
}

func TestGenerateKeyPairDeterministicReader(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 128)
	a, err := GenerateKeyPairWithReader(jwa.Ed448, bytes.NewReader(seed))
	require.NoError(t, err)
	b, err := GenerateKeyPairWithReader(jwa.Ed448, bytes.NewReader(seed))
	require.NoError(t, err)

	ja, _ := a.JWK()
	jb, _ := b.JWK()
	assert.Equal(t, ja, jb)

	c, err := GenerateKeyPairWithReader(jwa.Secp256k1, bytes.NewReader(seed))
	require.NoError(t, err)
	jc, _ := c.JWK()
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(seed[:32]), jc.D)
}

func TestGenerateRSAKeyMinimumSize(t *testing.T) {
	_, err := GenerateRSAKey(1024, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidKeyLength)
}

func TestGenerateSymmetricKey(t *testing.T) {
	key, err := GenerateSymmetricKey(32, nil)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	_, err = GenerateSymmetricKey(0, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidKeyLength)
}

func TestCurveOf(t *testing.T) {
	for _, crv := range jwa.Curves {
		kp, err := GenerateKeyPair(crv)
		require.NoError(t, err)

		got, err := CurveOf(kp.PrivateKey)
		require.NoError(t, err)
		assert.Equal(t, crv, got)

		got, err = CurveOf(kp.PublicKey)
		require.NoError(t, err)
		assert.Equal(t, crv, got)
	}

	got, err := CurveOf([]byte("k"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestKeyPairFromSymmetricJWK(t *testing.T) {
	j, _ := FromSymmetricKey([]byte("0123456789abcdef"), "")
	_, err := j.KeyPair()
	assert.ErrorIs(t, err, errors.ErrInvalidKeyType)
}
