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

package jwe

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"testing"

	jose "github.com/go-jose/go-jose/v4"
	jwxjwa "github.com/lestrrat-go/jwx/v3/jwa"
	jwxjwe "github.com/lestrrat-go/jwx/v3/jwe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-josekit/pkg/encoding/header"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

var testRSAKey *rsa.PrivateKey

func rsaKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	if testRSAKey == nil {
		key, err := jwk.GenerateRSAKey(2048, nil)
		require.NoError(t, err)
		testRSAKey = key
	}
	return testRSAKey
}

func keyPair(t *testing.T, curve jwa.NamedCurve) *jwk.KeyPair {
	t.Helper()
	kp, err := jwk.GenerateKeyPair(curve)
	require.NoError(t, err)
	return kp
}

func symmetric(t *testing.T, size int) []byte {
	t.Helper()
	key, err := jwk.GenerateSymmetricKey(size, nil)
	require.NoError(t, err)
	return key
}

func decryptWith(t *testing.T, key any, data []byte) (*Decrypted, error) {
	t.Helper()
	d, err := NewDecrypter(key, nil)
	require.NoError(t, err)
	return d.DecryptBytes(data)
}

func TestEncryptGeneral_TwoRecipients(t *testing.T) {
	alice := keyPair(t, jwa.X25519)
	bob := keyPair(t, jwa.X25519)

	e, err := NewEncrypter(jwa.A256GCM, []Recipient{
		{Algorithm: jwa.ECDHESA256KW, Key: alice.PublicKey},
		{Algorithm: jwa.ECDHESA256KW, Key: bob.PublicKey},
	}, nil)
	require.NoError(t, err)

	out, err := e.EncryptGeneral([]byte("secret"))
	require.NoError(t, err)

	j, err := Parse(out)
	require.NoError(t, err)
	require.Len(t, j.Recipients, 2)
	assert.Equal(t, header.Parameters{"enc": "A256GCM"}, j.Protected)
	for _, r := range j.Recipients {
		assert.Equal(t, "ECDH-ES+A256KW", r.Header["alg"])
		assert.NotEmpty(t, r.Header["kid"])
		assert.Contains(t, r.Header, "epk")
		assert.Len(t, r.EncryptedKey, 40)
	}

	for i, kp := range []*jwk.KeyPair{alice, bob} {
		got, err := decryptWith(t, kp.PrivateKey, out)
		require.NoError(t, err)
		assert.Equal(t, []byte("secret"), got.Plaintext)
		assert.Equal(t, i, got.Recipient)
		assert.Equal(t, "ECDH-ES+A256KW", got.Header["alg"])
	}

	t.Run("NoMatchingRecipient", func(t *testing.T) {
		carol := keyPair(t, jwa.X25519)
		_, err := decryptWith(t, carol.PrivateKey, out)
		assert.ErrorIs(t, err, errors.ErrNoMatchingRecipient)

		p256 := keyPair(t, jwa.P256)
		_, err = decryptWith(t, p256.PrivateKey, out)
		assert.ErrorIs(t, err, errors.ErrNoMatchingRecipient)

		_, err = decryptWith(t, rsaKey(t), out)
		assert.ErrorIs(t, err, errors.ErrNoMatchingRecipient)
	})

	t.Run("Tampered", func(t *testing.T) {
		for _, field := range []string{"ciphertext", "tag", "iv", "protected"} {
			j, err := Parse(out)
			require.NoError(t, err)
			switch field {
			case "ciphertext":
				j.Ciphertext[0] ^= 1
			case "tag":
				j.Tag[0] ^= 1
			case "iv":
				j.IV[0] ^= 1
			case "protected":
				j.protectedRaw = header.Encode([]byte(`{"enc":"A256GCM","x":1}`))
			}
			d, err := NewDecrypter(bob.PrivateKey, nil)
			require.NoError(t, err)
			_, err = d.Decrypt(j)
			assert.ErrorIs(t, err, errors.ErrAuthenticationFailed, field)
		}
	})
}

type testKeys struct {
	encrypt any
	decrypt any
}

func keysFor(t *testing.T, alg jwa.KeyAlgorithm, enc jwa.ContentEncryption) testKeys {
	t.Helper()
	p, err := alg.Params()
	require.NoError(t, err)
	switch p.Family {
	case jwa.FamilyDirect:
		k := symmetric(t, enc.KeyLen())
		return testKeys{k, k}
	case jwa.FamilyECDHES, jwa.FamilyECDHESKW:
		kp := keyPair(t, jwa.P256)
		return testKeys{kp.PublicKey, kp.PrivateKey}
	case jwa.FamilyRSA15, jwa.FamilyRSAOAEP:
		key := rsaKey(t)
		return testKeys{&key.PublicKey, key}
	case jwa.FamilyPBES2:
		pw := []byte("correct horse battery staple")
		return testKeys{pw, pw}
	default:
		k := symmetric(t, p.WrapKeyLen)
		return testKeys{k, k}
	}
}

func TestRoundTrip_AllAlgorithms(t *testing.T) {
	plaintext := []byte("The true sign of intelligence is not knowledge but imagination.")
	opts := &EncryptOptions{P2C: jwa.MinPBES2Iterations}

	for _, alg := range jwa.KeyAlgorithms {
		for _, enc := range []jwa.ContentEncryption{jwa.A128GCM, jwa.A256CBCHS512} {
			t.Run(alg.String()+"/"+enc.String(), func(t *testing.T) {
				keys := keysFor(t, alg, enc)
				e, err := NewEncrypter(enc, []Recipient{{Algorithm: alg, Key: keys.encrypt}}, opts)
				require.NoError(t, err)

				compact, err := e.EncryptCompact(plaintext)
				require.NoError(t, err)
				got, err := decryptWith(t, keys.decrypt, []byte(compact))
				require.NoError(t, err)
				assert.Equal(t, plaintext, got.Plaintext)
				assert.Equal(t, alg.String(), got.Protected["alg"])

				flat, err := e.EncryptFlattened(plaintext)
				require.NoError(t, err)
				got, err = decryptWith(t, keys.decrypt, flat)
				require.NoError(t, err)
				assert.Equal(t, plaintext, got.Plaintext)
			})
		}
	}
}

func TestEncryptFlattened_UnprotectedAndAAD(t *testing.T) {
	key := symmetric(t, 16)
	e, err := NewEncrypter(jwa.A128CBCHS256, []Recipient{{Algorithm: jwa.A128KW, Key: key}}, &EncryptOptions{
		Protected:   header.Parameters{"cty": "text/plain"},
		Unprotected: header.Parameters{"x-app": "demo"},
		AAD:         []byte("bound context"),
	})
	require.NoError(t, err)

	out, err := e.EncryptFlattened([]byte("payload"))
	require.NoError(t, err)

	got, err := decryptWith(t, key, out)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got.Plaintext)
	assert.Equal(t, "text/plain", got.Protected["cty"])
	assert.Equal(t, "demo", got.Header["x-app"])

	j, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("bound context"), j.AAD)
	j.AAD = []byte("other context")
	d, err := NewDecrypter(key, nil)
	require.NoError(t, err)
	_, err = d.Decrypt(j)
	assert.ErrorIs(t, err, errors.ErrAuthenticationFailed)

	_, err = e.EncryptCompact([]byte("payload"))
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestDecrypt_TriesRecipientsWithoutKid(t *testing.T) {
	k1 := symmetric(t, 32)
	k2 := symmetric(t, 32)
	e, err := NewEncrypter(jwa.A256GCM, []Recipient{
		{Algorithm: jwa.A256KW, Key: k1},
		{Algorithm: jwa.A256KW, Key: k2},
	}, nil)
	require.NoError(t, err)
	out, err := e.EncryptGeneral([]byte("hello"))
	require.NoError(t, err)

	got, err := decryptWith(t, k2, out)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Recipient)
	assert.Equal(t, []byte("hello"), got.Plaintext)

	_, err = decryptWith(t, symmetric(t, 32), out)
	assert.ErrorIs(t, err, errors.ErrNoMatchingRecipient)

	_, err = decryptWith(t, symmetric(t, 16), out)
	assert.ErrorIs(t, err, errors.ErrNoMatchingRecipient)
}

func TestDecrypt_ConfirmedKidPropagatesUnwrapError(t *testing.T) {
	sender, err := jwk.FromSymmetricKey(symmetric(t, 32), "")
	require.NoError(t, err)
	sender.Kid = "shared-1"
	impostor, err := jwk.FromSymmetricKey(symmetric(t, 32), "")
	require.NoError(t, err)
	impostor.Kid = "shared-1"

	e, err := NewEncrypter(jwa.A256GCM, []Recipient{{Algorithm: jwa.A256KW, Key: sender}}, nil)
	require.NoError(t, err)
	out, err := e.EncryptGeneral([]byte("hello"))
	require.NoError(t, err)

	_, err = decryptWith(t, impostor, out)
	assert.ErrorIs(t, err, errors.ErrUnwrapFailed)

	got, err := decryptWith(t, sender, out)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got.Plaintext)
}

func TestNewEncrypter_DirectRecipient(t *testing.T) {
	dirKey := symmetric(t, 32)
	kwKey := symmetric(t, 32)

	_, err := NewEncrypter(jwa.A256GCM, []Recipient{
		{Algorithm: jwa.Direct, Key: dirKey},
		{Algorithm: jwa.Direct, Key: kwKey},
	}, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)

	e, err := NewEncrypter(jwa.A256GCM, []Recipient{
		{Algorithm: jwa.A256KW, Key: kwKey},
		{Algorithm: jwa.Direct, Key: dirKey},
	}, nil)
	require.NoError(t, err)
	out, err := e.EncryptGeneral([]byte("shared cek"))
	require.NoError(t, err)

	j, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "dir", j.Recipients[0].Header["alg"])
	assert.Empty(t, j.Recipients[0].EncryptedKey)

	got, err := decryptWith(t, dirKey, out)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Recipient)

	got, err = decryptWith(t, kwKey, out)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Recipient)
	assert.Equal(t, []byte("shared cek"), got.Plaintext)
}

func TestDIDComm(t *testing.T) {
	bob := keyPair(t, jwa.X25519)
	carol := keyPair(t, jwa.X25519)
	kids := []string{"did:example:carol#key-1", "did:example:bob#key-1"}

	e, err := NewEncrypter(jwa.A256CBCHS512, []Recipient{
		{Algorithm: jwa.ECDHESA256KW, Key: carol.PublicKey, KeyID: kids[0]},
		{Algorithm: jwa.ECDHESA256KW, Key: bob.PublicKey, KeyID: kids[1]},
	}, &EncryptOptions{DIDComm: true})
	require.NoError(t, err)
	out, err := e.EncryptGeneral([]byte(`{"type":"https://didcomm.org/basicmessage/2.0/message"}`))
	require.NoError(t, err)

	j, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, DIDCommEncryptedType, j.Protected["typ"])
	sum := sha256.Sum256([]byte("did:example:bob#key-1.did:example:carol#key-1"))
	assert.Equal(t, header.Encode(sum[:]), j.Protected["apv"])
	for _, r := range j.Recipients {
		assert.NotContains(t, r.Header, "apv")
	}

	bobJWK, err := jwk.FromPrivateKey(bob.PrivateKey)
	require.NoError(t, err)
	bobJWK.Kid = kids[1]
	got, err := decryptWith(t, bobJWK, out)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Recipient)
	assert.Equal(t, kids[1], got.Header["kid"])

	_, err = NewEncrypter(jwa.A256GCM, []Recipient{{Algorithm: jwa.A256KW, Key: symmetric(t, 32)}}, &EncryptOptions{DIDComm: true})
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
}

func TestKeyConfirmation(t *testing.T) {
	key := symmetric(t, 32)
	restricted, err := jwk.FromSymmetricKey(key, "A128KW")
	require.NoError(t, err)
	_, err = NewEncrypter(jwa.A256GCM, []Recipient{{Algorithm: jwa.A256KW, Key: restricted}}, nil)
	assert.ErrorIs(t, err, errors.ErrUnsupportedAlgorithmForKey)

	signing, err := jwk.FromSymmetricKey(key, "")
	require.NoError(t, err)
	signing.Use = jwk.UseSignature
	_, err = NewEncrypter(jwa.A256GCM, []Recipient{{Algorithm: jwa.A256KW, Key: signing}}, nil)
	assert.ErrorIs(t, err, errors.ErrUnsupportedAlgorithmForKey)

	e, err := NewEncrypter(jwa.A256GCM, []Recipient{{Algorithm: jwa.A256KW, Key: key}}, nil)
	require.NoError(t, err)
	compact, err := e.EncryptCompact([]byte("x"))
	require.NoError(t, err)
	_, err = decryptWith(t, signing, []byte(compact))
	assert.ErrorIs(t, err, errors.ErrUnsupportedAlgorithmForKey)

	fromAlg, err := jwk.FromSymmetricKey(key, "A256KW")
	require.NoError(t, err)
	e, err = NewEncrypter(jwa.A256GCM, []Recipient{{Key: fromAlg}}, nil)
	require.NoError(t, err)
	compact, err = e.EncryptCompact([]byte("x"))
	require.NoError(t, err)
	got, err := decryptWith(t, key, []byte(compact))
	require.NoError(t, err)
	assert.Equal(t, "A256KW", got.Protected["alg"])
}

func TestRecipientKeyType(t *testing.T) {
	kp, err := jwk.GenerateKeyPair(jwa.P256)
	require.NoError(t, err)
	ecJWK, err := kp.PublicJWK()
	require.NoError(t, err)

	tests := []struct {
		name string
		alg  jwa.KeyAlgorithm
		key  any
	}{
		{"RSA-OAEP-256 with EC JWK", jwa.RSAOAEP256, ecJWK},
		{"RSA1_5 with EC key", jwa.RSA1_5, kp.PublicKey},
		{"ECDH-ES with RSA key", jwa.ECDHES, &rsaKey(t).PublicKey},
		{"A256KW with EC key", jwa.A256KW, kp.PublicKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEncrypter(jwa.A256GCM, []Recipient{{Algorithm: tt.alg, Key: tt.key}}, nil)
			require.NoError(t, err)
			_, err = e.EncryptCompact([]byte("x"))
			assert.ErrorIs(t, err, errors.ErrInvalidKeyType)
			assert.NotErrorIs(t, err, errors.ErrUnsupportedAlgorithmForKey)
		})
	}
}

func TestPolicy(t *testing.T) {
	policy, err := jwa.NewPolicy(nil, []jwa.KeyAlgorithm{jwa.A256KW}, []jwa.ContentEncryption{jwa.A256GCM})
	require.NoError(t, err)

	_, err = NewEncrypter(jwa.A128GCM, []Recipient{{Algorithm: jwa.A256KW, Key: symmetric(t, 32)}}, &EncryptOptions{Policy: policy})
	assert.ErrorIs(t, err, errors.ErrUnsupportedAlgorithm)
	_, err = NewEncrypter(jwa.A256GCM, []Recipient{{Algorithm: jwa.A128KW, Key: symmetric(t, 16)}}, &EncryptOptions{Policy: policy})
	assert.ErrorIs(t, err, errors.ErrUnsupportedAlgorithm)

	key := symmetric(t, 16)
	e, err := NewEncrypter(jwa.A256GCM, []Recipient{{Algorithm: jwa.A128KW, Key: key}}, nil)
	require.NoError(t, err)
	compact, err := e.EncryptCompact([]byte("x"))
	require.NoError(t, err)

	d, err := NewDecrypter(key, &DecryptOptions{Policy: policy})
	require.NoError(t, err)
	_, err = d.DecryptBytes([]byte(compact))
	assert.ErrorIs(t, err, errors.ErrUnsupportedAlgorithm)

	_, err = NewEncrypter("A512GCM", []Recipient{{Algorithm: jwa.A256KW, Key: symmetric(t, 32)}}, nil)
	assert.ErrorIs(t, err, errors.ErrUnsupportedAlgorithm)
	_, err = NewEncrypter(jwa.A256GCM, []Recipient{{Algorithm: "none", Key: symmetric(t, 32)}}, nil)
	assert.ErrorIs(t, err, errors.ErrUnsupportedAlgorithm)
}

func TestUnsupportedHeaders(t *testing.T) {
	key := symmetric(t, 32)
	_, err := NewEncrypter(jwa.A256GCM, []Recipient{{Algorithm: jwa.A256KW, Key: key}}, &EncryptOptions{
		Protected: header.Parameters{"zip": "DEF"},
	})
	assert.ErrorIs(t, err, errors.ErrUnsupportedAlgorithm)
	_, err = NewEncrypter(jwa.A256GCM, []Recipient{{Algorithm: jwa.A256KW, Key: key}}, &EncryptOptions{
		Protected: header.Parameters{"crit": []string{"exp"}},
	})
	assert.ErrorIs(t, err, errors.ErrMalformedJWE)

	e, err := NewEncrypter(jwa.A256GCM, []Recipient{{Algorithm: jwa.A256KW, Key: key}}, nil)
	require.NoError(t, err)
	out, err := e.EncryptFlattened([]byte("x"))
	require.NoError(t, err)
	d, err := NewDecrypter(key, nil)
	require.NoError(t, err)

	tests := []struct {
		name        string
		unprotected header.Parameters
		want        error
	}{
		{"zip", header.Parameters{"zip": "DEF"}, errors.ErrUnsupportedAlgorithm},
		{"crit", header.Parameters{"crit": []any{"exp"}}, errors.ErrMalformedJWE},
		{"duplicate enc", header.Parameters{"enc": "A256GCM"}, errors.ErrMalformedJWE},
		{"duplicate alg", header.Parameters{"alg": "A256KW"}, errors.ErrMalformedJWE},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := Parse(out)
			require.NoError(t, err)
			j.Unprotected = tt.unprotected
			_, err = d.Decrypt(j)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too few parts", "a.b.c"},
		{"bad protected", "!!.AA.AA.AA.AA"},
		{"protected not object", header.Encode([]byte(`[1]`)) + "..AA.AA.AA"},
		{"bad iv", header.Encode([]byte(`{"alg":"dir"}`)) + "..A=.AA.AA"},
		{"json missing iv", `{"protected":"e30","ciphertext":"AA","tag":"AA"}`},
		{"json mixed forms", `{"header":{"alg":"dir"},"recipients":[{}],"iv":"AA","ciphertext":"AA","tag":"AA"}`},
		{"json empty recipients", `{"recipients":[],"iv":"AA","ciphertext":"AA","tag":"AA"}`},
		{"json not an object", `{"iv":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			assert.ErrorIs(t, err, errors.ErrMalformedJWE)
		})
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	key := symmetric(t, 32)
	e, err := NewEncrypter(jwa.A256GCM, []Recipient{{Algorithm: jwa.A256GCMKW, Key: key}}, nil)
	require.NoError(t, err)

	for _, form := range []Form{Compact, Flattened, General} {
		t.Run(form.String(), func(t *testing.T) {
			j, err := e.Encrypt([]byte("form"), form)
			require.NoError(t, err)
			out, err := j.Serialize(form)
			require.NoError(t, err)

			parsed, err := Parse(out)
			require.NoError(t, err)
			again, err := parsed.Serialize(form)
			require.NoError(t, err)
			assert.JSONEq(t, string(mustGeneral(t, out)), string(mustGeneral(t, again)))

			got, err := decryptWith(t, key, out)
			require.NoError(t, err)
			assert.Equal(t, []byte("form"), got.Plaintext)
		})
	}
}

func mustGeneral(t *testing.T, data []byte) []byte {
	t.Helper()
	j, err := Parse(data)
	require.NoError(t, err)
	out, err := j.GeneralSerialize()
	require.NoError(t, err)
	return out
}

func TestInterop_GoJose(t *testing.T) {
	kp := keyPair(t, jwa.P256)
	priv := kp.PrivateKey.(*ecdsa.PrivateKey)
	plaintext := []byte("interop")

	t.Run("josekit to go-jose", func(t *testing.T) {
		for _, tc := range []struct {
			alg  jwa.KeyAlgorithm
			enc  jwa.ContentEncryption
			jalg jose.KeyAlgorithm
			jenc jose.ContentEncryption
			key  any
			dkey any
		}{
			{jwa.ECDHES, jwa.A128CBCHS256, jose.ECDH_ES, jose.A128CBC_HS256, &priv.PublicKey, priv},
			{jwa.ECDHESA256KW, jwa.A256GCM, jose.ECDH_ES_A256KW, jose.A256GCM, &priv.PublicKey, priv},
			{jwa.RSAOAEP256, jwa.A256CBCHS512, jose.RSA_OAEP_256, jose.A256CBC_HS512, &rsaKey(t).PublicKey, rsaKey(t)},
		} {
			e, err := NewEncrypter(tc.enc, []Recipient{{Algorithm: tc.alg, Key: tc.key}}, nil)
			require.NoError(t, err)
			compact, err := e.EncryptCompact(plaintext)
			require.NoError(t, err)

			obj, err := jose.ParseEncrypted(compact, []jose.KeyAlgorithm{tc.jalg}, []jose.ContentEncryption{tc.jenc})
			require.NoError(t, err, tc.alg)
			got, err := obj.Decrypt(tc.dkey)
			require.NoError(t, err, tc.alg)
			assert.Equal(t, plaintext, got)
		}
	})

	t.Run("go-jose to josekit", func(t *testing.T) {
		enc, err := jose.NewEncrypter(jose.A192GCM, jose.Recipient{Algorithm: jose.ECDH_ES_A128KW, Key: &priv.PublicKey}, nil)
		require.NoError(t, err)
		obj, err := enc.Encrypt(plaintext)
		require.NoError(t, err)
		compact, err := obj.CompactSerialize()
		require.NoError(t, err)

		got, err := decryptWith(t, priv, []byte(compact))
		require.NoError(t, err)
		assert.Equal(t, plaintext, got.Plaintext)
	})
}

func TestInterop_JWX(t *testing.T) {
	plaintext := []byte("interop")

	t.Run("jwx to josekit", func(t *testing.T) {
		key := rsaKey(t)
		out, err := jwxjwe.Encrypt(plaintext,
			jwxjwe.WithKey(jwxjwa.RSA_OAEP_256(), &key.PublicKey),
			jwxjwe.WithContentEncryption(jwxjwa.A256GCM()))
		require.NoError(t, err)

		got, err := decryptWith(t, key, out)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got.Plaintext)
	})

	t.Run("josekit to jwx", func(t *testing.T) {
		key := symmetric(t, 32)
		e, err := NewEncrypter(jwa.A128CBCHS256, []Recipient{{Algorithm: jwa.A256KW, Key: key}}, nil)
		require.NoError(t, err)
		out, err := e.EncryptFlattened(plaintext)
		require.NoError(t, err)

		got, err := jwxjwe.Decrypt(out, jwxjwe.WithKey(jwxjwa.A256KW(), key))
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	})
}
