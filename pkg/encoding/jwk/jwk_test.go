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
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

var testRSAKey *rsa.PrivateKey

func rsaKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	if testRSAKey == nil {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("Failed to generate RSA key: %v", err)
		}
		testRSAKey = key
	}
	return testRSAKey
}

func TestParse(t *testing.T) {
	k, err := Parse([]byte(`{"kty":"oct","k":"AAEC","kid":"k1"}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if k.Kid != "k1" || !k.IsSymmetric() {
		t.Fatalf("unexpected JWK %+v", k)
	}

	bad := []string{
		``,
		`not json`,
		`{"k":"AAEC"}`,
		`{"kty":"DSA"}`,
	}
	for _, in := range bad {
		if _, err := Parse([]byte(in)); !stderrors.Is(err, errors.ErrMalformedKey) {
			t.Errorf("Parse(%q): expected ErrMalformedKey, got %v", in, err)
		}
	}
}

func TestParseRequiredMembers(t *testing.T) {
	b64 := func(n int) string { return base64.RawURLEncoding.EncodeToString(make([]byte, n)) }
	x32 := b64(32)

	bad := []struct {
		name string
		in   string
	}{
		{"EC without x and y", `{"kty":"EC","crv":"P-256"}`},
		{"EC without crv", `{"kty":"EC","x":"` + x32 + `","y":"` + x32 + `"}`},
		{"EC without y", `{"kty":"EC","crv":"P-256","x":"` + x32 + `"}`},
		{"EC short x", `{"kty":"EC","crv":"P-256","x":"AAEC","y":"` + x32 + `"}`},
		{"EC P-384 with P-256 sizes", `{"kty":"EC","crv":"P-384","x":"` + x32 + `","y":"` + x32 + `"}`},
		{"EC short d", `{"kty":"EC","crv":"P-256","x":"` + x32 + `","y":"` + x32 + `","d":"AAEC"}`},
		{"EC with OKP curve", `{"kty":"EC","crv":"Ed25519","x":"` + x32 + `","y":"` + x32 + `"}`},
		{"OKP without members", `{"kty":"OKP"}`},
		{"OKP without x", `{"kty":"OKP","crv":"Ed25519"}`},
		{"OKP X448 with 32 byte x", `{"kty":"OKP","crv":"X448","x":"` + x32 + `"}`},
		{"OKP bad base64", `{"kty":"OKP","crv":"Ed25519","x":"***"}`},
		{"OKP short d", `{"kty":"OKP","crv":"Ed25519","x":"` + x32 + `","d":"AAEC"}`},
		{"RSA without e", `{"kty":"RSA","n":"AQAB"}`},
		{"RSA without n", `{"kty":"RSA","e":"AQAB"}`},
		{"RSA empty n", `{"kty":"RSA","n":"","e":"AQAB"}`},
		{"oct without k", `{"kty":"oct"}`},
		{"oct bad base64", `{"kty":"oct","k":"!!"}`},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.in)); !stderrors.Is(err, errors.ErrMalformedKey) {
				t.Fatalf("expected ErrMalformedKey, got %v", err)
			}
		})
	}

	if _, err := Parse([]byte(`{"kty":"EC","crv":"P-192","x":"AAEC","y":"AAEC"}`)); !stderrors.Is(err, errors.ErrUnsupportedCurve) {
		t.Fatalf("expected ErrUnsupportedCurve, got %v", err)
	}

	good := []string{
		`{"kty":"OKP","crv":"Ed25519","x":"` + x32 + `"}`,
		`{"kty":"OKP","crv":"Ed448","x":"` + b64(57) + `"}`,
		`{"kty":"EC","crv":"P-521","x":"` + b64(66) + `","y":"` + b64(66) + `"}`,
		`{"kty":"RSA","n":"AQAB","e":"AQAB"}`,
	}
	for _, in := range good {
		if _, err := Parse([]byte(in)); err != nil {
			t.Errorf("Parse(%s): %v", in, err)
		}
	}

	if _, err := ParseSet([]byte(`[{"kty":"oct","k":"AAEC"},{"kty":"EC","crv":"P-256"}]`)); !stderrors.Is(err, errors.ErrMalformedKey) {
		t.Fatalf("expected ErrMalformedKey from set, got %v", err)
	}
}

func TestParseSet(t *testing.T) {
	arr := `[{"kty":"oct","k":"AAEC"},{"kty":"oct","k":"AwQF"}]`
	keys, err := ParseSet([]byte(arr))
	if err != nil || len(keys) != 2 {
		t.Fatalf("ParseSet array: %v, %d keys", err, len(keys))
	}

	set := `{"keys":[{"kty":"oct","k":"AAEC"}]}`
	keys, err = ParseSet([]byte(set))
	if err != nil || len(keys) != 1 {
		t.Fatalf("ParseSet set: %v, %d keys", err, len(keys))
	}

	if _, err := ParseSet([]byte(`{"kty":"oct"}`)); !stderrors.Is(err, errors.ErrMalformedKey) {
		t.Fatalf("expected ErrMalformedKey, got %v", err)
	}
	if _, err := ParseSet([]byte(`[{"k":"x"}]`)); !stderrors.Is(err, errors.ErrMalformedKey) {
		t.Fatalf("expected ErrMalformedKey, got %v", err)
	}
}

func TestRSARoundTrip(t *testing.T) {
	key := rsaKey(t)

	j, err := FromPrivateKey(key)
	if err != nil {
		t.Fatalf("FromPrivateKey failed: %v", err)
	}
	if j.Kty != "RSA" || j.P == "" || j.Q == "" || j.DP == "" || j.DQ == "" || j.QI == "" {
		t.Fatalf("incomplete RSA JWK: %+v", j)
	}

	data, _ := j.Marshal()
	parsed, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	priv, err := parsed.ToPrivateKey()
	if err != nil {
		t.Fatalf("ToPrivateKey failed: %v", err)
	}
	if !key.Equal(priv) {
		t.Fatal("RSA private key mismatch after round trip")
	}

	pubJWK, err := j.Public()
	if err != nil {
		t.Fatalf("Public failed: %v", err)
	}
	if pubJWK.D != "" || pubJWK.P != "" {
		t.Fatal("public JWK contains private members")
	}
	pub, err := pubJWK.ToPublicKey()
	if err != nil {
		t.Fatalf("ToPublicKey failed: %v", err)
	}
	if !key.PublicKey.Equal(pub) {
		t.Fatal("RSA public key mismatch")
	}
}

func TestRSAPrivateKeyRequiresPrimes(t *testing.T) {
	j, err := FromPrivateKey(rsaKey(t))
	if err != nil {
		t.Fatalf("FromPrivateKey failed: %v", err)
	}
	j.P = ""
	if _, err := j.ToPrivateKey(); !stderrors.Is(err, errors.ErrMalformedKey) {
		t.Fatalf("expected ErrMalformedKey, got %v", err)
	}
}

func TestECFixedWidthCoordinates(t *testing.T) {
	// Leading zero bytes must be kept so every member has the curve size.
	for i := 0; i < 64; i++ {
		key, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
		if err != nil {
			t.Fatalf("GenerateKey failed: %v", err)
		}
		j, err := FromPrivateKey(key)
		if err != nil {
			t.Fatalf("FromPrivateKey failed: %v", err)
		}
		for name, v := range map[string]string{"x": j.X, "y": j.Y, "d": j.D} {
			b, _ := base64.RawURLEncoding.DecodeString(v)
			if len(b) != 66 {
				t.Fatalf("%s has length %d, want 66", name, len(b))
			}
		}
	}
}

func TestECPointValidation(t *testing.T) {
	key, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	j, _ := FromPublicKey(&key.PublicKey)

	y, _ := base64.RawURLEncoding.DecodeString(j.Y)
	y[len(y)-1] ^= 0x01
	j.Y = base64.RawURLEncoding.EncodeToString(y)

	if _, err := j.ToPublicKey(); !stderrors.Is(err, errors.ErrMalformedKey) {
		t.Fatalf("expected ErrMalformedKey for off-curve point, got %v", err)
	}
}

func TestWrongLengthMembers(t *testing.T) {
	tests := []struct {
		name string
		jwk  JWK
	}{
		{"short P-256 x", JWK{Kty: "EC", Crv: "P-256", X: "AAEC", Y: "AAEC"}},
		{"short Ed25519 x", JWK{Kty: "OKP", Crv: "Ed25519", X: "AAEC"}},
		{"short X448 x", JWK{Kty: "OKP", Crv: "X448", X: base64.RawURLEncoding.EncodeToString(make([]byte, 32))}},
		{"missing y", JWK{Kty: "EC", Crv: "P-256", X: base64.RawURLEncoding.EncodeToString(make([]byte, 32))}},
		{"OKP curve on EC", JWK{Kty: "EC", Crv: "Ed25519", X: "AAEC", Y: "AAEC"}},
		{"bad base64", JWK{Kty: "OKP", Crv: "Ed25519", X: "***"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.jwk.ToPublicKey(); !stderrors.Is(err, errors.ErrMalformedKey) {
				t.Fatalf("expected ErrMalformedKey, got %v", err)
			}
		})
	}

	unknown := JWK{Kty: "EC", Crv: "P-192", X: "AAEC", Y: "AAEC"}
	if _, err := unknown.ToPublicKey(); !stderrors.Is(err, errors.ErrUnsupportedCurve) {
		t.Fatalf("expected ErrUnsupportedCurve, got %v", err)
	}
}

func TestPrivateKeyMustMatchPublic(t *testing.T) {
	for _, crv := range jwa.Curves {
		t.Run(crv.String(), func(t *testing.T) {
			a, err := GenerateKeyPair(crv)
			if err != nil {
				t.Fatalf("GenerateKeyPair failed: %v", err)
			}
			b, err := GenerateKeyPair(crv)
			if err != nil {
				t.Fatalf("GenerateKeyPair failed: %v", err)
			}
			ja, _ := a.JWK()
			jb, _ := b.JWK()
			ja.D = jb.D
			if _, err := ja.ToPrivateKey(); !stderrors.Is(err, errors.ErrMalformedKey) {
				t.Fatalf("expected ErrMalformedKey, got %v", err)
			}
		})
	}
}

func TestSymmetricKey(t *testing.T) {
	key := []byte("0123456789abcdef")
	j, err := FromSymmetricKey(key, "A128KW")
	if err != nil {
		t.Fatalf("FromSymmetricKey failed: %v", err)
	}
	got, err := j.ToSymmetricKey()
	if err != nil {
		t.Fatalf("ToSymmetricKey failed: %v", err)
	}
	if string(got) != string(key) {
		t.Fatal("symmetric key mismatch")
	}
	if _, err := j.Public(); !stderrors.Is(err, errors.ErrInvalidKeyType) {
		t.Fatalf("expected ErrInvalidKeyType, got %v", err)
	}
	if _, err := j.ToPublicKey(); !stderrors.Is(err, errors.ErrInvalidKeyType) {
		t.Fatalf("expected ErrInvalidKeyType, got %v", err)
	}
	if _, err := FromSymmetricKey(nil, ""); !stderrors.Is(err, errors.ErrInvalidKeyLength) {
		t.Fatalf("expected ErrInvalidKeyLength, got %v", err)
	}

	ec := &JWK{Kty: "EC"}
	if _, err := ec.ToSymmetricKey(); !stderrors.Is(err, errors.ErrInvalidKeyType) {
		t.Fatalf("expected ErrInvalidKeyType, got %v", err)
	}
}

func TestKeyID(t *testing.T) {
	kp, err := GenerateKeyPair(jwa.Ed25519)
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	j, _ := kp.PublicJWK()

	kid, err := j.KeyID()
	if err != nil {
		t.Fatalf("KeyID failed: %v", err)
	}
	tp, _ := j.Thumbprint(crypto.SHA256)
	if kid != tp {
		t.Fatalf("KeyID = %s, want thumbprint %s", kid, tp)
	}

	j.Kid = "did:example:alice#key-1"
	if kid, _ := j.KeyID(); kid != "did:example:alice#key-1" {
		t.Fatalf("KeyID = %s", kid)
	}

	oct, _ := FromSymmetricKey([]byte("secret-secret-secret"), "")
	if kid, _ := oct.KeyID(); kid != "" {
		t.Fatalf("symmetric KeyID = %q, want empty", kid)
	}
}

func TestUnsupportedKeyTypes(t *testing.T) {
	if _, err := FromPublicKey("not a key"); !stderrors.Is(err, errors.ErrInvalidKeyType) {
		t.Fatalf("expected ErrInvalidKeyType, got %v", err)
	}
	if _, err := FromPrivateKey(42); !stderrors.Is(err, errors.ErrInvalidKeyType) {
		t.Fatalf("expected ErrInvalidKeyType, got %v", err)
	}
	p224, _ := ecdsa.GenerateKey(elliptic.P224(), rand.Reader)
	if _, err := FromPublicKey(&p224.PublicKey); !stderrors.Is(err, errors.ErrUnsupportedCurve) {
		t.Fatalf("expected ErrUnsupportedCurve, got %v", err)
	}
}

func TestToPrivateKeyOnPublicJWK(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(rand.Reader)
	j, _ := FromPublicKey(pub)
	if _, err := j.ToPrivateKey(); !stderrors.Is(err, errors.ErrMalformedKey) {
		t.Fatalf("expected ErrMalformedKey, got %v", err)
	}
}

func TestMarshalOmitsEmptyMembers(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(rand.Reader)
	j, _ := FromPublicKey(pub)
	data, err := j.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(m) != 3 {
		t.Fatalf("expected kty, crv and x only, got %v", m)
	}
}
