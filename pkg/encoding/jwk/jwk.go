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

// Package jwk implements JSON Web Keys (RFC 7517, RFC 7518 Section 6,
// RFC 8037, RFC 8812): import, export and generation of key pairs for every
// supported named curve, plus RSA and symmetric keys.
//
// The Go key types used for each curve are:
//
//	P-256, P-384, P-521  *ecdsa.PrivateKey / *ecdsa.PublicKey
//	secp256k1            *btcec.PrivateKey / *btcec.PublicKey
//	Ed25519              ed25519.PrivateKey / ed25519.PublicKey
//	Ed448                ed448.PrivateKey / ed448.PublicKey (circl)
//	X25519               *ecdh.PrivateKey / *ecdh.PublicKey
//	X448                 x448.PrivateKey / x448.PublicKey
//
// RSA keys use *rsa.PrivateKey / *rsa.PublicKey and symmetric keys are raw
// []byte. Every parse failure wraps errors.ErrMalformedKey, or
// errors.ErrUnsupportedCurve for an unknown "crv".
package jwk

import (
	"crypto"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// JWK represents a JSON Web Key as defined in RFC 7517.
type JWK struct {
	// Common fields (all key types)
	Kty string `json:"kty"`           // Key Type (required)
	Use string `json:"use,omitempty"` // Public Key Use (sig, enc)
	Alg string `json:"alg,omitempty"` // Algorithm
	Kid string `json:"kid,omitempty"` // Key ID

	// EC and OKP fields (RFC 7518 Section 6.2, RFC 8037)
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`

	// RSA public key fields (RFC 7518 Section 6.3.1)
	N string `json:"n,omitempty"`
	E string `json:"e,omitempty"`

	// Private key fields. D is shared by EC, OKP and RSA.
	D  string `json:"d,omitempty"`
	P  string `json:"p,omitempty"`
	Q  string `json:"q,omitempty"`
	DP string `json:"dp,omitempty"`
	DQ string `json:"dq,omitempty"`
	QI string `json:"qi,omitempty"`

	// Symmetric key field (RFC 7518 Section 6.4)
	K string `json:"k,omitempty"`

	KeyOps []string `json:"key_ops,omitempty"`
}

// Public key use values.
const (
	UseSignature  = "sig"
	UseEncryption = "enc"
)

// Parse decodes JWK JSON text. The members required by the key type must be
// present and, for EC and OKP keys, sized for the curve. Point validity and
// private key consistency are checked by the To* conversions.
func Parse(data []byte) (*JWK, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", errors.ErrMalformedKey)
	}
	var k JWK
	if err := json.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedKey, err)
	}
	switch jwa.KeyType(k.Kty) {
	case jwa.KeyTypeEC, jwa.KeyTypeOKP, jwa.KeyTypeRSA, jwa.KeyTypeOct:
	case "":
		return nil, fmt.Errorf("%w: missing kty", errors.ErrMalformedKey)
	default:
		return nil, fmt.Errorf("%w: unsupported kty %q", errors.ErrMalformedKey, k.Kty)
	}
	if err := k.checkMembers(); err != nil {
		return nil, err
	}
	return &k, nil
}

// checkMembers verifies the required members of the key type.
func (k *JWK) checkMembers() error {
	switch k.KeyType() {
	case jwa.KeyTypeEC:
		crv, _, _, err := k.ecPoint()
		if err != nil {
			return err
		}
		return k.checkPrivateScalar(crv)
	case jwa.KeyTypeOKP:
		crv, _, err := k.okpPublic()
		if err != nil {
			return err
		}
		return k.checkPrivateScalar(crv)
	case jwa.KeyTypeRSA:
		if _, err := decodeInt("n", k.N); err != nil {
			return err
		}
		_, err := decodeInt("e", k.E)
		return err
	case jwa.KeyTypeOct:
		_, err := k.ToSymmetricKey()
		return err
	}
	return nil
}

func (k *JWK) checkPrivateScalar(crv jwa.NamedCurve) error {
	if k.D == "" {
		return nil
	}
	p, _ := crv.Params()
	_, err := decodeFixed(k.Kty, "d", k.D, p.PrivateSize)
	return err
}

// ParseSet decodes either a JSON array of JWKs or a JWK Set object
// ({"keys": [...]}).
func ParseSet(data []byte) ([]*JWK, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var set struct {
			Keys []json.RawMessage `json:"keys"`
		}
		if err2 := json.Unmarshal(data, &set); err2 != nil || set.Keys == nil {
			return nil, fmt.Errorf("%w: expected a JWK array or set", errors.ErrMalformedKey)
		}
		raw = set.Keys
	}
	keys := make([]*JWK, 0, len(raw))
	for i, r := range raw {
		k, err := Parse(r)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Unmarshal is Parse.
func Unmarshal(data []byte) (*JWK, error) {
	return Parse(data)
}

// Marshal returns the JSON encoding of the JWK.
func (k *JWK) Marshal() ([]byte, error) {
	return json.Marshal(k)
}

// MarshalIndent returns the indented JSON encoding of the JWK.
func (k *JWK) MarshalIndent(prefix, indent string) ([]byte, error) {
	return json.MarshalIndent(k, prefix, indent)
}

// KeyType returns the kty member as a registry value.
func (k *JWK) KeyType() jwa.KeyType {
	return jwa.KeyType(k.Kty)
}

// Curve resolves the crv member. Keys without a curve (RSA, oct) return an
// empty curve and no error.
func (k *JWK) Curve() (jwa.NamedCurve, error) {
	switch k.KeyType() {
	case jwa.KeyTypeEC, jwa.KeyTypeOKP:
	default:
		return "", nil
	}
	if k.Crv == "" {
		return "", fmt.Errorf("%w: missing crv", errors.ErrMalformedKey)
	}
	crv, err := jwa.ParseNamedCurve(k.Crv)
	if err != nil {
		return "", err
	}
	p, _ := crv.Params()
	if p.KeyType != k.KeyType() {
		return "", fmt.Errorf("%w: curve %s is not valid for kty %s", errors.ErrMalformedKey, crv, k.Kty)
	}
	return crv, nil
}

// IsPrivate returns true if the JWK contains private or secret material.
func (k *JWK) IsPrivate() bool {
	return k.D != "" || k.K != ""
}

// IsSymmetric returns true if the JWK is an oct key.
func (k *JWK) IsSymmetric() bool {
	return k.KeyType() == jwa.KeyTypeOct
}

// Public returns a copy of k without private members. Symmetric keys have no
// public form.
func (k *JWK) Public() (*JWK, error) {
	if k.IsSymmetric() {
		return nil, fmt.Errorf("%w: symmetric key has no public form", errors.ErrInvalidKeyType)
	}
	pub := &JWK{
		Kty: k.Kty,
		Use: k.Use,
		Alg: k.Alg,
		Kid: k.Kid,
		Crv: k.Crv,
		X:   k.X,
		Y:   k.Y,
		N:   k.N,
		E:   k.E,
	}
	for _, op := range k.KeyOps {
		switch op {
		case "verify", "encrypt", "wrapKey":
			pub.KeyOps = append(pub.KeyOps, op)
		}
	}
	return pub, nil
}

// KeyID returns the explicit kid, or the base64url SHA-256 thumbprint for
// asymmetric keys without one. Symmetric keys without a kid return "".
func (k *JWK) KeyID() (string, error) {
	if k.Kid != "" {
		return k.Kid, nil
	}
	if k.IsSymmetric() {
		return "", nil
	}
	return k.Thumbprint(crypto.SHA256)
}

// Key returns the Go key the JWK represents: the private key when private
// members are present, the public key otherwise, or []byte for oct keys.
func (k *JWK) Key() (any, error) {
	if k.IsSymmetric() {
		return k.ToSymmetricKey()
	}
	if k.D != "" {
		return k.ToPrivateKey()
	}
	return k.ToPublicKey()
}

// FromKey creates a JWK from any supported private, public or symmetric key.
func FromKey(key any) (*JWK, error) {
	switch v := key.(type) {
	case []byte:
		return FromSymmetricKey(v, "")
	case *JWK:
		return v, nil
	}
	if j, err := FromPrivateKey(key); err == nil {
		return j, nil
	}
	return FromPublicKey(key)
}

// FromSymmetricKey creates a JWK from symmetric key bytes.
func FromSymmetricKey(key []byte, alg string) (*JWK, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: symmetric key cannot be empty", errors.ErrInvalidKeyLength)
	}
	return &JWK{
		Kty: string(jwa.KeyTypeOct),
		K:   base64.RawURLEncoding.EncodeToString(key),
		Alg: alg,
	}, nil
}

// ToSymmetricKey extracts the symmetric key bytes from the JWK.
func (k *JWK) ToSymmetricKey() ([]byte, error) {
	if !k.IsSymmetric() {
		return nil, fmt.Errorf("%w: JWK is not a symmetric key (kty=%s)", errors.ErrInvalidKeyType, k.Kty)
	}
	if k.K == "" {
		return nil, fmt.Errorf("%w: oct JWK missing required field: k", errors.ErrMalformedKey)
	}
	b, err := decodeField("k", k.K)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: oct JWK has empty k", errors.ErrMalformedKey)
	}
	return b, nil
}

// FromPublicKey creates a JWK from a public key of any supported type.
func FromPublicKey(pub crypto.PublicKey) (*JWK, error) {
	if j, ok, err := fromECPublicKey(pub); ok {
		return j, err
	}
	if j, ok, err := fromOKPPublicKey(pub); ok {
		return j, err
	}
	if j, ok, err := fromRSAPublicKey(pub); ok {
		return j, err
	}
	return nil, fmt.Errorf("%w: unsupported public key type %T", errors.ErrInvalidKeyType, pub)
}

// FromPrivateKey creates a JWK including private members from a private key
// of any supported type.
func FromPrivateKey(priv crypto.PrivateKey) (*JWK, error) {
	if j, ok, err := fromECPrivateKey(priv); ok {
		return j, err
	}
	if j, ok, err := fromOKPPrivateKey(priv); ok {
		return j, err
	}
	if j, ok, err := fromRSAPrivateKey(priv); ok {
		return j, err
	}
	return nil, fmt.Errorf("%w: unsupported private key type %T", errors.ErrInvalidKeyType, priv)
}

// ToPublicKey converts the JWK to its public key. Private JWKs yield the
// public half.
func (k *JWK) ToPublicKey() (crypto.PublicKey, error) {
	switch k.KeyType() {
	case jwa.KeyTypeEC:
		return k.toECPublicKey()
	case jwa.KeyTypeOKP:
		return k.toOKPPublicKey()
	case jwa.KeyTypeRSA:
		return k.toRSAPublicKey()
	case jwa.KeyTypeOct:
		return nil, fmt.Errorf("%w: symmetric key has no public key", errors.ErrInvalidKeyType)
	default:
		return nil, fmt.Errorf("%w: unsupported kty %q", errors.ErrMalformedKey, k.Kty)
	}
}

// ToPrivateKey converts the JWK to its private key. The private members are
// checked against the public members.
func (k *JWK) ToPrivateKey() (crypto.PrivateKey, error) {
	if k.IsSymmetric() {
		return nil, fmt.Errorf("%w: symmetric key has no private key", errors.ErrInvalidKeyType)
	}
	if k.D == "" {
		return nil, fmt.Errorf("%w: JWK does not contain private key parameters", errors.ErrMalformedKey)
	}
	switch k.KeyType() {
	case jwa.KeyTypeEC:
		return k.toECPrivateKey()
	case jwa.KeyTypeOKP:
		return k.toOKPPrivateKey()
	case jwa.KeyTypeRSA:
		return k.toRSAPrivateKey()
	default:
		return nil, fmt.Errorf("%w: unsupported kty %q", errors.ErrMalformedKey, k.Kty)
	}
}

func encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeField(name, value string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64url in %q", errors.ErrMalformedKey, name)
	}
	return b, nil
}

// decodeFixed decodes a required member that must be exactly size bytes.
func decodeFixed(kty, name, value string, size int) ([]byte, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: %s JWK missing required field: %s", errors.ErrMalformedKey, kty, name)
	}
	b, err := decodeField(name, value)
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, fmt.Errorf("%w: %s JWK field %s has length %d, want %d", errors.ErrMalformedKey, kty, name, len(b), size)
	}
	return b, nil
}
