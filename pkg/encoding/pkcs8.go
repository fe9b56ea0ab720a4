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

package encoding

import (
	"crypto"
	"crypto/x509"
	"fmt"
	"strings"

	"github.com/youmark/pkcs8"

	"github.com/jeremyhahn/go-josekit/pkg/errors"
)

// EncodePKCS8 encodes a private key to ASN.1 DER PKCS#8 format.
// If a password is provided, the key is encrypted with PBES2 (PBKDF2 and
// AES-256-CBC).
//
// Example:
//
//	der, err := encoding.EncodePKCS8(privateKey, []byte("mypassword"))
func EncodePKCS8(privateKey crypto.PrivateKey, password []byte) ([]byte, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("%w: nil private key", errors.ErrInvalidArgument)
	}
	der, err := pkcs8.MarshalPrivateKey(privateKey, password, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal PKCS#8: %v", errors.ErrInvalidKeyType, err)
	}
	return der, nil
}

// DecodePKCS8 decodes ASN.1 DER PKCS#8 data, encrypted or not, to a
// private key.
//
// Example:
//
//	key, err := encoding.DecodePKCS8(derData, []byte("mypassword"))
func DecodePKCS8(data []byte, password []byte) (crypto.PrivateKey, error) {
	if len(data) == 0 {
		return nil, malformed(ErrInvalidData)
	}
	key, err := pkcs8.ParsePKCS8PrivateKey(data, password)
	if err != nil {
		if len(password) > 0 && isPasswordError(err) {
			return nil, malformed(ErrInvalidPassword)
		}
		return nil, fmt.Errorf("%w: failed to parse PKCS#8: %v", errors.ErrMalformedKey, err)
	}
	return key, nil
}

// EncodePublicKeyPKIX encodes a public key to ASN.1 DER SubjectPublicKeyInfo.
func EncodePublicKeyPKIX(publicKey crypto.PublicKey) ([]byte, error) {
	if publicKey == nil {
		return nil, fmt.Errorf("%w: nil public key", errors.ErrInvalidArgument)
	}
	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal PKIX public key: %v", errors.ErrInvalidKeyType, err)
	}
	return der, nil
}

// DecodePublicKeyPKIX decodes ASN.1 DER SubjectPublicKeyInfo to a public key.
func DecodePublicKeyPKIX(data []byte) (crypto.PublicKey, error) {
	if len(data) == 0 {
		return nil, malformed(ErrInvalidData)
	}
	pub, err := x509.ParsePKIXPublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse PKIX public key: %v", errors.ErrMalformedKey, err)
	}
	return pub, nil
}

// isPasswordError reports whether a youmark/pkcs8 failure stems from a
// wrong password. A bad password usually surfaces as a padding or ASN.1
// error after decryption.
func isPasswordError(err error) bool {
	msg := err.Error()
	for _, s := range []string{"incorrect password", "asn1: structure error", "tags don't match", "padding"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func malformed(err error) error {
	return fmt.Errorf("%w: %w", errors.ErrMalformedKey, err)
}
