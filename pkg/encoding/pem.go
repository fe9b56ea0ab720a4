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

// Package encoding converts between JWKs and the PEM and DER key formats
// used by other tooling: PKCS#8 private keys (optionally password
// protected), PKCS#1 and SEC 1 private keys, SubjectPublicKeyInfo public
// keys and the public key of an X.509 certificate.
//
// Only key types the standard x509 package can represent are supported:
// RSA, the NIST curves, Ed25519 and X25519. secp256k1, Ed448 and X448 keys
// stay in JWK form.
package encoding

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// PEM block types
const (
	PEMTypeRSAPrivateKey       = "RSA PRIVATE KEY"
	PEMTypeECPrivateKey        = "EC PRIVATE KEY"
	PEMTypePrivateKey          = "PRIVATE KEY"
	PEMTypeEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
	PEMTypePublicKey           = "PUBLIC KEY"
	PEMTypeRSAPublicKey        = "RSA PUBLIC KEY"
	PEMTypeCertificate         = "CERTIFICATE"
)

// DecodePEM decodes the first PEM block of data into a JWK. password is
// required for "ENCRYPTED PRIVATE KEY" blocks and ignored otherwise.
//
// Example:
//
//	key, err := encoding.DecodePEM(pemData, nil)
func DecodePEM(data []byte, password []byte) (*jwk.JWK, error) {
	if len(data) == 0 {
		return nil, malformed(ErrInvalidData)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, malformed(ErrInvalidPEMEncoding)
	}

	var (
		key any
		err error
	)
	switch block.Type {
	case PEMTypePrivateKey:
		key, err = DecodePKCS8(block.Bytes, nil)
	case PEMTypeEncryptedPrivateKey:
		if len(password) == 0 {
			return nil, malformed(ErrPasswordRequired)
		}
		key, err = DecodePKCS8(block.Bytes, password)
	case PEMTypeRSAPrivateKey:
		if key, err = x509.ParsePKCS1PrivateKey(block.Bytes); err != nil {
			err = fmt.Errorf("%w: %v", errors.ErrMalformedKey, err)
		}
	case PEMTypeECPrivateKey:
		if key, err = x509.ParseECPrivateKey(block.Bytes); err != nil {
			err = fmt.Errorf("%w: %v", errors.ErrMalformedKey, err)
		}
	case PEMTypePublicKey:
		key, err = DecodePublicKeyPKIX(block.Bytes)
	case PEMTypeRSAPublicKey:
		if key, err = x509.ParsePKCS1PublicKey(block.Bytes); err != nil {
			err = fmt.Errorf("%w: %v", errors.ErrMalformedKey, err)
		}
	case PEMTypeCertificate:
		var cert *x509.Certificate
		if cert, err = x509.ParseCertificate(block.Bytes); err != nil {
			err = fmt.Errorf("%w: %v", errors.ErrMalformedKey, err)
		} else {
			key = cert.PublicKey
		}
	default:
		return nil, malformed(fmt.Errorf("%w: %q", ErrUnsupportedPEMType, block.Type))
	}
	if err != nil {
		return nil, err
	}
	return jwk.FromKey(key)
}

// EncodePEM encodes a JWK as PEM. Private JWKs become PKCS#8 "PRIVATE KEY"
// blocks, or "ENCRYPTED PRIVATE KEY" when password is set; public JWKs
// become "PUBLIC KEY" blocks.
//
// Example:
//
//	pemData, err := encoding.EncodePEM(key, []byte("password"))
func EncodePEM(key *jwk.JWK, password []byte) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil key", errors.ErrInvalidArgument)
	}
	if key.IsSymmetric() {
		return nil, fmt.Errorf("%w: symmetric keys have no PEM form", errors.ErrInvalidKeyType)
	}
	crv, err := key.Curve()
	if err != nil {
		return nil, err
	}
	switch crv {
	case jwa.Secp256k1, jwa.Ed448, jwa.X448:
		return nil, fmt.Errorf("%w: %s keys have no PKCS#8 form", errors.ErrUnsupportedCurve, crv)
	}

	block := &pem.Block{}
	if key.IsPrivate() {
		priv, err := key.ToPrivateKey()
		if err != nil {
			return nil, err
		}
		if block.Bytes, err = EncodePKCS8(priv, password); err != nil {
			return nil, err
		}
		block.Type = PEMTypePrivateKey
		if len(password) > 0 {
			block.Type = PEMTypeEncryptedPrivateKey
		}
	} else {
		pub, err := key.ToPublicKey()
		if err != nil {
			return nil, err
		}
		if block.Bytes, err = EncodePublicKeyPKIX(pub); err != nil {
			return nil, err
		}
		block.Type = PEMTypePublicKey
	}

	var buf bytes.Buffer
	if err := pem.Encode(&buf, block); err != nil {
		return nil, fmt.Errorf("failed to encode PEM: %w", err)
	}
	return buf.Bytes(), nil
}
