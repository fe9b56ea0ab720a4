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
	stderrors "errors"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-josekit/pkg/crypto/aead"
	"github.com/jeremyhahn/go-josekit/pkg/crypto/keymgmt"
	"github.com/jeremyhahn/go-josekit/pkg/crypto/zeroize"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/header"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// DecryptOptions tunes a Decrypter. A nil *DecryptOptions selects the
// defaults.
type DecryptOptions struct {
	Policy *jwa.Policy

	// Rand supplies the substitute CEK for RSA1_5.
	Rand io.Reader
}

// Decrypted is the result of a successful decryption.
type Decrypted struct {
	Plaintext []byte

	// Protected is the decoded protected header.
	Protected header.Parameters

	// Header is the shared unprotected header merged with the matched
	// recipient's header.
	Header header.Parameters

	// Recipient is the index of the recipient that matched.
	Recipient int
}

// Decrypter decrypts messages addressed to one key.
type Decrypter struct {
	source *jwk.JWK
	key    any
	kid    string
	kty    jwa.KeyType
	curve  jwa.NamedCurve
	symLen int
	opts   DecryptOptions
}

// NewDecrypter prepares key for decryption. key is a private key, a
// symmetric key or PBES2 password as []byte, or a *jwk.JWK.
func NewDecrypter(key any, opts *DecryptOptions) (*Decrypter, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil key", errors.ErrInvalidArgument)
	}
	d := &Decrypter{}
	if opts != nil {
		d.opts = *opts
	}

	var err error
	switch k := key.(type) {
	case *jwk.JWK:
		d.source = k
		if d.key, err = k.Key(); err != nil {
			return nil, err
		}
	case []byte:
		d.key = k
	default:
		if d.source, err = jwk.FromPrivateKey(key); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidKeyType, err)
		}
		d.key = key
	}

	if sym, ok := d.key.([]byte); ok {
		d.kty = jwa.KeyTypeOct
		d.symLen = len(sym)
		if d.source != nil {
			d.kid = d.source.Kid
		}
		return d, nil
	}
	if !d.source.IsPrivate() {
		return nil, fmt.Errorf("%w: decryption requires a private key", errors.ErrInvalidKeyType)
	}
	d.kty = d.source.KeyType()
	if d.curve, err = d.source.Curve(); err != nil {
		return nil, err
	}
	if d.kid, err = d.source.KeyID(); err != nil {
		return nil, err
	}
	return d, nil
}

// KeyID returns the identifier used to narrow recipients: the explicit kid,
// or the thumbprint for asymmetric keys.
func (d *Decrypter) KeyID() string {
	return d.kid
}

// DecryptBytes parses data in any serialization and decrypts it.
func (d *Decrypter) DecryptBytes(data []byte) (*Decrypted, error) {
	j, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return d.Decrypt(j)
}

type candidate struct {
	index     int
	alg       jwa.KeyAlgorithm
	joint     header.Parameters
	confirmed bool
}

// Decrypt finds the recipient addressed to the key and decrypts the
// content.
func (d *Decrypter) Decrypt(j *JSONWebEncryption) (*Decrypted, error) {
	if j == nil || len(j.Recipients) == 0 {
		return nil, fmt.Errorf("%w: no recipients", errors.ErrMalformedJWE)
	}

	var (
		enc        jwa.ContentEncryption
		candidates []candidate
		algErr     error
	)
	for i := range j.Recipients {
		joint, err := j.jointHeader(i)
		if err != nil {
			return nil, err
		}

		e, err := contentEncryption(joint)
		if err != nil {
			return nil, err
		}
		if enc == "" {
			enc = e
		} else if e != enc {
			return nil, fmt.Errorf("%w: recipients disagree on enc", errors.ErrMalformedJWE)
		}

		alg, err := keyAlgorithm(joint, d.opts.Policy)
		if err == nil && d.source != nil {
			err = confirmKey(d.source, alg)
		}
		if err != nil {
			if algErr == nil {
				algErr = err
			}
			continue
		}
		c, ok := d.match(i, alg, enc, joint)
		if ok {
			candidates = append(candidates, c)
		}
	}
	if err := d.opts.Policy.CheckContentEncryption(enc); err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		if algErr != nil && len(j.Recipients) == 1 {
			return nil, algErr
		}
		return nil, errors.ErrNoMatchingRecipient
	}

	aad := j.contentAAD()
	var lastErr error
	for _, c := range candidates {
		params, err := keyParams(c.joint)
		if err != nil {
			return nil, err
		}
		cek, err := keymgmt.Unwrap(c.alg, enc, d.key, j.Recipients[c.index].EncryptedKey, params, &keymgmt.Options{
			Policy: d.opts.Policy,
			Rand:   d.opts.Rand,
		})
		if err != nil {
			if c.confirmed || !stderrors.Is(err, errors.ErrUnwrapFailed) {
				return nil, err
			}
			continue
		}

		plaintext, err := aead.Decrypt(enc, cek, j.Ciphertext, j.IV, j.Tag, aad)
		zeroize.Bytes(cek)
		if err != nil {
			// Without a kid the key may belong to a later recipient.
			if c.confirmed {
				return nil, err
			}
			lastErr = err
			continue
		}

		hdr, _ := header.Merge(j.Unprotected, j.Recipients[c.index].Header)
		return &Decrypted{
			Plaintext: plaintext,
			Protected: j.Protected.Clone(),
			Header:    hdr,
			Recipient: c.index,
		}, nil
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.ErrNoMatchingRecipient
}

// match decides whether recipient i can be addressed to the key and whether
// its kid confirms it.
func (d *Decrypter) match(i int, alg jwa.KeyAlgorithm, enc jwa.ContentEncryption, joint header.Parameters) (candidate, bool) {
	if !alg.AcceptsKeyType(d.kty) {
		return candidate{}, false
	}
	p, _ := alg.Params()
	switch p.Family {
	case jwa.FamilyDirect:
		if d.symLen != enc.KeyLen() {
			return candidate{}, false
		}
	case jwa.FamilyAESKW, jwa.FamilyAESGCMKW:
		if d.symLen != p.WrapKeyLen {
			return candidate{}, false
		}
	case jwa.FamilyECDHES, jwa.FamilyECDHESKW:
		if !d.curve.Supports(jwa.UsageKeyAgreement) {
			return candidate{}, false
		}
		if epk, err := joint.JWK(header.EphemeralPublicKey); err == nil && epk != nil && epk.Crv != d.curve.String() {
			return candidate{}, false
		}
	}

	c := candidate{index: i, alg: alg, joint: joint}
	kid, err := joint.String(header.KeyID)
	if err != nil {
		return candidate{}, false
	}
	if kid != "" && d.kid != "" {
		if kid != d.kid {
			return candidate{}, false
		}
		c.confirmed = true
	}
	return c, true
}

func contentEncryption(h header.Parameters) (jwa.ContentEncryption, error) {
	s, err := h.String(header.EncryptionAlgorithm)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrMalformedJWE, err)
	}
	if s == "" {
		return "", fmt.Errorf("%w: missing enc", errors.ErrMalformedJWE)
	}
	enc := jwa.ContentEncryption(s)
	if !enc.IsValid() {
		return "", fmt.Errorf("%w: enc %q", errors.ErrUnsupportedAlgorithm, s)
	}
	return enc, nil
}

func keyAlgorithm(h header.Parameters, policy *jwa.Policy) (jwa.KeyAlgorithm, error) {
	s, err := h.String(header.Algorithm)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrMalformedJWE, err)
	}
	if s == "" {
		return "", fmt.Errorf("%w: missing alg", errors.ErrMalformedJWE)
	}
	alg := jwa.KeyAlgorithm(s)
	if err := policy.CheckKeyAlgorithm(alg); err != nil {
		return "", err
	}
	return alg, nil
}

// keyParams extracts the key management parameters from a joint header.
func keyParams(h header.Parameters) (*keymgmt.Params, error) {
	var (
		p   keymgmt.Params
		err error
	)
	if p.EPK, err = h.JWK(header.EphemeralPublicKey); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedJWE, err)
	}
	for name, dst := range map[string]*[]byte{
		header.AgreementPartyU:      &p.APU,
		header.AgreementPartyV:      &p.APV,
		header.InitializationVector: &p.IV,
		header.AuthenticationTag:    &p.Tag,
		header.PBES2SaltInput:       &p.P2S,
	} {
		if *dst, err = h.Bytes(name); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrMalformedJWE, err)
		}
	}
	if p.P2C, err = h.Int(header.PBES2Count); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedJWE, err)
	}
	return &p, nil
}
