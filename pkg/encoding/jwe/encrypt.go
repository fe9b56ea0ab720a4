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
	"crypto/sha256"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jeremyhahn/go-josekit/pkg/crypto/aead"
	"github.com/jeremyhahn/go-josekit/pkg/crypto/keymgmt"
	jrand "github.com/jeremyhahn/go-josekit/pkg/crypto/rand"
	"github.com/jeremyhahn/go-josekit/pkg/crypto/zeroize"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/header"
	"github.com/jeremyhahn/go-josekit/pkg/encoding/jwk"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// DIDCommEncryptedType is the protected "typ" of DIDComm encrypted messages.
const DIDCommEncryptedType = "application/didcomm-encrypted+json"

// Recipient describes one intended recipient.
type Recipient struct {
	// Algorithm is the key management algorithm. When empty the "alg"
	// member of a *jwk.JWK key is used.
	Algorithm jwa.KeyAlgorithm

	// Key is the recipient's public key, shared symmetric key or PBES2
	// password, as a Go key value or a *jwk.JWK.
	Key any

	// KeyID overrides the "kid" placed in the recipient header. By default
	// the JWK kid is used, or the RFC 7638 thumbprint for asymmetric keys.
	KeyID string

	// Header holds extra per-recipient unprotected parameters.
	Header header.Parameters
}

// EncryptOptions tunes an Encrypter. A nil *EncryptOptions selects the
// defaults.
type EncryptOptions struct {
	// Protected holds extra protected header parameters such as "typ" or
	// "cty".
	Protected header.Parameters

	// Unprotected is the shared unprotected header (JSON forms only).
	Unprotected header.Parameters

	// AAD is the JWE AAD value (JSON forms only).
	AAD []byte

	// APU is sent as "apu" to ECDH-ES recipients.
	APU []byte

	// APV is sent as "apv" to ECDH-ES recipients. DIDComm computes it.
	APV []byte

	// P2C is the PBES2 iteration count.
	P2C int

	// DIDComm marks the message as a DIDComm encrypted envelope.
	DIDComm bool

	Policy *jwa.Policy
	Rand   io.Reader
}

type resolvedRecipient struct {
	alg jwa.KeyAlgorithm
	key any
	kid string
	hdr header.Parameters
}

// Encrypter produces JWE messages for a fixed set of recipients.
type Encrypter struct {
	enc        jwa.ContentEncryption
	recipients []resolvedRecipient
	opts       EncryptOptions
	apv        []byte
}

// NewEncrypter validates the recipients against enc and the policy.
func NewEncrypter(enc jwa.ContentEncryption, recipients []Recipient, opts *EncryptOptions) (*Encrypter, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient is required", errors.ErrInvalidArgument)
	}
	e := &Encrypter{enc: enc}
	if opts != nil {
		e.opts = *opts
	}
	if err := e.opts.Policy.CheckContentEncryption(enc); err != nil {
		return nil, err
	}
	for _, h := range []header.Parameters{e.opts.Protected, e.opts.Unprotected} {
		if err := checkUnsupported(h); err != nil {
			return nil, err
		}
	}

	direct := 0
	for i, r := range recipients {
		rr, err := resolveRecipient(r, e.opts.Policy)
		if err != nil {
			return nil, fmt.Errorf("recipient %d: %w", i, err)
		}
		if rr.alg.IsDirect() {
			direct++
		}
		if e.opts.DIDComm && rr.kid == "" {
			return nil, fmt.Errorf("%w: recipient %d: DIDComm recipients must have a kid", errors.ErrInvalidArgument, i)
		}
		e.recipients = append(e.recipients, rr)
	}
	if direct > 1 {
		return nil, fmt.Errorf("%w: at most one dir or ECDH-ES recipient per message", errors.ErrInvalidArgument)
	}
	if direct == 1 && len(e.recipients) > 1 {
		// The direct recipient chooses the CEK, so it must be wrapped first.
		sort.SliceStable(e.recipients, func(a, b int) bool {
			return e.recipients[a].alg.IsDirect() && !e.recipients[b].alg.IsDirect()
		})
	}

	if e.opts.DIDComm {
		e.apv = didcommAPV(e.recipients)
	} else {
		e.apv = e.opts.APV
	}
	return e, nil
}

func resolveRecipient(r Recipient, policy *jwa.Policy) (resolvedRecipient, error) {
	if r.Key == nil {
		return resolvedRecipient{}, fmt.Errorf("%w: nil recipient key", errors.ErrInvalidArgument)
	}
	if err := checkUnsupported(r.Header); err != nil {
		return resolvedRecipient{}, err
	}
	rr := resolvedRecipient{alg: r.Algorithm, key: r.Key, kid: r.KeyID, hdr: r.Header}

	j, isJWK := r.Key.(*jwk.JWK)
	if isJWK {
		if rr.alg == "" {
			rr.alg = jwa.KeyAlgorithm(j.Alg)
		}
		if err := confirmKey(j, rr.alg); err != nil {
			return resolvedRecipient{}, err
		}
		var err error
		if j.IsSymmetric() {
			rr.key, err = j.ToSymmetricKey()
		} else {
			rr.key, err = j.ToPublicKey()
		}
		if err != nil {
			return resolvedRecipient{}, err
		}
	}
	if err := policy.CheckKeyAlgorithm(rr.alg); err != nil {
		return resolvedRecipient{}, err
	}

	if rr.kid == "" {
		if !isJWK {
			if _, symmetric := rr.key.([]byte); !symmetric {
				var err error
				if j, err = jwk.FromKey(rr.key); err != nil {
					return resolvedRecipient{}, fmt.Errorf("%w: %v", errors.ErrInvalidKeyType, err)
				}
			}
		}
		if j != nil {
			var err error
			if rr.kid, err = j.KeyID(); err != nil {
				return resolvedRecipient{}, err
			}
		}
	}
	return rr, nil
}

// confirmKey checks the JWK "alg" and "use" members against alg.
func confirmKey(j *jwk.JWK, alg jwa.KeyAlgorithm) error {
	if j.Alg != "" && j.Alg != alg.String() {
		return fmt.Errorf("%w: key is restricted to %s", errors.ErrUnsupportedAlgorithmForKey, j.Alg)
	}
	if j.Use != "" && j.Use != jwk.UseEncryption {
		return fmt.Errorf("%w: key use is %q", errors.ErrUnsupportedAlgorithmForKey, j.Use)
	}
	return nil
}

// didcommAPV is SHA-256 over the sorted recipient kids joined by ".".
func didcommAPV(recipients []resolvedRecipient) []byte {
	kids := make([]string, len(recipients))
	for i, r := range recipients {
		kids[i] = r.kid
	}
	sort.Strings(kids)
	sum := sha256.Sum256([]byte(strings.Join(kids, ".")))
	return sum[:]
}

// EncryptCompact encrypts plaintext to the compact serialization.
func (e *Encrypter) EncryptCompact(plaintext []byte) (string, error) {
	j, err := e.Encrypt(plaintext, Compact)
	if err != nil {
		return "", err
	}
	return j.CompactSerialize()
}

// EncryptFlattened encrypts plaintext to the flattened JSON serialization.
func (e *Encrypter) EncryptFlattened(plaintext []byte) ([]byte, error) {
	j, err := e.Encrypt(plaintext, Flattened)
	if err != nil {
		return nil, err
	}
	return j.FlattenedSerialize()
}

// EncryptGeneral encrypts plaintext to the general JSON serialization.
func (e *Encrypter) EncryptGeneral(plaintext []byte) ([]byte, error) {
	j, err := e.Encrypt(plaintext, General)
	if err != nil {
		return nil, err
	}
	return j.GeneralSerialize()
}

// Encrypt encrypts plaintext and lays out the headers for form.
func (e *Encrypter) Encrypt(plaintext []byte, form Form) (*JSONWebEncryption, error) {
	switch form {
	case Compact:
		if len(e.opts.Unprotected) > 0 || len(e.opts.AAD) > 0 {
			return nil, fmt.Errorf("%w: compact serialization cannot carry unprotected headers or aad", errors.ErrInvalidArgument)
		}
		fallthrough
	case Flattened:
		if len(e.recipients) != 1 {
			return nil, fmt.Errorf("%w: %s serialization requires exactly one recipient", errors.ErrInvalidArgument, form)
		}
	case General:
	default:
		return nil, fmt.Errorf("%w: unknown serialization %s", errors.ErrInvalidArgument, form)
	}

	kmOpts := &keymgmt.Options{
		Policy: e.opts.Policy,
		Rand:   jrand.Or(e.opts.Rand),
		APU:    e.opts.APU,
		APV:    e.apv,
		P2C:    e.opts.P2C,
	}

	var cek []byte
	defer func() { zeroize.Bytes(cek) }()

	perRecipient := make([]header.Parameters, len(e.recipients))
	encryptedKeys := make([][]byte, len(e.recipients))
	for i, r := range e.recipients {
		kmOpts.CEK = cek
		w, err := keymgmt.Wrap(r.alg, e.enc, r.key, kmOpts)
		if err != nil {
			return nil, fmt.Errorf("recipient %d: %w", i, err)
		}
		if cek == nil {
			cek = w.CEK
		}
		h := recipientHeader(r, w.Params)
		// DIDComm binds apv once for the whole message.
		if e.opts.DIDComm {
			delete(h, header.AgreementPartyV)
		}
		perRecipient[i] = h
		encryptedKeys[i] = w.EncryptedKey
	}

	protected := header.Parameters{header.EncryptionAlgorithm: e.enc.String()}
	if e.opts.DIDComm {
		protected[header.Type] = DIDCommEncryptedType
		if hasKeyAgreement(e.recipients) {
			protected.SetBytes(header.AgreementPartyV, e.apv)
		}
	}
	for k, v := range e.opts.Protected {
		if _, set := protected[k]; !set {
			protected[k] = v
		}
	}

	j := &JSONWebEncryption{
		Recipients: make([]RecipientInfo, len(e.recipients)),
	}
	if form == General {
		j.Unprotected = e.opts.Unprotected.Clone()
		for i := range e.recipients {
			j.Recipients[i] = RecipientInfo{Header: perRecipient[i], EncryptedKey: encryptedKeys[i]}
		}
	} else {
		merged, err := header.Merge(protected, perRecipient[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidArgument, err)
		}
		protected = merged
		j.Recipients[0] = RecipientInfo{EncryptedKey: encryptedKeys[0]}
		if form == Flattened {
			j.Unprotected = e.opts.Unprotected.Clone()
		}
	}
	if form != Compact {
		j.AAD = e.opts.AAD
	}

	for i := range j.Recipients {
		if _, err := header.Merge(protected, j.Unprotected, j.Recipients[i].Header); err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrInvalidArgument, err)
		}
	}

	protectedRaw, err := header.EncodeProtected(protected)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidArgument, err)
	}
	j.Protected = protected
	j.protectedRaw = protectedRaw

	if j.IV, err = aead.GenerateIV(e.enc, kmOpts.Rand); err != nil {
		return nil, err
	}
	if j.Ciphertext, j.Tag, err = aead.Encrypt(e.enc, cek, j.IV, plaintext, j.contentAAD()); err != nil {
		return nil, err
	}
	return j, nil
}

// recipientHeader collects "alg", "kid", the key management parameters and
// the caller's extra parameters for one recipient.
func recipientHeader(r resolvedRecipient, p keymgmt.Params) header.Parameters {
	h := header.Parameters{header.Algorithm: r.alg.String()}
	if r.kid != "" {
		h[header.KeyID] = r.kid
	}
	if p.EPK != nil {
		h[header.EphemeralPublicKey] = p.EPK
	}
	h.SetBytes(header.AgreementPartyU, p.APU)
	h.SetBytes(header.AgreementPartyV, p.APV)
	h.SetBytes(header.InitializationVector, p.IV)
	h.SetBytes(header.AuthenticationTag, p.Tag)
	h.SetBytes(header.PBES2SaltInput, p.P2S)
	if p.P2C != 0 {
		h[header.PBES2Count] = p.P2C
	}
	for k, v := range r.hdr {
		if _, set := h[k]; !set {
			h[k] = v
		}
	}
	return h
}

func hasKeyAgreement(recipients []resolvedRecipient) bool {
	for _, r := range recipients {
		if r.alg.IsKeyAgreement() {
			return true
		}
	}
	return false
}
