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

// Package jwe implements JSON Web Encryption (RFC 7516) in the compact,
// flattened JSON and general JSON serializations.
//
// One random content encryption key (CEK) and IV are drawn per message. The
// CEK is delivered to every recipient by that recipient's key management
// algorithm; at most one recipient may use a direct algorithm (dir or
// ECDH-ES), in which case that recipient determines the CEK and every other
// recipient wraps it.
//
// # Header placement
//
//   - Compact: every parameter sits in the protected header.
//   - Flattened: the recipient's parameters sit in the protected header, the
//     caller's shared unprotected header in "unprotected", and optional
//     additional authenticated data in "aad".
//   - General: the protected header carries "enc" and any caller protected
//     parameters; each recipient header carries "alg", "kid" and the
//     algorithm's parameters ("epk", "iv", "tag", "p2s", "p2c", ...).
//
// Parameter names must be disjoint across the protected, shared unprotected
// and per-recipient headers. "zip" and "crit" are not supported and are
// rejected on both encryption and decryption.
//
// # Decryption
//
// A Decrypter selects recipients whose algorithm accepts the key's type and
// size, narrows them by "kid" (the key's explicit kid or its RFC 7638
// thumbprint), and tries each remaining candidate in order:
//
//	no candidate                           errors.ErrNoMatchingRecipient
//	kid-confirmed candidate fails unwrap   the unwrap error
//	unconfirmed candidate fails unwrap     skipped
//	content authentication fails           errors.ErrAuthenticationFailed
//
// # DIDComm
//
// With EncryptOptions.DIDComm set, the protected "typ" is
// "application/didcomm-encrypted+json", every recipient must be identified
// by "kid", and ECDH-ES recipients bind the sorted recipient kids into the
// Concat KDF through a protected "apv".
//
// Example usage:
//
//	enc, err := jwe.NewEncrypter(jwa.A256GCM, []jwe.Recipient{
//	    {Algorithm: jwa.ECDHES, Key: alicePub},
//	    {Algorithm: jwa.A256KW, Key: sharedKey},
//	}, nil)
//	msg, err := enc.EncryptGeneral([]byte("secret"))
//
//	dec, err := jwe.NewDecrypter(sharedKey, nil)
//	out, err := dec.DecryptBytes(msg)
package jwe
