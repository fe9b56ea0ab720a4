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

// Package result implements the result surface of the JOSE engine: numeric
// result codes for every error kind and owned JSON output buffers that the
// caller must release exactly once.
//
// The numeric values are part of the external contract and never change:
//
//	0   Success
//	1   UnsupportedAlgorithm
//	2   UnsupportedCurve
//	3   MalformedKey
//	4   InvalidKeyLength
//	5   InvalidIvLength
//	6   AuthenticationFailed
//	7   KeyAgreementFailed
//	8   UnwrapFailed
//	9   InvalidKeyType
//	10  NoMatchingRecipient
//	11  MalformedJwe
//	12  MalformedJws
//	13  SignatureInvalid
//	14  UnsupportedAlgorithmForKey
//	15  InvalidArgument
//	16  AlreadyReleased
//	255 Internal
package result

import (
	stderrors "errors"

	"github.com/jeremyhahn/go-josekit/pkg/errors"
)

// Code is the numeric result of an engine operation. Zero means success.
type Code int32

const (
	CodeSuccess                    Code = 0
	CodeUnsupportedAlgorithm       Code = 1
	CodeUnsupportedCurve           Code = 2
	CodeMalformedKey               Code = 3
	CodeInvalidKeyLength           Code = 4
	CodeInvalidIvLength            Code = 5
	CodeAuthenticationFailed       Code = 6
	CodeKeyAgreementFailed         Code = 7
	CodeUnwrapFailed               Code = 8
	CodeInvalidKeyType             Code = 9
	CodeNoMatchingRecipient        Code = 10
	CodeMalformedJWE               Code = 11
	CodeMalformedJWS               Code = 12
	CodeSignatureInvalid           Code = 13
	CodeUnsupportedAlgorithmForKey Code = 14
	CodeInvalidArgument            Code = 15
	CodeAlreadyReleased            Code = 16

	// CodeInternal is returned for errors that do not wrap a known kind.
	CodeInternal Code = 255
)

// mapping is ordered; the first sentinel matched by errors.Is wins.
var mapping = []struct {
	err  error
	code Code
}{
	{errors.ErrUnsupportedAlgorithmForKey, CodeUnsupportedAlgorithmForKey},
	{errors.ErrUnsupportedAlgorithm, CodeUnsupportedAlgorithm},
	{errors.ErrUnsupportedCurve, CodeUnsupportedCurve},
	{errors.ErrMalformedKey, CodeMalformedKey},
	{errors.ErrInvalidKeyLength, CodeInvalidKeyLength},
	{errors.ErrInvalidIvLength, CodeInvalidIvLength},
	{errors.ErrAuthenticationFailed, CodeAuthenticationFailed},
	{errors.ErrKeyAgreementFailed, CodeKeyAgreementFailed},
	{errors.ErrUnwrapFailed, CodeUnwrapFailed},
	{errors.ErrInvalidKeyType, CodeInvalidKeyType},
	{errors.ErrNoMatchingRecipient, CodeNoMatchingRecipient},
	{errors.ErrMalformedJWE, CodeMalformedJWE},
	{errors.ErrMalformedJWS, CodeMalformedJWS},
	{errors.ErrSignatureInvalid, CodeSignatureInvalid},
	{errors.ErrInvalidArgument, CodeInvalidArgument},
	{errors.ErrAlreadyReleased, CodeAlreadyReleased},
}

var names = map[Code]string{
	CodeSuccess:                    "Success",
	CodeUnsupportedAlgorithm:       "UnsupportedAlgorithm",
	CodeUnsupportedCurve:           "UnsupportedCurve",
	CodeMalformedKey:               "MalformedKey",
	CodeInvalidKeyLength:           "InvalidKeyLength",
	CodeInvalidIvLength:            "InvalidIvLength",
	CodeAuthenticationFailed:       "AuthenticationFailed",
	CodeKeyAgreementFailed:         "KeyAgreementFailed",
	CodeUnwrapFailed:               "UnwrapFailed",
	CodeInvalidKeyType:             "InvalidKeyType",
	CodeNoMatchingRecipient:        "NoMatchingRecipient",
	CodeMalformedJWE:               "MalformedJwe",
	CodeMalformedJWS:               "MalformedJws",
	CodeSignatureInvalid:           "SignatureInvalid",
	CodeUnsupportedAlgorithmForKey: "UnsupportedAlgorithmForKey",
	CodeInvalidArgument:            "InvalidArgument",
	CodeAlreadyReleased:            "AlreadyReleased",
	CodeInternal:                   "Internal",
}

// CodeOf classifies err. A nil error is CodeSuccess.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	for _, m := range mapping {
		if stderrors.Is(err, m.err) {
			return m.code
		}
	}
	return CodeInternal
}

// String returns the error kind name of the code.
func (c Code) String() string {
	if name, ok := names[c]; ok {
		return name
	}
	return "Unknown"
}

// IsSuccess reports whether c is CodeSuccess.
func (c Code) IsSuccess() bool {
	return c == CodeSuccess
}

// Err returns the sentinel error for c, or nil for CodeSuccess.
func (c Code) Err() error {
	if c == CodeSuccess {
		return nil
	}
	for _, m := range mapping {
		if m.code == c {
			return m.err
		}
	}
	return stderrors.New("jose: internal error")
}
