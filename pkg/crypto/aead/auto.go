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

// Package aead provides automatic content encryption selection based on
// hardware capabilities.
//
// When a caller leaves "enc" empty the engine picks:
//
//   - A256GCM when the CPU has AES instructions (AES-NI on amd64, the ARMv8
//     crypto extensions on arm64).
//   - A256CBC-HS512 otherwise, which avoids software GHASH and runs on
//     SHA-512.
//
// Example usage:
//
//	enc := aead.SelectOptimal()
//	if aead.HasAESNI() {
//	    fmt.Println("CPU supports hardware AES acceleration")
//	}
package aead

import (
	"runtime"

	"golang.org/x/sys/cpu"

	"github.com/jeremyhahn/go-josekit/pkg/jwa"
)

// HasAESNI returns true if the CPU has hardware AES support.
//
// Supported architectures:
//   - amd64: Checks X86.HasAES
//   - arm64: Checks ARM64.HasAES
//   - Other architectures return false
func HasAESNI() bool {
	switch runtime.GOARCH {
	case "amd64":
		return cpu.X86.HasAES && cpu.X86.HasPCLMULQDQ
	case "arm64":
		return cpu.ARM64.HasAES && cpu.ARM64.HasPMULL
	default:
		return false
	}
}

// SelectOptimal returns the content encryption algorithm best suited to the
// current CPU.
func SelectOptimal() jwa.ContentEncryption {
	if HasAESNI() {
		return jwa.A256GCM
	}
	return jwa.A256CBCHS512
}

// Resolve returns enc, or SelectOptimal when enc is empty.
func Resolve(enc jwa.ContentEncryption) jwa.ContentEncryption {
	if enc == "" {
		return SelectOptimal()
	}
	return enc
}

// IsAESGCM returns true if enc is an AES-GCM variant.
func IsAESGCM(enc jwa.ContentEncryption) bool {
	switch enc {
	case jwa.A128GCM, jwa.A192GCM, jwa.A256GCM:
		return true
	default:
		return false
	}
}

// IsCBCHMAC returns true if enc is an AES-CBC + HMAC-SHA2 composite.
func IsCBCHMAC(enc jwa.ContentEncryption) bool {
	switch enc {
	case jwa.A128CBCHS256, jwa.A192CBCHS384, jwa.A256CBCHS512:
		return true
	default:
		return false
	}
}
