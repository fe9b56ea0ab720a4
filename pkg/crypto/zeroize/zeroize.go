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

// Package zeroize clears sensitive byte slices once they are no longer needed.
package zeroize

import "runtime"

// Bytes overwrites buf with zeros. runtime.KeepAlive keeps the compiler from
// eliding the stores (golang/go#33325). Copies made elsewhere by the runtime or
// by crypto libraries are not reachable from here.
func Bytes(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	runtime.KeepAlive(buf)
}

// All clears every slice in bufs.
func All(bufs ...[]byte) {
	for _, b := range bufs {
		Bytes(b)
	}
}
