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

package zeroize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytes(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	Bytes(buf)
	assert.Equal(t, []byte{0, 0, 0, 0}, buf)
}

func TestAll(t *testing.T) {
	a := []byte{0xff, 0xee}
	b := []byte{0x01}
	All(a, nil, b)
	assert.Equal(t, []byte{0, 0}, a)
	assert.Equal(t, []byte{0}, b)
}

func TestBytesNil(t *testing.T) {
	assert.NotPanics(t, func() { Bytes(nil) })
}
