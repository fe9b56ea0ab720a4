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

package result

import (
	"sync"

	"github.com/jeremyhahn/go-josekit/pkg/crypto/zeroize"
	"github.com/jeremyhahn/go-josekit/pkg/errors"
)

// JSONString is an owned output buffer holding UTF-8 JSON text. The caller
// releases it exactly once; release clears the bytes. Releasing twice, or
// reading after release, is reported as ErrAlreadyReleased.
type JSONString struct {
	mu       sync.Mutex
	data     []byte
	released bool
}

// NewJSONString takes ownership of data.
func NewJSONString(data []byte) *JSONString {
	return &JSONString{data: data}
}

// Bytes returns the JSON text. The slice is owned by s and becomes zeroed
// when s is released.
func (s *JSONString) Bytes() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, errors.ErrAlreadyReleased
	}
	return s.data, nil
}

// String returns a copy of the JSON text, or the empty string once released.
func (s *JSONString) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return ""
	}
	return string(s.data)
}

// Len returns the length of the JSON text in bytes.
func (s *JSONString) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Release zeroes and drops the buffer.
func (s *JSONString) Release() error {
	if s == nil {
		return errors.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return errors.ErrAlreadyReleased
	}
	zeroize.Bytes(s.data)
	s.data = nil
	s.released = true
	return nil
}

// Released reports whether Release has been called.
func (s *JSONString) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
