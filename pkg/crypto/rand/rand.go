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

// Package rand provides the random source used for key generation, CEKs,
// IVs, ephemeral keys and salts.
//
// The engine draws all randomness through a Resolver so callers can supply an
// alternative entropy source:
//
//	// Operating system CSPRNG (crypto/rand)
//	r, _ := rand.NewResolver(nil)
//
//	// Caller supplied source, serialized behind a mutex
//	r, _ := rand.NewResolver(&rand.Config{Mode: rand.ModeReader, Reader: src})
//
//	iv, err := r.Rand(12)
//
// Every Resolver is safe for concurrent use.
package rand

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
)

// Mode selects the entropy source.
type Mode string

const (
	// ModeAuto selects the best available source, currently the operating
	// system CSPRNG.
	ModeAuto Mode = "auto"

	// ModeSoftware uses crypto/rand.
	ModeSoftware Mode = "software"

	// ModeReader reads from Config.Reader.
	ModeReader Mode = "reader"
)

// Config configures a Resolver.
type Config struct {
	Mode Mode

	// Reader is the source for ModeReader.
	Reader io.Reader
}

// Resolver produces random bytes.
type Resolver interface {
	// Rand returns n random bytes.
	Rand(n int) ([]byte, error)

	// Read implements io.Reader so a Resolver can be passed to crypto APIs.
	Read(p []byte) (n int, err error)

	// Available reports whether the source can produce bytes.
	Available() bool

	// Close releases the source.
	Close() error
}

var defaultResolver Resolver = &SoftwareResolver{}

// Default returns the process-wide crypto/rand backed resolver.
func Default() Resolver {
	return defaultResolver
}

// Reader is Default as an io.Reader.
var Reader io.Reader = defaultResolver

// Bytes returns n bytes from the default resolver.
func Bytes(n int) ([]byte, error) {
	return defaultResolver.Rand(n)
}

// NewResolver creates a Resolver for cfg. A nil cfg or empty Mode selects
// ModeAuto.
func NewResolver(cfg *Config) (Resolver, error) {
	if cfg == nil {
		cfg = &Config{Mode: ModeAuto}
	}
	switch cfg.Mode {
	case "", ModeAuto, ModeSoftware:
		return &SoftwareResolver{}, nil
	case ModeReader:
		if cfg.Reader == nil {
			return nil, fmt.Errorf("rand: reader mode requires a reader")
		}
		return &readerResolver{r: cfg.Reader}, nil
	default:
		return nil, fmt.Errorf("rand: unknown mode: %s", cfg.Mode)
	}
}

// Or returns r when it is non-nil and the default reader otherwise.
func Or(r io.Reader) io.Reader {
	if r != nil {
		return r
	}
	return Reader
}

// SoftwareResolver reads from crypto/rand.
type SoftwareResolver struct{}

var _ Resolver = (*SoftwareResolver)(nil)

// Rand returns n bytes from crypto/rand.
func (s *SoftwareResolver) Rand(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("rand: negative length %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("rand: %w", err)
	}
	return buf, nil
}

// Read fills p from crypto/rand.
func (s *SoftwareResolver) Read(p []byte) (int, error) {
	return rand.Read(p)
}

// Available always reports true.
func (s *SoftwareResolver) Available() bool {
	return true
}

// Close is a no-op.
func (s *SoftwareResolver) Close() error {
	return nil
}

type readerResolver struct {
	mu sync.Mutex
	r  io.Reader
}

func (rr *readerResolver) Rand(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("rand: negative length %d", n)
	}
	buf := make([]byte, n)
	if _, err := rr.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (rr *readerResolver) Read(p []byte) (int, error) {
	rr.mu.Lock()
	defer rr.mu.Unlock()
	n, err := io.ReadFull(rr.r, p)
	if err != nil {
		return n, fmt.Errorf("rand: %w", err)
	}
	return n, nil
}

func (rr *readerResolver) Available() bool {
	return rr.r != nil
}

func (rr *readerResolver) Close() error {
	if c, ok := rr.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
