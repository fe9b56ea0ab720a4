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

// Package correlation generates the ids that tie the log records of one
// engine call together. SlogAdapter's context methods add the id carried
// by a context to every record.
package correlation

import (
	"context"

	"github.com/google/uuid"
)

// LogKey is the structured logging field name for the id.
const LogKey = "correlation_id"

type idKey struct{}

// NewID returns a random UUID v4.
func NewID() string {
	return uuid.New().String()
}

// WithID returns a copy of ctx carrying id. A nil ctx is treated as
// context.Background.
func WithID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, idKey{}, id)
}

// ID returns the id carried by ctx, or "".
func ID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(idKey{}).(string)
	return id
}
