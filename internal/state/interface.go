// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package state

import (
	"context"
	"errors"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
)

// ErrNotFound is returned by Load when no state has been saved.
var ErrNotFound = errors.New("state not found")

// Store persists a single lifecycle.State.
type Store interface {
	// Save overwrites any previously saved state.
	Save(ctx context.Context, state lifecycle.State) error
	// Load returns the saved state or ErrNotFound.
	Load(ctx context.Context) (lifecycle.State, error)
	// Delete removes the saved state, deleting a missing state is not an error.
	Delete(ctx context.Context) error
}
