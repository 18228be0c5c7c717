// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package lifecycle

import (
	"context"
	"errors"

	"github.com/mia-platform/mandrill-webhook/internal/sink"
)

// ErrSubscriptionNotFound is wrapped by the errors a Module returns from Shutdown when the
// provider does not know the subscription anymore.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// Module is implemented by triggers that own an external subscription.
type Module interface {
	// Startup creates the external subscription and returns the state the host must persist.
	Startup(ctx context.Context, configuration Configuration, environment Environment) (State, error)
	// Execute handles a single inbound delivery, emitting its records through emitter.
	// It must be safe to call concurrently.
	Execute(ctx context.Context, message Message, emitter sink.Emitter) error
	// Shutdown removes the external subscription identified by state.
	Shutdown(ctx context.Context, configuration Configuration, environment Environment, state State) error
}

// Authenticator is optionally implemented by modules able to verify that a delivery was
// sent by the provider owning the subscription recorded in state.
type Authenticator interface {
	Authenticate(ctx context.Context, state State, message Message) error
}
