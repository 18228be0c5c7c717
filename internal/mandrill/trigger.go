// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mandrill

import (
	"context"
	"fmt"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
	"github.com/mia-platform/mandrill-webhook/internal/sink"
)

var _ lifecycle.Module = &Trigger{}
var _ lifecycle.Authenticator = &Trigger{}

// Trigger binds the Registrar and the EventTranslator to the host lifecycle.
type Trigger struct {
	registrar  *Registrar
	translator *EventTranslator
}

// NewTrigger returns a Trigger whose API calls go through doer, nil selects a default client.
func NewTrigger(doer HTTPDoer) *Trigger {
	return &Trigger{
		registrar:  NewRegistrar(doer),
		translator: NewEventTranslator(),
	}
}

// Startup implements lifecycle.Module.
func (t *Trigger) Startup(ctx context.Context, configuration lifecycle.Configuration, environment lifecycle.Environment) (lifecycle.State, error) {
	return t.registrar.Activate(ctx, configuration, environment)
}

// Execute implements lifecycle.Module.
func (t *Trigger) Execute(ctx context.Context, message lifecycle.Message, emitter sink.Emitter) error {
	_, err := t.translator.Forward(ctx, message, emitter)
	return err
}

// Shutdown implements lifecycle.Module.
func (t *Trigger) Shutdown(ctx context.Context, configuration lifecycle.Configuration, environment lifecycle.Environment, state lifecycle.State) error {
	return t.registrar.Deactivate(ctx, configuration, environment, state)
}

// Authenticate implements lifecycle.Authenticator checking the delivery signature against the
// auth key recorded in state. Only string body fields take part in the signature.
func (t *Trigger) Authenticate(_ context.Context, state lifecycle.State, message lifecycle.Message) error {
	if state.AuthKey == "" {
		return fmt.Errorf("%w: no auth key recorded for webhook %s", ErrSignature, state.ID)
	}

	signature := message.Headers[SignatureHeader]
	if signature == "" {
		return fmt.Errorf("%w: missing %s header", ErrSignature, SignatureHeader)
	}

	params := make(map[string]string, len(message.Body))
	for name, value := range message.Body {
		if s, ok := value.(string); ok {
			params[name] = s
		}
	}

	if !VerifySignature(state.AuthKey, state.URL, params, signature) {
		return ErrSignature
	}
	return nil
}
