// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mandrill

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
	"github.com/mia-platform/mandrill-webhook/internal/logger"
)

const (
	registrarLoggerName = "mandrill-webhook:registrar"
)

// Registrar adds and removes the Mandrill webhook.
type Registrar struct {
	doer HTTPDoer
}

// NewRegistrar returns a Registrar that sends its requests through doer. A nil doer means a
// plain *http.Client relying on the transport defaults.
func NewRegistrar(doer HTTPDoer) *Registrar {
	if doer == nil {
		doer = &http.Client{}
	}
	return &Registrar{doer: doer}
}

// Activate registers a webhook delivering events to the FLOW_WEBHOOK_URI url and returns the
// state needed to remove it later. No request is sent when configuration or environment are
// not valid.
func (r *Registrar) Activate(ctx context.Context, configuration lifecycle.Configuration, environment lifecycle.Environment) (lifecycle.State, error) {
	log := logger.FromContext(ctx).WithName(registrarLoggerName)

	key, err := apiKey(configuration)
	if err != nil {
		return lifecycle.State{}, err
	}

	events, description, err := subscriptionOptions(configuration)
	if err != nil {
		return lifecycle.State{}, err
	}

	uri, err := webhookURI(environment)
	if err != nil {
		return lifecycle.State{}, err
	}

	base, err := baseURL(environment)
	if err != nil {
		return lifecycle.State{}, err
	}

	log.Info("about to add the webhook", "url", uri, "baseUrl", base)
	c := &client{baseURL: base, doer: r.doer}
	created, err := c.addWebhook(ctx, addWebhookRequest{
		Key:         key,
		URL:         uri,
		Description: description,
		Events:      events,
	})
	if err != nil {
		return lifecycle.State{}, err
	}

	state := lifecycle.State{
		ID:          string(created.ID),
		URL:         created.URL,
		AuthKey:     created.AuthKey,
		Description: created.Description,
		Events:      created.Events,
		CreatedAt:   created.createdAt(),
	}
	if state.URL == "" {
		state.URL = uri
	}

	log.Info("webhook added", "id", state.ID, "events", state.Events)
	return state, nil
}

// Deactivate removes the webhook recorded in state. Failures of the API are returned as is:
// the webhook may still exist on the provider side.
func (r *Registrar) Deactivate(ctx context.Context, configuration lifecycle.Configuration, environment lifecycle.Environment, state lifecycle.State) error {
	log := logger.FromContext(ctx).WithName(registrarLoggerName)

	key, err := apiKey(configuration)
	if err != nil {
		return err
	}

	if err := validateID(state.ID); err != nil {
		return err
	}

	base, err := baseURL(environment)
	if err != nil {
		return err
	}

	log.Info("about to delete the webhook", "id", state.ID, "baseUrl", base)
	c := &client{baseURL: base, doer: r.doer}
	if err := c.deleteWebhook(ctx, deleteWebhookRequest{Key: key, ID: state.ID}); err != nil {
		log.Error("webhook deletion failed, it may still be registered", "id", state.ID, "error", err.Error())
		return err
	}

	log.Info("webhook deleted", "id", state.ID)
	return nil
}

// validateID checks that id can identify a webhook.
func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: missing webhook id", ErrState)
	}

	if strings.IndexFunc(id, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return fmt.Errorf("%w: malformed webhook id %q", ErrState, id)
	}
	return nil
}
