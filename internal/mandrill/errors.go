// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mandrill

import (
	"errors"
	"strconv"
	"strings"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
)

// unknownWebhookErrorName is the error name returned for webhook ids the account does not have.
const unknownWebhookErrorName = "Unknown_Webhook"

var (
	// ErrConfiguration reports a missing or invalid value in the host configuration.
	ErrConfiguration = errors.New("configuration not valid")
	// ErrEnvironment reports a missing or invalid environment variable.
	ErrEnvironment = errors.New("environment not valid")
	// ErrState reports a persisted state that cannot be used to remove the webhook.
	ErrState = errors.New("persisted state not valid")
	// ErrProvider is wrapped by every ProviderError.
	ErrProvider = errors.New("mandrill api error")
	// ErrPayload reports a delivery whose events cannot be decoded.
	ErrPayload = errors.New("payload not valid")
	// ErrEmit reports a failure of the sink while emitting a record.
	ErrEmit = errors.New("error emitting record")
	// ErrSignature reports a delivery whose signature does not match.
	ErrSignature = errors.New("webhook signature mismatch")
)

// ProviderError describes a failed call to the Mandrill API.
type ProviderError struct {
	// Path is the API path that was called.
	Path string
	// StatusCode is the HTTP status returned by the API, zero if no response was received.
	StatusCode int
	// Code, Name and Message are copied from the Mandrill error body when present.
	Code    int
	Name    string
	Message string

	err error
}

func (e *ProviderError) Error() string {
	builder := new(strings.Builder)
	builder.WriteString(ErrProvider.Error())
	builder.WriteString(": " + e.Path)
	if e.StatusCode != 0 {
		builder.WriteString(" returned " + strconv.Itoa(e.StatusCode))
	}
	if e.Name != "" {
		builder.WriteString(" " + e.Name)
	}
	if e.Message != "" {
		builder.WriteString(": " + e.Message)
	}
	if e.err != nil {
		builder.WriteString(": " + e.err.Error())
	}
	return builder.String()
}

func (e *ProviderError) Unwrap() []error {
	errs := []error{ErrProvider}
	if e.Name == unknownWebhookErrorName {
		errs = append(errs, lifecycle.ErrSubscriptionNotFound)
	}
	if e.err != nil {
		errs = append(errs, e.err)
	}
	return errs
}
