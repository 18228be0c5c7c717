// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/caarlos0/env/v11"

	"github.com/mia-platform/mandrill-webhook/internal/info"
	"github.com/mia-platform/mandrill-webhook/internal/logger"
	"github.com/mia-platform/mandrill-webhook/internal/sink"
)

const (
	loggerName = "mandrill-webhook:sink:forward"

	recordIDHeaderName = "X-Record-Id"
)

var _ sink.Emitter = &forwardEmitter{}

// ForwardError wraps every error returned by the forward emitter.
type ForwardError struct {
	err error
}

func (e *ForwardError) Error() string {
	return "forward: " + e.err.Error()
}

func (e *ForwardError) Unwrap() error {
	return e.err
}

func (e *ForwardError) Is(target error) bool {
	fe, ok := target.(*ForwardError)
	if !ok {
		return false
	}

	return e.err.Error() == fe.err.Error()
}

type forwardEmitter struct {
	endpoint string
	client   *http.Client
}

// NewEmitter returns a sink.Emitter configured from the FORWARD_* environment variables.
func NewEmitter(ctx context.Context) (sink.Emitter, error) {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		return nil, handleError(err)
	}

	if err := cfg.validate(); err != nil {
		return nil, handleError(err)
	}

	return &forwardEmitter{
		endpoint: cfg.Endpoint,
		client:   newClient(context.WithoutCancel(ctx), cfg),
	}, nil
}

// Emit implements sink.Emitter.
func (e *forwardEmitter) Emit(ctx context.Context, record sink.Record) error {
	log := logger.FromContext(ctx).WithName(loggerName)

	body, err := json.Marshal(record)
	if err != nil {
		return handleError(err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return handleError(err)
	}

	request.Header.Set("User-Agent", info.UserAgent())
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(recordIDHeaderName, record.ID)

	resp, err := e.client.Do(request)
	if err != nil {
		return handleError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		log.Trace("record forwarded", "recordId", record.ID, "statusCode", resp.StatusCode)
		return nil
	}

	var respBody map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err == nil {
		if message, ok := respBody["message"].(string); ok {
			return handleError(errors.New(message))
		}
	}

	return handleError(errors.New("unexpected status code " + http.StatusText(resp.StatusCode)))
}

// handleError unwraps the errors produced by env parsing and wraps everything in ForwardError.
func handleError(err error) error {
	var parseErr env.AggregateError
	if errors.As(err, &parseErr) {
		err = parseErr.Errors[0]
	}

	return &ForwardError{err: err}
}
