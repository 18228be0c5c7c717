// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package gcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/caarlos0/env/v11"
	"google.golang.org/api/option"
	"google.golang.org/grpc/status"

	"github.com/mia-platform/mandrill-webhook/internal/logger"
	"github.com/mia-platform/mandrill-webhook/internal/sink"
)

const (
	loggerName = "mandrill-webhook:sink:gcp"

	recordIDAttribute  = "recordId"
	eventTypeAttribute = "eventType"
)

var (
	// ErrGCPSink wraps every error returned by the Pub/Sub emitter.
	ErrGCPSink = errors.New("gcp sink")

	_ sink.Emitter = &Emitter{}
	_ sink.Closer  = &Emitter{}
)

// Emitter publishes records on a Pub/Sub topic with message ordering enabled. Every record
// carries the same ordering key and every Emit waits for the server acknowledgement, so
// subscribers with ordering enabled receive records in the order they are emitted.
type Emitter struct {
	client      *pubsub.Client
	publisher   *pubsub.Publisher
	topic       string
	orderingKey string
}

// NewEmitter returns an Emitter configured from the GCP_* environment variables.
func NewEmitter(ctx context.Context) (*Emitter, error) {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		return nil, handleError(err)
	}

	return newEmitter(ctx, cfg)
}

func newEmitter(ctx context.Context, cfg config, opts ...option.ClientOption) (*Emitter, error) {
	if err := cfg.validate(); err != nil {
		return nil, handleError(err)
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, handleError(err)
	}

	topic := cfg.topic()
	publisher := client.Publisher(topic)
	publisher.EnableMessageOrdering = true

	return &Emitter{
		client:      client,
		publisher:   publisher,
		topic:       topic,
		orderingKey: cfg.orderingKey(),
	}, nil
}

// Emit implements sink.Emitter.
func (e *Emitter) Emit(ctx context.Context, record sink.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return handleError(err)
	}

	attributes := map[string]string{recordIDAttribute: record.ID}
	if eventType := record.EventType(); len(eventType) > 0 {
		attributes[eventTypeAttribute] = eventType
	}

	result := e.publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attributes, OrderingKey: e.orderingKey})
	serverID, err := result.Get(ctx)
	if err != nil {
		// a failed publish pauses the ordering key until resumed
		e.publisher.ResumePublish(e.orderingKey)
		return handleError(err)
	}

	logger.FromContext(ctx).WithName(loggerName).Trace("record published", "recordId", record.ID, "messageId", serverID, "topic", e.topic)
	return nil
}

// Close flushes pending messages and releases the Pub/Sub client.
func (e *Emitter) Close(context.Context) error {
	e.publisher.Stop()
	if err := e.client.Close(); err != nil {
		return handleError(err)
	}
	return nil
}

// handleError unwraps known errors and wraps them with ErrGCPSink.
func handleError(err error) error {
	if err == nil {
		return nil
	}

	var parseErr env.AggregateError
	if errors.As(err, &parseErr) {
		err = parseErr.Errors[0]
	}

	if statusErr, ok := status.FromError(err); ok {
		err = errors.New(statusErr.Message())
	}

	return fmt.Errorf("%w: %w", ErrGCPSink, err)
}
