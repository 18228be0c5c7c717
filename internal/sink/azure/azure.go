// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package azure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azeventhubs/v2"
	"github.com/caarlos0/env/v11"

	"github.com/mia-platform/mandrill-webhook/internal/logger"
	"github.com/mia-platform/mandrill-webhook/internal/sink"
)

const (
	loggerName = "mandrill-webhook:sink:azure"

	eventTypeProperty = "eventType"
	contentType       = "application/json"
)

var (
	// ErrAzureSink wraps every error returned by the Event Hubs emitter.
	ErrAzureSink = errors.New("azure sink")

	_ sink.Emitter = &Emitter{}
	_ sink.Closer  = &Emitter{}
)

// producer is the subset of *azeventhubs.ProducerClient used by the Emitter.
type producer interface {
	NewEventDataBatch(ctx context.Context, options *azeventhubs.EventDataBatchOptions) (*azeventhubs.EventDataBatch, error)
	SendEventDataBatch(ctx context.Context, batch *azeventhubs.EventDataBatch, options *azeventhubs.SendEventDataBatchOptions) error
	Close(ctx context.Context) error
}

// Emitter sends one batch per record, always on the same partition key, so records keep the
// order they are emitted in.
type Emitter struct {
	producer     producer
	partitionKey string
}

// NewEmitter returns an Emitter configured from the AZURE_EVENT_HUB_* environment variables.
func NewEmitter() (*Emitter, error) {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		return nil, handleError(err)
	}

	if err := cfg.validate(); err != nil {
		return nil, handleError(err)
	}

	client, err := cfg.newProducerClient()
	if err != nil {
		return nil, handleError(err)
	}

	return &Emitter{producer: client, partitionKey: cfg.PartitionKey}, nil
}

// Emit implements sink.Emitter.
func (e *Emitter) Emit(ctx context.Context, record sink.Record) error {
	event, err := eventData(record)
	if err != nil {
		return handleError(err)
	}

	batch, err := e.producer.NewEventDataBatch(ctx, &azeventhubs.EventDataBatchOptions{PartitionKey: to.Ptr(e.partitionKey)})
	if err != nil {
		return handleError(err)
	}

	if err := batch.AddEventData(event, nil); err != nil {
		return handleError(err)
	}

	if err := e.producer.SendEventDataBatch(ctx, batch, nil); err != nil {
		return handleError(err)
	}

	logger.FromContext(ctx).WithName(loggerName).Trace("record sent", "recordId", record.ID)
	return nil
}

// Close releases the underlying AMQP connection.
func (e *Emitter) Close(ctx context.Context) error {
	return handleError(e.producer.Close(ctx))
}

func eventData(record sink.Record) (*azeventhubs.EventData, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	event := &azeventhubs.EventData{
		Body:        body,
		ContentType: to.Ptr(contentType),
		MessageID:   to.Ptr(record.ID),
	}
	if eventType := record.EventType(); len(eventType) > 0 {
		event.Properties = map[string]any{eventTypeProperty: eventType}
	}

	return event, nil
}

// handleError unwraps known errors and wraps them with ErrAzureSink.
func handleError(err error) error {
	if err == nil {
		return nil
	}

	var parseErr env.AggregateError
	if errors.As(err, &parseErr) {
		err = parseErr.Errors[0]
	}

	var responseErr *azcore.ResponseError
	if errors.As(err, &responseErr) {
		err = fmt.Errorf("%s (%d)", responseErr.ErrorCode, responseErr.StatusCode)
	}

	return fmt.Errorf("%w: %w", ErrAzureSink, err)
}
