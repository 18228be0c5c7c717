// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mandrill

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
	"github.com/mia-platform/mandrill-webhook/internal/logger"
	"github.com/mia-platform/mandrill-webhook/internal/sink"
)

const (
	// EventsField is the body field carrying the JSON encoded array of events.
	EventsField = "mandrill_events"

	translatorLoggerName = "mandrill-webhook:translator"
)

// EventTranslator turns webhook deliveries into records. It holds no mutable state and can be
// shared between concurrent deliveries.
type EventTranslator struct {
	now func() time.Time
}

// NewEventTranslator returns an EventTranslator stamping records with the current time.
func NewEventTranslator() *EventTranslator {
	return &EventTranslator{now: time.Now}
}

// Translate decodes the events carried by message into records, in the same order as the
// delivered array. A message without the events field yields no records and no error.
func (t *EventTranslator) Translate(ctx context.Context, message lifecycle.Message) ([]sink.Record, error) {
	log := logger.FromContext(ctx).WithName(translatorLoggerName)

	value, ok := message.Body[EventsField]
	if !ok || value == nil {
		log.Info("message has no mandrill events, skipping it", "messageId", message.ID)
		return nil, nil
	}

	var encoded string
	switch typed := value.(type) {
	case string:
		encoded = typed
	case []byte:
		encoded = string(typed)
	default:
		return nil, fmt.Errorf("%w: %s must be a string containing a JSON array, got %T", ErrPayload, EventsField, value)
	}

	if strings.TrimSpace(encoded) == "" {
		log.Info("message has an empty mandrill events field, skipping it", "messageId", message.ID)
		return nil, nil
	}

	events, err := decodeEvents([]byte(encoded))
	if err != nil {
		return nil, err
	}
	log.Debug("decoded mandrill events", "messageId", message.ID, "count", len(events))

	receivedAt := t.now()
	records := make([]sink.Record, 0, len(events))
	for _, event := range events {
		records = append(records, sink.NewRecord(event, receivedAt))
	}
	return records, nil
}

// Forward translates message and emits every record to emitter, one after the other.
// It returns the number of records emitted.
func (t *EventTranslator) Forward(ctx context.Context, message lifecycle.Message, emitter sink.Emitter) (int, error) {
	log := logger.FromContext(ctx).WithName(translatorLoggerName)

	records, err := t.Translate(ctx, message)
	if err != nil {
		return 0, err
	}

	log.Info("got events", "messageId", message.ID, "count", len(records))
	for idx, record := range records {
		if err := emitter.Emit(ctx, record); err != nil {
			return idx, fmt.Errorf("%w %d of %d: %w", ErrEmit, idx+1, len(records), err)
		}
	}

	log.Info("emitted records, finishing execution", "messageId", message.ID, "count", len(records))
	return len(records), nil
}

// decodeEvents parses the array of events. Every element must be a JSON object; numbers are
// kept as json.Number so they reach the sink as they were delivered.
func decodeEvents(data []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: %s does not contain a JSON array", ErrPayload, EventsField)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrPayload, EventsField, err.Error())
	}

	events := make([]map[string]any, 0, len(elements))
	for idx, element := range elements {
		element = bytes.TrimSpace(element)
		if len(element) == 0 || element[0] != '{' {
			return nil, fmt.Errorf("%w: %s element %d is not a JSON object", ErrPayload, EventsField, idx)
		}

		decoder := json.NewDecoder(bytes.NewReader(element))
		decoder.UseNumber()

		var event map[string]any
		if err := decoder.Decode(&event); err != nil {
			return nil, fmt.Errorf("%w: %s element %d: %s", ErrPayload, EventsField, idx, err.Error())
		}
		events = append(events, event)
	}

	return events, nil
}
