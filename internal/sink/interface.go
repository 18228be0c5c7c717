// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package sink

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Emitter receives records in the order they must be delivered downstream.
// Implementations must be safe for concurrent use.
type Emitter interface {
	Emit(ctx context.Context, record Record) error
}

// Closer is implemented by emitters holding resources that must be released on shutdown.
type Closer interface {
	Close(ctx context.Context) error
}

// Record wraps a single provider event.
type Record struct {
	// ID is generated for every record and can be used downstream for tracing.
	ID string `json:"id"`
	// ReceivedAt is the time the delivery carrying the event was translated.
	ReceivedAt time.Time `json:"receivedAt"`
	// Body is the provider event, untouched.
	Body map[string]any `json:"body"`
}

// NewRecord wraps body in a new Record.
func NewRecord(body map[string]any, receivedAt time.Time) Record {
	return Record{
		ID:         uuid.NewString(),
		ReceivedAt: receivedAt,
		Body:       body,
	}
}

// EventType returns the provider event name carried by the record, if any.
func (r Record) EventType() string {
	if event, ok := r.Body["event"].(string); ok {
		return event
	}
	if recordType, ok := r.Body["type"].(string); ok {
		return recordType
	}
	return ""
}
