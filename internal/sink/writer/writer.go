// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package writer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mia-platform/mandrill-webhook/internal/sink"
)

var _ sink.Emitter = &writerEmitter{}

type writerEmitter struct {
	writer io.Writer

	lock sync.Mutex
}

// NewEmitter returns a sink.Emitter printing every record on w.
func NewEmitter(w io.Writer) sink.Emitter {
	return &writerEmitter{writer: w}
}

func (e *writerEmitter) Emit(_ context.Context, record sink.Record) error {
	builder := new(strings.Builder)
	builder.WriteString("Emit record:\n")
	builder.WriteString("\tID: " + record.ID + "\n")
	builder.WriteString("\tReceived At: " + record.ReceivedAt.UTC().Format(time.RFC3339) + "\n")
	if eventType := record.EventType(); eventType != "" {
		builder.WriteString("\tEvent: " + eventType + "\n")
	}
	builder.WriteString("\tBody: ")

	encoder := json.NewEncoder(builder)
	encoder.SetIndent("\t", "\t")
	if err := encoder.Encode(record.Body); err != nil {
		return err
	}
	builder.WriteString("\n")

	e.lock.Lock()
	defer e.lock.Unlock()
	_, err := fmt.Fprint(e.writer, builder.String())
	return err
}
