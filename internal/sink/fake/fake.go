// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"context"
	"sync"
	"testing"

	"github.com/mia-platform/mandrill-webhook/internal/sink"
)

var _ sink.Emitter = &Emitter{}

// Emitter records every emitted record. When FailAt is greater than zero the FailAt-th call to
// Emit returns Err instead of recording.
type Emitter struct {
	tb testing.TB

	FailAt int
	Err    error

	lock    sync.Mutex
	calls   int
	records []sink.Record
}

// NewEmitter returns an Emitter that never fails.
func NewEmitter(tb testing.TB) *Emitter {
	tb.Helper()
	return &Emitter{tb: tb}
}

// NewFailingEmitter returns an Emitter failing with err on the failAt-th emission.
func NewFailingEmitter(tb testing.TB, failAt int, err error) *Emitter {
	tb.Helper()
	return &Emitter{tb: tb, FailAt: failAt, Err: err}
}

func (e *Emitter) Emit(_ context.Context, record sink.Record) error {
	e.tb.Helper()

	e.lock.Lock()
	defer e.lock.Unlock()

	e.calls++
	if e.FailAt > 0 && e.calls == e.FailAt {
		return e.Err
	}
	e.records = append(e.records, record)
	return nil
}

// Records returns a copy of the records emitted so far.
func (e *Emitter) Records() []sink.Record {
	e.lock.Lock()
	defer e.lock.Unlock()
	return append([]sink.Record(nil), e.records...)
}
