// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
	"github.com/mia-platform/mandrill-webhook/internal/server"
)

var _ server.Server = &Server{}

// Server keeps the registered webhook handler so tests can deliver messages without a network.
// When StartErr is set the server refuses to start with it.
type Server struct {
	tb testing.TB

	StartErr error

	lock    sync.Mutex
	handler server.Handler
	ready   atomic.Bool

	startedChan chan struct{}
	closedChan  chan struct{}
	failChan    chan error
	closeOnce   sync.Once
}

func NewFakeServer(tb testing.TB) *Server {
	tb.Helper()

	return &Server{
		tb:          tb,
		startedChan: make(chan struct{}),
		closedChan:  make(chan struct{}),
		failChan:    make(chan error, 1),
	}
}

// NewFailingServer returns a Server whose start fails with err.
func NewFailingServer(tb testing.TB, err error) *Server {
	tb.Helper()

	s := NewFakeServer(tb)
	s.StartErr = err
	return s
}

func (s *Server) AddWebhook(handler server.Handler) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.handler = handler
}

func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Ready reports the last value passed to SetReady.
func (s *Server) Ready() bool {
	return s.ready.Load()
}

func (s *Server) Start() error {
	if s.StartErr != nil {
		return s.StartErr
	}

	close(s.startedChan)
	select {
	case <-s.closedChan:
		return nil
	case err := <-s.failChan:
		return err
	}
}

func (s *Server) Stop() error {
	s.closeOnce.Do(func() { close(s.closedChan) })
	return nil
}

func (s *Server) StartAsync(context.Context) (<-chan error, error) {
	if s.StartErr != nil {
		return nil, s.StartErr
	}

	done := make(chan error, 1)
	go func() {
		err := s.Start()
		if err == nil {
			err = server.ErrServerStopped
		}
		done <- err
	}()
	return done, nil
}

// Fail makes a running server stop serving with err.
func (s *Server) Fail(err error) {
	s.failChan <- err
}

// Started is closed once the server has been started.
func (s *Server) Started() <-chan struct{} {
	return s.startedChan
}

// Deliver calls the registered webhook handler with message.
func (s *Server) Deliver(ctx context.Context, message lifecycle.Message) error {
	s.tb.Helper()

	s.lock.Lock()
	handler := s.handler
	s.lock.Unlock()

	if handler == nil {
		s.tb.Fatal("no webhook handler registered")
		return nil
	}
	return handler(ctx, message)
}
