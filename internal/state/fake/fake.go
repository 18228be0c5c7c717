// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package fake

import (
	"context"
	"sync"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
	"github.com/mia-platform/mandrill-webhook/internal/state"
)

var _ state.Store = &Store{}

// Store keeps the state in memory. SaveErr, LoadErr and DeleteErr are returned by the
// corresponding method when set.
type Store struct {
	SaveErr   error
	LoadErr   error
	DeleteErr error

	lock  sync.Mutex
	state *lifecycle.State
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// NewStoreWithState returns a Store already holding s.
func NewStoreWithState(s lifecycle.State) *Store {
	return &Store{state: &s}
}

func (s *Store) Save(_ context.Context, newState lifecycle.State) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.state = &newState
	return nil
}

func (s *Store) Load(context.Context) (lifecycle.State, error) {
	if s.LoadErr != nil {
		return lifecycle.State{}, s.LoadErr
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.state == nil {
		return lifecycle.State{}, state.ErrNotFound
	}
	return *s.state, nil
}

func (s *Store) Delete(context.Context) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.state = nil
	return nil
}

// Current returns the stored state and whether one is present.
func (s *Store) Current() (lifecycle.State, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.state == nil {
		return lifecycle.State{}, false
	}
	return *s.state, true
}
