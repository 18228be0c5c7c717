// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
	"github.com/mia-platform/mandrill-webhook/internal/state"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

var (
	// ErrFileStore wraps every error returned by the file store.
	ErrFileStore = errors.New("file state store")

	_ state.Store = &Store{}
)

type config struct {
	Path string `env:"STATE_FILE_PATH" envDefault:"mandrill-webhook-state.yaml"`
}

// Store saves the state as YAML at Path.
type Store struct {
	Path string
}

// NewStore returns a Store using the path found in STATE_FILE_PATH.
func NewStore() (*Store, error) {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		return nil, handleError(err)
	}

	return &Store{Path: cfg.Path}, nil
}

// Save writes the state to a temporary file and renames it over Path.
func (s *Store) Save(_ context.Context, newState lifecycle.State) error {
	data, err := yaml.Marshal(newState)
	if err != nil {
		return handleError(err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return handleError(err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*")
	if err != nil {
		return handleError(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return handleError(err)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return handleError(err)
	}
	if err := tmp.Close(); err != nil {
		return handleError(err)
	}

	return handleError(os.Rename(tmp.Name(), s.Path))
}

func (s *Store) Load(context.Context) (lifecycle.State, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return lifecycle.State{}, handleError(state.ErrNotFound)
		}
		return lifecycle.State{}, handleError(err)
	}

	var loaded lifecycle.State
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return lifecycle.State{}, handleError(err)
	}

	if loaded.IsZero() {
		return lifecycle.State{}, handleError(state.ErrNotFound)
	}
	return loaded, nil
}

func (s *Store) Delete(context.Context) error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return handleError(err)
	}
	return nil
}

func handleError(err error) error {
	if err == nil {
		return nil
	}

	var parseErr env.AggregateError
	if errors.As(err, &parseErr) {
		err = parseErr.Errors[0]
	}

	return fmt.Errorf("%w: %w", ErrFileStore, err)
}
