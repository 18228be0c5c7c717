// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package azure

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
	"github.com/mia-platform/mandrill-webhook/internal/logger"
	"github.com/mia-platform/mandrill-webhook/internal/state"
)

const (
	loggerName = "mandrill-webhook:state:azure"

	contentType = "application/yaml"
)

var (
	// ErrAzureStore wraps every error returned by the blob store.
	ErrAzureStore = errors.New("azure state store")

	_ state.Store = &Store{}
)

// Store saves the state as a YAML blob.
type Store struct {
	client    *azblob.Client
	container string
	blob      string
}

// NewStore returns a Store configured from the AZURE_STORAGE_BLOB_* environment variables.
func NewStore() (*Store, error) {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		return nil, handleError(err)
	}

	if err := cfg.validate(); err != nil {
		return nil, handleError(err)
	}

	client, err := cfg.newClient()
	if err != nil {
		return nil, handleError(err)
	}

	return &Store{client: client, container: cfg.ContainerName, blob: cfg.BlobName}, nil
}

// Save uploads the state, creating the container on first use.
func (s *Store) Save(ctx context.Context, newState lifecycle.State) error {
	data, err := yaml.Marshal(newState)
	if err != nil {
		return handleError(err)
	}

	err = s.upload(ctx, data)
	if bloberror.HasCode(err, bloberror.ContainerNotFound) {
		logger.FromContext(ctx).WithName(loggerName).Debug("creating state container", "container", s.container)
		if _, err := s.client.CreateContainer(ctx, s.container, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return handleError(err)
		}
		err = s.upload(ctx, data)
	}

	return handleError(err)
}

func (s *Store) upload(ctx context.Context, data []byte) error {
	_, err := s.client.UploadBuffer(ctx, s.container, s.blob, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)},
	})
	return err
}

func (s *Store) Load(ctx context.Context) (lifecycle.State, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, s.blob, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return lifecycle.State{}, handleError(state.ErrNotFound)
		}
		return lifecycle.State{}, handleError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
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

func (s *Store) Delete(ctx context.Context) error {
	_, err := s.client.DeleteBlob(ctx, s.container, s.blob, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return handleError(err)
	}
	return nil
}

// handleError unwraps known errors and wraps them with ErrAzureStore.
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

	return fmt.Errorf("%w: %w", ErrAzureStore, err)
}
