// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package azure

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
	"github.com/mia-platform/mandrill-webhook/internal/state"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		cfg         config
		expectedErr error
	}{
		"missing connection string and account": {
			cfg:         config{ContainerName: "container", BlobName: "blob"},
			expectedErr: ErrInvalidEnvVariable,
		},
		"missing container": {
			cfg:         config{StorageAccount: "account", BlobName: "blob"},
			expectedErr: ErrMissingEnvVariable,
		},
		"missing blob name": {
			cfg:         config{StorageAccount: "account", ContainerName: "container"},
			expectedErr: ErrMissingEnvVariable,
		},
		"valid": {
			cfg: config{StorageAccount: "account", ContainerName: "container", BlobName: "blob"},
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			err := test.cfg.validate()
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestServiceURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://account.blob.core.windows.net/", config{StorageAccount: "account"}.serviceURL())
	assert.Equal(t, "https://account.blob.core.windows.net/", config{StorageAccount: "https://account.blob.core.windows.net/"}.serviceURL())
}

func TestNewStoreFromEnv(t *testing.T) {
	t.Setenv("AZURE_STORAGE_BLOB_ACCOUNT_NAME", "account")

	store, err := NewStore()
	require.ErrorIs(t, err, ErrAzureStore)
	require.ErrorIs(t, err, ErrMissingEnvVariable)
	assert.Nil(t, store)
}

// fakeBlobService answers the subset of the Blob REST API used by Store.
type fakeBlobService struct {
	lock       sync.Mutex
	containers map[string]bool
	blobs      map[string][]byte
	failWith   int
}

func (f *fakeBlobService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.lock.Lock()
	defer f.lock.Unlock()

	if f.failWith != 0 {
		w.Header().Set("x-ms-error-code", "InternalError")
		w.WriteHeader(f.failWith)
		return
	}

	container, blobName, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	notFound := func(code string) {
		w.Header().Set("x-ms-error-code", code)
		w.WriteHeader(http.StatusNotFound)
	}

	switch {
	case r.Method == http.MethodPut && r.URL.Query().Get("restype") == "container":
		f.containers[container] = true
		w.WriteHeader(http.StatusCreated)
	case !f.containers[container]:
		notFound("ContainerNotFound")
	case r.Method == http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.blobs[blobName] = data
		w.WriteHeader(http.StatusCreated)
	case r.Method == http.MethodGet:
		data, ok := f.blobs[blobName]
		if !ok {
			notFound("BlobNotFound")
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case r.Method == http.MethodDelete:
		if _, ok := f.blobs[blobName]; !ok {
			notFound("BlobNotFound")
			return
		}
		delete(f.blobs, blobName)
		w.WriteHeader(http.StatusAccepted)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T, service *fakeBlobService) *Store {
	t.Helper()

	server := httptest.NewServer(service)
	t.Cleanup(server.Close)

	client, err := azblob.NewClientWithNoCredential(server.URL+"/", &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{Retry: policy.RetryOptions{MaxRetries: -1}},
	})
	require.NoError(t, err)

	return &Store{client: client, container: "states", blob: "state.yaml"}
}

func TestStore(t *testing.T) {
	t.Parallel()

	service := &fakeBlobService{containers: map[string]bool{}, blobs: map[string][]byte{}}
	store := newTestStore(t, service)

	_, err := store.Load(t.Context())
	require.ErrorIs(t, err, state.ErrNotFound)
	require.NoError(t, store.Delete(t.Context()))

	saved := lifecycle.State{ID: "42", URL: "https://flow.example.com/hook", AuthKey: "auth-key"}
	require.NoError(t, store.Save(t.Context(), saved))
	assert.True(t, service.containers["states"])

	loaded, err := store.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)

	require.NoError(t, store.Delete(t.Context()))
	_, err = store.Load(t.Context())
	require.ErrorIs(t, err, state.ErrNotFound)
	require.NoError(t, store.Delete(t.Context()))
}

func TestStoreServiceErrors(t *testing.T) {
	t.Parallel()

	service := &fakeBlobService{containers: map[string]bool{}, blobs: map[string][]byte{}, failWith: http.StatusForbidden}
	store := newTestStore(t, service)

	err := store.Save(t.Context(), lifecycle.State{ID: "42"})
	require.ErrorIs(t, err, ErrAzureStore)
	assert.EqualError(t, err, "azure state store: InternalError (403)")

	_, err = store.Load(t.Context())
	require.ErrorIs(t, err, ErrAzureStore)
	assert.NotErrorIs(t, err, state.ErrNotFound)

	require.ErrorIs(t, store.Delete(t.Context()), ErrAzureStore)
}
