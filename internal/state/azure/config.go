// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package azure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

var (
	// ErrMissingEnvVariable reports missing mandatory environment variables.
	ErrMissingEnvVariable = errors.New("missing environment variable")
	// ErrInvalidEnvVariable reports malformed environment variable values.
	ErrInvalidEnvVariable = errors.New("invalid environment value")
)

// config holds all the configuration needed to connect to the storage account.
type config struct {
	ConnectionString string `env:"AZURE_STORAGE_BLOB_CONNECTION_STRING"`
	StorageAccount   string `env:"AZURE_STORAGE_BLOB_ACCOUNT_NAME"`
	ContainerName    string `env:"AZURE_STORAGE_BLOB_CONTAINER_NAME"`
	BlobName         string `env:"AZURE_STORAGE_BLOB_NAME" envDefault:"mandrill-webhook-state.yaml"`
}

func (c config) validate() error {
	switch {
	case len(c.ConnectionString) == 0 && len(c.StorageAccount) == 0:
		return fmt.Errorf("%w: %s", ErrInvalidEnvVariable, "one of AZURE_STORAGE_BLOB_CONNECTION_STRING or AZURE_STORAGE_BLOB_ACCOUNT_NAME must be present")
	case len(c.ContainerName) == 0:
		return fmt.Errorf("%w: %s", ErrMissingEnvVariable, "AZURE_STORAGE_BLOB_CONTAINER_NAME")
	case len(c.BlobName) == 0:
		return fmt.Errorf("%w: %s", ErrMissingEnvVariable, "AZURE_STORAGE_BLOB_NAME")
	}

	return nil
}

func (c config) serviceURL() string {
	if strings.Contains(c.StorageAccount, ".blob.core.windows.net") {
		return c.StorageAccount
	}

	return fmt.Sprintf("https://%s.blob.core.windows.net/", c.StorageAccount)
}

func (c config) newClient() (*azblob.Client, error) {
	if c.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(c.ConnectionString, nil)
	}

	credentials, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}

	return azblob.NewClient(c.serviceURL(), credentials, nil)
}
