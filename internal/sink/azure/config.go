// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package azure

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azeventhubs/v2"
)

var (
	// ErrMissingEnvVariable reports missing mandatory environment variables.
	ErrMissingEnvVariable = errors.New("missing environment variable")
	// ErrInvalidEnvVariable reports malformed environment variable values.
	ErrInvalidEnvVariable = errors.New("invalid environment value")
)

// config holds all the configuration needed to connect to the Event Hub.
type config struct {
	EventHubConnectionString string `env:"AZURE_EVENT_HUB_CONNECTION_STRING"`
	EventHubNamespace        string `env:"AZURE_EVENT_HUB_NAMESPACE"`
	EventHubName             string `env:"AZURE_EVENT_HUB_NAME"`
	PartitionKey             string `env:"AZURE_EVENT_HUB_PARTITION_KEY" envDefault:"mandrill-webhook"`
}

func (c config) validate() error {
	switch {
	case len(c.EventHubConnectionString) == 0 && len(c.EventHubNamespace) == 0:
		return fmt.Errorf("%w: %s", ErrInvalidEnvVariable, "one of AZURE_EVENT_HUB_CONNECTION_STRING or AZURE_EVENT_HUB_NAMESPACE must be present")
	case len(c.EventHubConnectionString) > 0 && len(c.EventHubNamespace) > 0:
		return fmt.Errorf("%w: %s", ErrInvalidEnvVariable, "only one of AZURE_EVENT_HUB_CONNECTION_STRING or AZURE_EVENT_HUB_NAMESPACE can be present")
	case len(c.EventHubNamespace) > 0 && len(c.EventHubName) == 0:
		return fmt.Errorf("%w: %s", ErrMissingEnvVariable, "AZURE_EVENT_HUB_NAME")
	}

	return nil
}

func (c config) eventHubFullyQualifiedNamespace() string {
	if strings.Contains(c.EventHubNamespace, ".servicebus.windows.net") {
		return c.EventHubNamespace
	}

	return c.EventHubNamespace + ".servicebus.windows.net"
}

// newProducerClient returns a producer authenticated with the connection string when present,
// with the default Azure credential chain otherwise.
func (c config) newProducerClient() (*azeventhubs.ProducerClient, error) {
	if c.EventHubConnectionString != "" {
		return azeventhubs.NewProducerClientFromConnectionString(c.EventHubConnectionString, c.EventHubName, nil)
	}

	credentials, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}

	return azeventhubs.NewProducerClient(c.eventHubFullyQualifiedNamespace(), c.EventHubName, credentials, nil)
}
