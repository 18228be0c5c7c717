// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package gcp

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingEnvVariable reports missing mandatory environment variables.
	ErrMissingEnvVariable = errors.New("missing environment variable")
	// ErrInvalidEnvVariable reports malformed environment variable values.
	ErrInvalidEnvVariable = errors.New("invalid environment value")
)

// config holds the Pub/Sub settings read from the environment.
type config struct {
	ProjectID string `env:"GCP_PROJECT_ID"`
	TopicName string `env:"GCP_TOPIC_NAME"`
	// OrderingKey is set on every message, messages sharing it are delivered in publish order.
	OrderingKey string `env:"GCP_ORDERING_KEY"`
}

const defaultOrderingKey = "mandrill-webhook"

func (c config) orderingKey() string {
	if len(c.OrderingKey) == 0 {
		return defaultOrderingKey
	}
	return c.OrderingKey
}

func (c config) validate() error {
	switch {
	case len(c.ProjectID) == 0:
		return fmt.Errorf("%w: %s", ErrMissingEnvVariable, "GCP_PROJECT_ID")
	case len(c.TopicName) == 0:
		return fmt.Errorf("%w: %s", ErrMissingEnvVariable, "GCP_TOPIC_NAME")
	case strings.HasPrefix(c.TopicName, "projects/") && !strings.HasPrefix(c.TopicName, "projects/"+c.ProjectID+"/topics/"):
		return fmt.Errorf("%w: GCP_TOPIC_NAME %q does not belong to project %q", ErrInvalidEnvVariable, c.TopicName, c.ProjectID)
	}

	return nil
}

// topic returns the fully qualified topic name.
func (c config) topic() string {
	if strings.HasPrefix(c.TopicName, "projects/") {
		return c.TopicName
	}

	return fmt.Sprintf("projects/%s/topics/%s", c.ProjectID, c.TopicName)
}
