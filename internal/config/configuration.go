// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
)

const (
	// APIKeyEnvName overrides the apiKey value found in the configuration file.
	APIKeyEnvName = "MANDRILL_API_KEY"

	apiKeyField = "apiKey"
)

var (
	// ErrParsing reports failures that occur while decoding configuration files.
	ErrParsing = errors.New("error parsing")
)

// Load returns the Configuration read from the YAML document at path, an empty path means no
// file. A non-empty MANDRILL_API_KEY in environment replaces the apiKey value.
func Load(path string, environment lifecycle.Environment) (lifecycle.Configuration, error) {
	configuration := make(lifecycle.Configuration)
	if path != "" {
		fromFile, err := fromPath(path)
		if err != nil {
			return nil, err
		}
		configuration = fromFile
	}

	if apiKey, ok := environment.Lookup(APIKeyEnvName); ok && apiKey != "" {
		configuration[apiKeyField] = apiKey
	}

	return configuration, nil
}

func fromPath(path string) (lifecycle.Configuration, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	configuration := make(lifecycle.Configuration)
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&configuration); err != nil {
		// an empty file is an empty configuration
		if errors.Is(err, io.EOF) {
			return make(lifecycle.Configuration), nil
		}
		return nil, fmt.Errorf("%w %q: %w", ErrParsing, path, err)
	}

	var extra any
	if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w %q: only one document is allowed", ErrParsing, path)
	}

	if configuration == nil {
		configuration = make(lifecycle.Configuration)
	}
	return configuration, nil
}
