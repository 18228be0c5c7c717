// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package forward

import (
	"errors"
	"net/url"
)

var (
	errMultipleAuthMethods = errors.New("only one of FORWARD_TOKEN or FORWARD_CLIENT_ID can be set")
	errMissingClientSecret = errors.New("one of FORWARD_CLIENT_SECRET or FORWARD_PRIVATE_KEY is required when FORWARD_CLIENT_ID is set")
	errMissingClientID     = errors.New("FORWARD_CLIENT_ID is required when FORWARD_CLIENT_SECRET or FORWARD_PRIVATE_KEY is set")
	errMultipleSecrets     = errors.New("only one of FORWARD_CLIENT_SECRET or FORWARD_PRIVATE_KEY can be set")
)

// config holds the environment-driven forward settings.
type config struct {
	Endpoint     string `env:"FORWARD_ENDPOINT,required"`
	Token        string `env:"FORWARD_TOKEN"`
	ClientID     string `env:"FORWARD_CLIENT_ID"`
	ClientSecret string `env:"FORWARD_CLIENT_SECRET"`
	AuthEndpoint string `env:"FORWARD_AUTH_ENDPOINT"`

	PrivateKey   string `env:"FORWARD_PRIVATE_KEY"`
	PrivateKeyID string `env:"FORWARD_PRIVATE_KEY_ID"`
}

// validate checks the settings and infers the token endpoint from Endpoint when not set.
func (c *config) validate() error {
	endpointURL, err := url.Parse(c.Endpoint)
	if err != nil {
		return err
	}

	switch {
	case len(c.Token) > 0 && (len(c.ClientID) > 0 || len(c.ClientSecret) > 0 || len(c.PrivateKey) > 0):
		return errMultipleAuthMethods
	case len(c.ClientSecret) > 0 && len(c.PrivateKey) > 0:
		return errMultipleSecrets
	case len(c.ClientID) > 0 && len(c.ClientSecret) == 0 && len(c.PrivateKey) == 0:
		return errMissingClientSecret
	case (len(c.ClientSecret) > 0 || len(c.PrivateKey) > 0) && len(c.ClientID) == 0:
		return errMissingClientID
	}

	if len(c.AuthEndpoint) == 0 {
		tokenURL := *endpointURL
		tokenURL.Path = "/oauth/token"
		tokenURL.RawQuery = ""
		c.AuthEndpoint = tokenURL.String()
		return nil
	}

	_, err = url.Parse(c.AuthEndpoint)
	return err
}
