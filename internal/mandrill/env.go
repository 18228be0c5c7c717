// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mandrill

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
)

const (
	// ConfigurationAPIKey is the configuration key holding the Mandrill API key.
	ConfigurationAPIKey = "apiKey"
	// ConfigurationEvents optionally lists the event names the webhook subscribes to.
	ConfigurationEvents = "events"
	// ConfigurationDescription optionally sets the description of the webhook.
	ConfigurationDescription = "description"

	// WebhookURIEnvName holds the URL Mandrill must deliver events to.
	WebhookURIEnvName = "FLOW_WEBHOOK_URI"
	// BaseURLEnvName overrides the Mandrill API base URL.
	BaseURLEnvName = "MANDRILL_API_BASE_URL"
	// DefaultBaseURL is the public Mandrill API endpoint.
	DefaultBaseURL = "https://mandrillapp.com/api/1.0"
)

type providerEnv struct {
	BaseURL string `env:"MANDRILL_API_BASE_URL"`
}

type callbackEnv struct {
	WebhookURI string `env:"FLOW_WEBHOOK_URI"`
}

// baseURL resolves the API base URL from environment. It runs on every phase, nothing is cached.
func baseURL(environment lifecycle.Environment) (string, error) {
	parsed, err := env.ParseAsWithOptions[providerEnv](env.Options{Environment: environment})
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrEnvironment, err.Error())
	}

	base := strings.TrimSpace(parsed.BaseURL)
	if base == "" {
		return DefaultBaseURL, nil
	}

	if err := validateHTTPURL(base); err != nil {
		return "", fmt.Errorf("%w: %s %s", ErrEnvironment, BaseURLEnvName, err.Error())
	}
	return strings.TrimSuffix(base, "/"), nil
}

// webhookURI reads the mandatory callback URL from environment.
func webhookURI(environment lifecycle.Environment) (string, error) {
	parsed, err := env.ParseAsWithOptions[callbackEnv](env.Options{Environment: environment})
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrEnvironment, err.Error())
	}

	uri := strings.TrimSpace(parsed.WebhookURI)
	if uri == "" {
		return "", fmt.Errorf("%w: %s is required", ErrEnvironment, WebhookURIEnvName)
	}

	if err := validateHTTPURL(uri); err != nil {
		return "", fmt.Errorf("%w: %s %s", ErrEnvironment, WebhookURIEnvName, err.Error())
	}
	return uri, nil
}

func validateHTTPURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("must be an absolute http(s) url, got %q", rawURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("must contain a host, got %q", rawURL)
	}
	return nil
}

// apiKey reads the mandatory API key from the host configuration.
func apiKey(configuration lifecycle.Configuration) (string, error) {
	key, ok := configuration.String(ConfigurationAPIKey)
	if !ok || strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("%w: %s is required", ErrConfiguration, ConfigurationAPIKey)
	}
	return key, nil
}

// subscriptionOptions reads the optional webhook settings from the host configuration.
func subscriptionOptions(configuration lifecycle.Configuration) ([]string, string, error) {
	var events []string
	if value, set := configuration[ConfigurationEvents]; set && value != nil {
		var ok bool
		if events, ok = configuration.Strings(ConfigurationEvents); !ok {
			return nil, "", fmt.Errorf("%w: %s must be a list of strings", ErrConfiguration, ConfigurationEvents)
		}
	}

	var description string
	if value, set := configuration[ConfigurationDescription]; set && value != nil {
		var ok bool
		if description, ok = configuration.String(ConfigurationDescription); !ok {
			return nil, "", fmt.Errorf("%w: %s must be a string", ErrConfiguration, ConfigurationDescription)
		}
	}

	return events, description, nil
}
