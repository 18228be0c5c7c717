// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package lifecycle

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Configuration is the opaque key/value structure supplied by the host on every phase.
type Configuration map[string]any

// String returns the value stored at key when it is a string.
func (c Configuration) String(key string) (string, bool) {
	value, ok := c[key].(string)
	return value, ok
}

// Strings returns the value stored at key when it is a list made only of strings.
func (c Configuration) Strings(key string) ([]string, bool) {
	switch values := c[key].(type) {
	case []string:
		return values, true
	case []any:
		out := make([]string, 0, len(values))
		for _, value := range values {
			s, ok := value.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// Environment is a snapshot of environment variables. Modules never read the process
// environment directly so tests can supply any value they need.
type Environment map[string]string

// OSEnvironment returns a snapshot of the current process environment.
func OSEnvironment() Environment {
	return env.ToMap(os.Environ())
}

// Lookup returns the value of key and whether it was set.
func (e Environment) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

// State is what a Module needs to undo its Startup side effects. The host persists it
// between Startup and Shutdown.
type State struct {
	ID          string    `json:"id" yaml:"id"`
	URL         string    `json:"url,omitempty" yaml:"url,omitempty"`
	AuthKey     string    `json:"authKey,omitempty" yaml:"authKey,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Events      []string  `json:"events,omitempty" yaml:"events,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
}

// IsZero reports whether no subscription is recorded in s.
func (s State) IsZero() bool {
	return strings.TrimSpace(s.ID) == ""
}

// Message is a single inbound webhook delivery.
type Message struct {
	// ID identifies the delivery for logging purposes.
	ID string
	// Headers holds the request headers, keys are canonicalized.
	Headers map[string]string
	// Body holds the decoded request body, form fields are stored as strings.
	Body map[string]any
}
