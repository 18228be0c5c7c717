// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mandrill

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
)

// doerFunc adapts a function to HTTPDoer.
type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// recordedCall holds a request received by the fake Mandrill API.
type recordedCall struct {
	Path string
	Body map[string]any
}

// fakeMandrill starts a test server answering on the webhook endpoints.
type fakeMandrill struct {
	*httptest.Server

	lock  sync.Mutex
	calls []recordedCall
}

func newFakeMandrill(t *testing.T, handler func(w http.ResponseWriter, path string, body map[string]any)) *fakeMandrill {
	t.Helper()

	fake := &fakeMandrill{}
	fake.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		fake.lock.Lock()
		fake.calls = append(fake.calls, recordedCall{Path: r.URL.Path, Body: body})
		fake.lock.Unlock()

		handler(w, r.URL.Path, body)
	}))
	t.Cleanup(fake.Close)
	return fake
}

func (f *fakeMandrill) Calls() []recordedCall {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func mandrillResponder(w http.ResponseWriter, path string, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	switch path {
	case addWebhookPath:
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          42,
			"url":         body["url"],
			"description": "flow webhook",
			"auth_key":    "auth-key",
			"events":      []string{"send", "open"},
			"created_at":  "2024-05-01 10:20:30",
		})
	case deleteWebhookPath:
		_ = json.NewEncoder(w).Encode(map[string]any{"id": body["id"], "url": "https://flow.example.com/hook"})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestActivate(t *testing.T) {
	t.Parallel()

	t.Run("registers the webhook and returns its id", func(t *testing.T) {
		t.Parallel()

		api := newFakeMandrill(t, mandrillResponder)
		registrar := NewRegistrar(api.Client())

		state, err := registrar.Activate(t.Context(),
			lifecycle.Configuration{ConfigurationAPIKey: "secret-key"},
			lifecycle.Environment{
				WebhookURIEnvName: "https://flow.example.com/hook",
				BaseURLEnvName:    api.URL,
			},
		)
		require.NoError(t, err)

		assert.Equal(t, "42", state.ID)
		assert.Equal(t, "https://flow.example.com/hook", state.URL)
		assert.Equal(t, "auth-key", state.AuthKey)
		assert.Equal(t, []string{"send", "open"}, state.Events)
		assert.Equal(t, time.Date(2024, time.May, 1, 10, 20, 30, 0, time.UTC), state.CreatedAt)

		calls := api.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, addWebhookPath, calls[0].Path)
		assert.Equal(t, map[string]any{"key": "secret-key", "url": "https://flow.example.com/hook"}, calls[0].Body)
	})

	t.Run("string ids are returned unchanged", func(t *testing.T) {
		t.Parallel()

		api := newFakeMandrill(t, func(w http.ResponseWriter, _ string, _ map[string]any) {
			_, _ = w.Write([]byte(`{"id":"abc123"}`))
		})

		state, err := NewRegistrar(api.Client()).Activate(t.Context(),
			lifecycle.Configuration{ConfigurationAPIKey: "secret-key"},
			lifecycle.Environment{WebhookURIEnvName: "https://flow.example.com/hook", BaseURLEnvName: api.URL},
		)
		require.NoError(t, err)
		assert.Equal(t, "abc123", state.ID)
		assert.Equal(t, "https://flow.example.com/hook", state.URL)
	})

	t.Run("optional events and description are forwarded", func(t *testing.T) {
		t.Parallel()

		api := newFakeMandrill(t, mandrillResponder)
		_, err := NewRegistrar(api.Client()).Activate(t.Context(),
			lifecycle.Configuration{
				ConfigurationAPIKey:      "secret-key",
				ConfigurationEvents:      []any{"send", "hard_bounce"},
				ConfigurationDescription: "flow webhook",
			},
			lifecycle.Environment{WebhookURIEnvName: "https://flow.example.com/hook", BaseURLEnvName: api.URL + "/"},
		)
		require.NoError(t, err)

		calls := api.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, addWebhookPath, calls[0].Path)
		assert.Equal(t, []any{"send", "hard_bounce"}, calls[0].Body["events"])
		assert.Equal(t, "flow webhook", calls[0].Body["description"])
	})
}

func TestActivateFailures(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		configuration lifecycle.Configuration
		environment   lifecycle.Environment
		expectedErr   error
	}{
		"missing api key": {
			configuration: lifecycle.Configuration{},
			environment:   lifecycle.Environment{WebhookURIEnvName: "https://flow.example.com/hook"},
			expectedErr:   ErrConfiguration,
		},
		"api key is not a string": {
			configuration: lifecycle.Configuration{ConfigurationAPIKey: 12},
			environment:   lifecycle.Environment{WebhookURIEnvName: "https://flow.example.com/hook"},
			expectedErr:   ErrConfiguration,
		},
		"blank api key": {
			configuration: lifecycle.Configuration{ConfigurationAPIKey: "  "},
			environment:   lifecycle.Environment{WebhookURIEnvName: "https://flow.example.com/hook"},
			expectedErr:   ErrConfiguration,
		},
		"events is not a list of strings": {
			configuration: lifecycle.Configuration{ConfigurationAPIKey: "key", ConfigurationEvents: []any{"send", 1}},
			environment:   lifecycle.Environment{WebhookURIEnvName: "https://flow.example.com/hook"},
			expectedErr:   ErrConfiguration,
		},
		"missing callback url": {
			configuration: lifecycle.Configuration{ConfigurationAPIKey: "key"},
			environment:   lifecycle.Environment{},
			expectedErr:   ErrEnvironment,
		},
		"empty callback url": {
			configuration: lifecycle.Configuration{ConfigurationAPIKey: "key"},
			environment:   lifecycle.Environment{WebhookURIEnvName: ""},
			expectedErr:   ErrEnvironment,
		},
		"relative callback url": {
			configuration: lifecycle.Configuration{ConfigurationAPIKey: "key"},
			environment:   lifecycle.Environment{WebhookURIEnvName: "/hook"},
			expectedErr:   ErrEnvironment,
		},
		"invalid base url": {
			configuration: lifecycle.Configuration{ConfigurationAPIKey: "key"},
			environment:   lifecycle.Environment{WebhookURIEnvName: "https://flow.example.com/hook", BaseURLEnvName: "ftp://mandrill"},
			expectedErr:   ErrEnvironment,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			called := false
			registrar := NewRegistrar(doerFunc(func(*http.Request) (*http.Response, error) {
				called = true
				return nil, errors.New("unexpected call")
			}))

			state, err := registrar.Activate(t.Context(), test.configuration, test.environment)
			require.ErrorIs(t, err, test.expectedErr)
			assert.True(t, state.IsZero())
			assert.False(t, called, "no request must be sent")
		})
	}
}

func TestActivateProviderErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		handler         http.HandlerFunc
		expectedMessage string
		expectedName    string
	}{
		"mandrill error body": {
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"status":"error","code":-1,"name":"Invalid_Key","message":"Invalid API key"}`))
			},
			expectedMessage: "Invalid API key",
			expectedName:    "Invalid_Key",
		},
		"unexpected error body": {
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("bad gateway"))
			},
			expectedMessage: `unexpected response "bad gateway"`,
		},
		"response without id": {
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"url":"https://flow.example.com/hook"}`))
			},
			expectedMessage: "response does not contain the webhook id",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(test.handler)
			defer server.Close()

			_, err := NewRegistrar(server.Client()).Activate(t.Context(),
				lifecycle.Configuration{ConfigurationAPIKey: "key"},
				lifecycle.Environment{WebhookURIEnvName: "https://flow.example.com/hook", BaseURLEnvName: server.URL},
			)
			require.ErrorIs(t, err, ErrProvider)

			var providerErr *ProviderError
			require.ErrorAs(t, err, &providerErr)
			assert.Equal(t, addWebhookPath, providerErr.Path)
			assert.Equal(t, test.expectedMessage, providerErr.Message)
			assert.Equal(t, test.expectedName, providerErr.Name)
		})
	}

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()

		registrar := NewRegistrar(doerFunc(func(*http.Request) (*http.Response, error) {
			return nil, assert.AnError
		}))

		_, err := registrar.Activate(t.Context(),
			lifecycle.Configuration{ConfigurationAPIKey: "key"},
			lifecycle.Environment{WebhookURIEnvName: "https://flow.example.com/hook"},
		)
		require.ErrorIs(t, err, ErrProvider)
		require.ErrorIs(t, err, assert.AnError)
	})
}

func TestDeactivate(t *testing.T) {
	t.Parallel()

	t.Run("deletes the webhook recorded in state", func(t *testing.T) {
		t.Parallel()

		api := newFakeMandrill(t, mandrillResponder)
		err := NewRegistrar(api.Client()).Deactivate(t.Context(),
			lifecycle.Configuration{ConfigurationAPIKey: "secret-key"},
			lifecycle.Environment{BaseURLEnvName: api.URL},
			lifecycle.State{ID: "abc123"},
		)
		require.NoError(t, err)

		calls := api.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, deleteWebhookPath, calls[0].Path)
		assert.Equal(t, map[string]any{"key": "secret-key", "id": "abc123"}, calls[0].Body)
	})

	t.Run("provider failures are returned", func(t *testing.T) {
		t.Parallel()

		api := newFakeMandrill(t, func(w http.ResponseWriter, _ string, _ map[string]any) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"status":"error","code":1,"name":"Unknown_Webhook","message":"No webhook with id abc123"}`))
		})

		err := NewRegistrar(api.Client()).Deactivate(t.Context(),
			lifecycle.Configuration{ConfigurationAPIKey: "secret-key"},
			lifecycle.Environment{BaseURLEnvName: api.URL},
			lifecycle.State{ID: "abc123"},
		)
		require.ErrorIs(t, err, ErrProvider)
		require.ErrorIs(t, err, lifecycle.ErrSubscriptionNotFound)
		assert.Contains(t, err.Error(), "Unknown_Webhook")
		assert.Len(t, api.Calls(), 1)
	})

	t.Run("other provider failures do not report a missing webhook", func(t *testing.T) {
		t.Parallel()

		api := newFakeMandrill(t, func(w http.ResponseWriter, _ string, _ map[string]any) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"status":"error","code":-1,"name":"Invalid_Key","message":"Invalid API key"}`))
		})

		err := NewRegistrar(api.Client()).Deactivate(t.Context(),
			lifecycle.Configuration{ConfigurationAPIKey: "secret-key"},
			lifecycle.Environment{BaseURLEnvName: api.URL},
			lifecycle.State{ID: "abc123"},
		)
		require.ErrorIs(t, err, ErrProvider)
		assert.NotErrorIs(t, err, lifecycle.ErrSubscriptionNotFound)
	})
}

func TestDeactivateFailures(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		configuration lifecycle.Configuration
		state         lifecycle.State
		expectedErr   error
	}{
		"missing api key": {
			configuration: lifecycle.Configuration{},
			state:         lifecycle.State{ID: "abc123"},
			expectedErr:   ErrConfiguration,
		},
		"missing id": {
			configuration: lifecycle.Configuration{ConfigurationAPIKey: "key"},
			state:         lifecycle.State{URL: "https://flow.example.com/hook"},
			expectedErr:   ErrState,
		},
		"malformed id": {
			configuration: lifecycle.Configuration{ConfigurationAPIKey: "key"},
			state:         lifecycle.State{ID: "abc 123"},
			expectedErr:   ErrState,
		},
		"id with control characters": {
			configuration: lifecycle.Configuration{ConfigurationAPIKey: "key"},
			state:         lifecycle.State{ID: "abc\n"},
			expectedErr:   ErrState,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			called := false
			registrar := NewRegistrar(doerFunc(func(*http.Request) (*http.Response, error) {
				called = true
				return nil, errors.New("unexpected call")
			}))

			err := registrar.Deactivate(t.Context(), test.configuration, lifecycle.Environment{}, test.state)
			require.ErrorIs(t, err, test.expectedErr)
			assert.False(t, called, "no request must be sent")
		})
	}
}

func TestBaseURLResolution(t *testing.T) {
	t.Parallel()

	newCapturingRegistrar := func(urls *[]string) *Registrar {
		return NewRegistrar(doerFunc(func(req *http.Request) (*http.Response, error) {
			*urls = append(*urls, req.URL.String())
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(`{"id":"abc123"}`)),
			}, nil
		}))
	}

	configuration := lifecycle.Configuration{ConfigurationAPIKey: "key"}

	t.Run("default base url", func(t *testing.T) {
		t.Parallel()

		var urls []string
		registrar := newCapturingRegistrar(&urls)
		environment := lifecycle.Environment{WebhookURIEnvName: "https://flow.example.com/hook"}

		state, err := registrar.Activate(t.Context(), configuration, environment)
		require.NoError(t, err)
		require.NoError(t, registrar.Deactivate(t.Context(), configuration, environment, state))

		assert.Equal(t, []string{
			"https://mandrillapp.com/api/1.0/webhooks/add.json",
			"https://mandrillapp.com/api/1.0/webhooks/delete.json",
		}, urls)
	})

	t.Run("overridden base url", func(t *testing.T) {
		t.Parallel()

		var urls []string
		registrar := newCapturingRegistrar(&urls)
		environment := lifecycle.Environment{
			WebhookURIEnvName: "https://flow.example.com/hook",
			BaseURLEnvName:    "http://mandrill.internal:8080/api/1.0",
		}

		state, err := registrar.Activate(t.Context(), configuration, environment)
		require.NoError(t, err)
		require.NoError(t, registrar.Deactivate(t.Context(), configuration, environment, state))

		assert.Equal(t, []string{
			"http://mandrill.internal:8080/api/1.0/webhooks/add.json",
			"http://mandrill.internal:8080/api/1.0/webhooks/delete.json",
		}, urls)
	})
}
