// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package mandrill

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mia-platform/mandrill-webhook/internal/info"
)

const (
	addWebhookPath    = "/webhooks/add.json"
	deleteWebhookPath = "/webhooks/delete.json"

	// createdAtLayout is the layout of the UTC timestamps returned by the API.
	createdAtLayout = "2006-01-02 15:04:05"

	statusCodeErrorRangeStart = 400
)

// HTTPDoer is the subset of *http.Client used to call the API.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type addWebhookRequest struct {
	Key         string   `json:"key"`
	URL         string   `json:"url"`
	Description string   `json:"description,omitempty"`
	Events      []string `json:"events,omitempty"`
}

type deleteWebhookRequest struct {
	Key string `json:"key"`
	ID  string `json:"id"`
}

// webhookID accepts both the numeric ids returned by the API and string ids.
type webhookID string

func (id *webhookID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*id = webhookID(asString)
		return nil
	}

	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err != nil {
		return fmt.Errorf("webhook id must be a string or a number: %s", string(data))
	}
	*id = webhookID(asNumber.String())
	return nil
}

// webhook is the webhook object returned by the add call.
type webhook struct {
	ID          webhookID `json:"id"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	AuthKey     string    `json:"auth_key"`
	Events      []string  `json:"events"`
	CreatedAt   string    `json:"created_at"`
}

func (w webhook) createdAt() time.Time {
	created, err := time.ParseInLocation(createdAtLayout, w.CreatedAt, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return created
}

// apiError is the body Mandrill sends back on failed calls.
type apiError struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// client performs the webhook calls against a single base URL.
type client struct {
	baseURL string
	doer    HTTPDoer
}

func (c *client) addWebhook(ctx context.Context, request addWebhookRequest) (*webhook, error) {
	response := new(webhook)
	if err := c.post(ctx, addWebhookPath, request, response); err != nil {
		return nil, err
	}

	if response.ID == "" {
		return nil, &ProviderError{Path: addWebhookPath, StatusCode: http.StatusOK, Message: "response does not contain the webhook id"}
	}
	return response, nil
}

// deleteWebhook removes the webhook, the content of the response object is not interpreted.
func (c *client) deleteWebhook(ctx context.Context, request deleteWebhookRequest) error {
	var response map[string]any
	return c.post(ctx, deleteWebhookPath, request, &response)
}

// post sends body as JSON to path and decodes the JSON response into out.
func (c *client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &ProviderError{Path: path, err: err}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &ProviderError{Path: path, err: err}
	}

	request.Header.Set("User-Agent", info.UserAgent())
	request.Header.Set("Accept", "application/json")
	request.Header.Set("Content-Type", "application/json")

	resp, err := c.doer.Do(request)
	if err != nil {
		return &ProviderError{Path: path, err: err}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{Path: path, StatusCode: resp.StatusCode, err: err}
	}

	if resp.StatusCode >= statusCodeErrorRangeStart {
		providerErr := &ProviderError{Path: path, StatusCode: resp.StatusCode}
		var errResp apiError
		if err := json.Unmarshal(responseBody, &errResp); err == nil && errResp.Status == "error" {
			providerErr.Code = errResp.Code
			providerErr.Name = errResp.Name
			providerErr.Message = errResp.Message
		} else {
			providerErr.Message = "unexpected response " + strconv.Quote(string(bytes.TrimSpace(responseBody)))
		}
		return providerErr
	}

	if err := json.Unmarshal(responseBody, out); err != nil {
		return &ProviderError{Path: path, StatusCode: resp.StatusCode, err: errors.Join(errors.New("decoding response"), err)}
	}
	return nil
}
