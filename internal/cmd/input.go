// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/google/uuid"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
)

// openInput returns the reader for path, "-" selects stdin.
func openInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "" || path == defaultInputPath {
		return io.NopCloser(stdin), nil
	}

	return os.Open(path)
}

// readMessage decodes a delivery saved as a JSON object or as the form encoded body sent by
// Mandrill. Form fields keep their first value.
func readMessage(r io.Reader) (lifecycle.Message, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return lifecycle.Message{}, err
	}

	body := make(map[string]any)
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
	case trimmed[0] == '{':
		decoder := json.NewDecoder(bytes.NewReader(trimmed))
		decoder.UseNumber()
		if err := decoder.Decode(&body); err != nil {
			return lifecycle.Message{}, fmt.Errorf("%w: %w", errInvalidInput, err)
		}
	default:
		values, err := url.ParseQuery(string(trimmed))
		if err != nil {
			return lifecycle.Message{}, fmt.Errorf("%w: %w", errInvalidInput, err)
		}
		for key, value := range values {
			body[key] = value[0]
		}
	}

	return lifecycle.Message{ID: uuid.NewString(), Body: body}, nil
}
