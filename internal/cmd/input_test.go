// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMessage(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input         string
		expectedBody  map[string]any
		expectedError error
	}{
		"empty input": {
			input:        "  \n",
			expectedBody: map[string]any{},
		},
		"form encoded": {
			input:        "mandrill_events=%5B%5D&other=a&other=b\n",
			expectedBody: map[string]any{"mandrill_events": "[]", "other": "a"},
		},
		"json object": {
			input:        `{"mandrill_events":"[]","retry":1}`,
			expectedBody: map[string]any{"mandrill_events": "[]", "retry": json.Number("1")},
		},
		"broken json": {
			input:         `{"mandrill_events":`,
			expectedError: errInvalidInput,
		},
		"broken form": {
			input:         "mandrill_events=%zz",
			expectedError: errInvalidInput,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			message, err := readMessage(strings.NewReader(test.input))
			if test.expectedError != nil {
				require.ErrorIs(t, err, test.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expectedBody, message.Body)
			assert.Len(t, message.ID, 36)
		})
	}
}
