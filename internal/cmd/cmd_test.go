// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/mia-platform/mandrill-webhook/internal/mandrill"
)

func TestCmds(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		cmd                  *cobra.Command
		args                 []string
		stdin                io.Reader
		expectedError        error
		expectedErrorMessage string
		expectedUsage        bool
		expectedOutput       []string
	}{
		"run command with unknown sink prints error and usage": {
			cmd:                  RunCmd(),
			args:                 []string{"--" + sinkFlagName, "kafka"},
			expectedError:        errInvalidSink,
			expectedErrorMessage: errInvalidSink.Error() + ": kafka\n",
			expectedUsage:        true,
		},
		"register command with unknown state store prints error and usage": {
			cmd:                  RegisterCmd(),
			args:                 []string{"--" + stateStoreFlagName, "redis"},
			expectedError:        errInvalidStateStore,
			expectedErrorMessage: errInvalidStateStore.Error() + ": redis\n",
			expectedUsage:        true,
		},
		"unregister command with unknown sink prints error and usage": {
			cmd:                  UnregisterCmd(),
			args:                 []string{"--" + sinkFlagName, "kafka"},
			expectedError:        errInvalidSink,
			expectedErrorMessage: errInvalidSink.Error() + ": kafka\n",
			expectedUsage:        true,
		},
		"translate command prints the records of a form encoded delivery": {
			cmd:            TranslateCmd(),
			args:           []string{"--" + inputFlagName, filepath.Join("testdata", "delivery.form")},
			expectedOutput: []string{"Event: send", "Event: open", `"email": "user@example.com"`},
		},
		"translate command prints the records of a json delivery from stdin": {
			cmd:            TranslateCmd(),
			stdin:          strings.NewReader(`{"mandrill_events":"[{\"event\":\"click\"}]"}`),
			expectedOutput: []string{"Event: click"},
		},
		"translate command without events prints nothing": {
			cmd:   TranslateCmd(),
			stdin: strings.NewReader(""),
		},
		"translate command with missing input file": {
			cmd:                  TranslateCmd(),
			args:                 []string{"-" + inputFlagShort, filepath.Join("testdata", "missing")},
			expectedError:        syscall.ENOENT,
			expectedErrorMessage: fmt.Sprintf("open %s: %s\n", filepath.Join("testdata", "missing"), syscall.ENOENT),
		},
		"translate command with malformed events": {
			cmd:           TranslateCmd(),
			stdin:         strings.NewReader("mandrill_events=not-json"),
			expectedError: mandrill.ErrPayload,
		},
		"translate command with malformed json delivery": {
			cmd:           TranslateCmd(),
			stdin:         strings.NewReader("{broken"),
			expectedError: errInvalidInput,
		},
	}

	for testName, test := range testCases {
		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			errBuffer := new(bytes.Buffer)
			outBuffer := new(bytes.Buffer)
			test.cmd.SetOut(outBuffer)
			test.cmd.SetErr(errBuffer)
			if test.stdin != nil {
				test.cmd.SetIn(test.stdin)
			}
			test.cmd.SetUsageTemplate("usage string")
			test.cmd.SetArgs(test.args)

			err := test.cmd.ExecuteContext(t.Context())
			if test.expectedError != nil {
				assert.ErrorIs(t, err, test.expectedError)
				if test.expectedErrorMessage != "" {
					assert.Equal(t, test.expectedErrorMessage, errBuffer.String())
				}
			} else {
				assert.NoError(t, err)
				assert.Empty(t, errBuffer)
			}

			switch {
			case test.expectedUsage:
				assert.Equal(t, "usage string", outBuffer.String())
			case len(test.expectedOutput) > 0:
				for _, expected := range test.expectedOutput {
					assert.Contains(t, outBuffer.String(), expected)
				}
			default:
				assert.Empty(t, outBuffer)
			}
		})
	}
}

func TestCmdsRejectArguments(t *testing.T) {
	t.Parallel()

	for _, cmd := range []*cobra.Command{RunCmd(), RegisterCmd(), UnregisterCmd(), TranslateCmd()} {
		t.Run(cmd.Name(), func(t *testing.T) {
			t.Parallel()

			errBuffer := new(bytes.Buffer)
			outBuffer := new(bytes.Buffer)
			cmd.SetOut(outBuffer)
			cmd.SetErr(errBuffer)
			cmd.SetUsageTemplate("usage string")
			cmd.SetArgs([]string{"extra"})

			err := cmd.ExecuteContext(t.Context())
			assert.Error(t, err)
			assert.Equal(t, fmt.Sprintf("unknown command %q for %q\n", "extra", cmd.Name()), errBuffer.String())
			assert.Equal(t, "usage string", outBuffer.String())
		})
	}
}

func TestFlagCompletion(t *testing.T) {
	t.Parallel()

	comps, directive := flagCompletionFunc(availableSinks)(nil, nil, "f")
	assert.Equal(t, []string{cobra.CompletionWithDesc("forward", availableSinks["forward"])}, comps)
	assert.Equal(t, cobra.ShellCompDirectiveNoFileComp, directive)

	comps, _ = flagCompletionFunc(availableStateStores)(nil, nil, "")
	assert.Len(t, comps, len(availableStateStores))
}
