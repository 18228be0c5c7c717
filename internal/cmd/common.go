// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
	"github.com/mia-platform/mandrill-webhook/internal/mandrill"
	"github.com/mia-platform/mandrill-webhook/internal/server"
	"github.com/mia-platform/mandrill-webhook/internal/sink"
	azuresink "github.com/mia-platform/mandrill-webhook/internal/sink/azure"
	"github.com/mia-platform/mandrill-webhook/internal/sink/forward"
	gcpsink "github.com/mia-platform/mandrill-webhook/internal/sink/gcp"
	"github.com/mia-platform/mandrill-webhook/internal/sink/writer"
	"github.com/mia-platform/mandrill-webhook/internal/state"
	azurestate "github.com/mia-platform/mandrill-webhook/internal/state/azure"
	filestate "github.com/mia-platform/mandrill-webhook/internal/state/file"
)

var (
	errInvalidSink       = errors.New("invalid sink provided")
	errInvalidStateStore = errors.New("invalid state store provided")
	errInvalidInput      = errors.New("invalid delivery")

	// availableSinks holds the list of available sinks and their description
	// for flag completion and help messages.
	availableSinks = map[string]string{
		"stdout":  "print the records on the standard output",
		"forward": "POST the records to an HTTP endpoint",
		"gcp":     "publish the records on a Google Cloud Pub/Sub topic",
		"azure":   "send the records to an Azure Event Hub",
	}
	// availableStateStores holds the list of available state stores and their description
	// for flag completion and help messages.
	availableStateStores = map[string]string{
		"file":  "keep the state in a local YAML file",
		"azure": "keep the state in an Azure Storage blob",
	}
)

// handleError will do custom print error handling based on the type of error received.
// It always returns the original error so the command exits with a non zero code.
func handleError(cmd *cobra.Command, err error) error {
	switch {
	case errors.Is(err, errInvalidSink), errors.Is(err, errInvalidStateStore):
		cmd.PrintErrln(err)
		_ = cmd.Usage() // do not check error as we cannot do much about it
		return err
	default:
		cmd.PrintErrln(err)
		return err
	}
}

func flagCompletionFunc(values map[string]string) cobra.CompletionFunc {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var comps []string
		for name, description := range values {
			if strings.HasPrefix(name, toComplete) {
				comps = append(comps, cobra.CompletionWithDesc(name, description))
			}
		}

		return comps, cobra.ShellCompDirectiveNoFileComp
	}
}

func moduleFromEnvironment() lifecycle.Module {
	return mandrill.NewTrigger(nil)
}

// emitterFromName returns the sink selected with the sink flag, configured from the process
// environment.
func emitterFromName(ctx context.Context, name string, out io.Writer) (sink.Emitter, error) {
	switch name {
	case "stdout":
		return writer.NewEmitter(out), nil
	case "forward":
		return forward.NewEmitter(ctx)
	case "gcp":
		emitter, err := gcpsink.NewEmitter(ctx)
		if err != nil {
			return nil, err
		}
		return emitter, nil
	case "azure":
		emitter, err := azuresink.NewEmitter()
		if err != nil {
			return nil, err
		}
		return emitter, nil
	}

	return nil, fmt.Errorf("%w: %s", errInvalidSink, name)
}

// storeFromName returns the state store selected with the state-store flag, configured from
// the process environment.
func storeFromName(name string) (state.Store, error) {
	switch name {
	case "file":
		store, err := filestate.NewStore()
		if err != nil {
			return nil, err
		}
		return store, nil
	case "azure":
		store, err := azurestate.NewStore()
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	return nil, fmt.Errorf("%w: %s", errInvalidStateStore, name)
}

func newServer(ctx context.Context) (server.Server, error) {
	return server.NewServer(ctx)
}

// closeEmitter releases the emitter resources when it holds any.
func closeEmitter(ctx context.Context, emitter sink.Emitter) error {
	closer, ok := emitter.(sink.Closer)
	if !ok {
		return nil
	}

	return closer.Close(ctx)
}
