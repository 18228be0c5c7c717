// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mia-platform/mandrill-webhook/internal/lifecycle"
)

const (
	configFileFlagName  = "config-file"
	configFileFlagShort = "c"
	configFileFlagUsage = "Path to the YAML file containing the webhook configuration"

	sinkFlagName    = "sink"
	sinkFlagUsage   = "Where the event records are sent (possible values: %s)"
	defaultSinkName = "stdout"

	stateStoreFlagName    = "state-store"
	stateStoreFlagUsage   = "Where the webhook subscription is saved (possible values: %s)"
	defaultStateStoreName = "file"

	inputFlagName    = "input"
	inputFlagShort   = "i"
	inputFlagUsage   = "Path to the file containing the delivery, - reads from stdin"
	defaultInputPath = "-"
)

// flags collects the CLI options shared by every command.
type flags struct {
	configFile     string
	sinkName       string
	stateStoreName string
	inputPath      string

	withInput bool
}

// addFlags registers the CLI flags on cmd.
func (f *flags) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configFile, configFileFlagName, configFileFlagShort, "", configFileFlagUsage)

	cmd.Flags().StringVar(&f.sinkName, sinkFlagName, defaultSinkName, fmt.Sprintf(sinkFlagUsage, strings.Join(slices.Sorted(maps.Keys(availableSinks)), ", ")))
	_ = cmd.RegisterFlagCompletionFunc(sinkFlagName, flagCompletionFunc(availableSinks))

	if f.withInput {
		cmd.Flags().StringVarP(&f.inputPath, inputFlagName, inputFlagShort, defaultInputPath, inputFlagUsage)
		return
	}

	cmd.Flags().StringVar(&f.stateStoreName, stateStoreFlagName, defaultStateStoreName, fmt.Sprintf(stateStoreFlagUsage, strings.Join(slices.Sorted(maps.Keys(availableStateStores)), ", ")))
	_ = cmd.RegisterFlagCompletionFunc(stateStoreFlagName, flagCompletionFunc(availableStateStores))
}

// toOptions builds an options instance from the parsed flags.
func (f *flags) toOptions(cmd *cobra.Command) *options {
	return &options{
		configFile:     f.configFile,
		sinkName:       strings.ToLower(f.sinkName),
		stateStoreName: strings.ToLower(f.stateStoreName),
		inputPath:      f.inputPath,
		withStateStore: !f.withInput,

		environment: lifecycle.OSEnvironment(),
		in:          cmd.InOrStdin(),
		out:         cmd.OutOrStdout(),

		moduleGetter:  moduleFromEnvironment,
		emitterGetter: emitterFromName,
		storeGetter:   storeFromName,
		serverGetter:  newServer,
	}
}
