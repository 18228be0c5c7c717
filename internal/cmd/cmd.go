// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"context"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

const (
	runCmdUsage = "run"
	runCmdShort = "register the Mandrill webhook and serve its deliveries"
	runCmdLong  = `Register the Mandrill webhook and serve its deliveries until the process
	is interrupted.

	The webhook is added with the API key found in the configuration file or in
	the MANDRILL_API_KEY environment variable and points to FLOW_WEBHOOK_URI.
	Every event contained in a delivery is sent to the selected sink, one record
	per event. On SIGINT or SIGTERM the webhook is removed before exiting.`

	runCmdExample = `# Serve deliveries and print the records on stdout
	mandrill-webhook run --config-file config.yaml

	# Publish the records on a Pub/Sub topic and keep the state in Azure Blob Storage
	mandrill-webhook run --sink gcp --state-store azure`

	registerCmdUsage = "register"
	registerCmdShort = "register the Mandrill webhook and save its state"
	registerCmdLong  = `Register the Mandrill webhook and save the returned subscription in the
	selected state store, then print the webhook id.

	The command fails if a subscription is already saved, use unregister first.`

	registerCmdExample = `# Register the webhook keeping the state on a local file
	STATE_FILE_PATH=state.yaml mandrill-webhook register -c config.yaml`

	unregisterCmdUsage = "unregister"
	unregisterCmdShort = "remove the Mandrill webhook saved in the state store"
	unregisterCmdLong  = `Remove the Mandrill webhook whose subscription is saved in the selected
	state store and delete the saved state.

	The state is kept when Mandrill refuses the removal.`

	unregisterCmdExample = `# Remove the webhook registered with the register command
	STATE_FILE_PATH=state.yaml mandrill-webhook unregister -c config.yaml`

	translateCmdUsage = "translate"
	translateCmdShort = "send the events of a saved delivery to a sink"
	translateCmdLong  = `Read a single webhook delivery and send one record per event to the
	selected sink, without registering any webhook.

	The delivery can be the form encoded body sent by Mandrill or a JSON object
	containing the mandrill_events field.`

	translateCmdExample = `# Print the records contained in a captured delivery
	mandrill-webhook translate --input delivery.txt

	# Forward a delivery read from stdin to an HTTP endpoint
	cat delivery.json | FORWARD_ENDPOINT=https://example.com/events mandrill-webhook translate --sink forward`
)

// RunCmd returns the "run" cli command serving webhook deliveries.
func RunCmd() *cobra.Command {
	flags := &flags{}
	return newCommand(flags, runCmdUsage, runCmdShort, runCmdLong, runCmdExample, (*options).executeRun)
}

// RegisterCmd returns the "register" cli command adding the webhook.
func RegisterCmd() *cobra.Command {
	flags := &flags{}
	return newCommand(flags, registerCmdUsage, registerCmdShort, registerCmdLong, registerCmdExample, (*options).executeRegister)
}

// UnregisterCmd returns the "unregister" cli command removing the webhook.
func UnregisterCmd() *cobra.Command {
	flags := &flags{}
	return newCommand(flags, unregisterCmdUsage, unregisterCmdShort, unregisterCmdLong, unregisterCmdExample, (*options).executeUnregister)
}

// TranslateCmd returns the "translate" cli command replaying a single delivery.
func TranslateCmd() *cobra.Command {
	flags := &flags{withInput: true}
	return newCommand(flags, translateCmdUsage, translateCmdShort, translateCmdLong, translateCmdExample, (*options).executeTranslate)
}

func newCommand(flags *flags, use, short, long, example string, execute func(*options, context.Context) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:     use,
		Short:   heredoc.Doc(short),
		Long:    heredoc.Doc(long),
		Example: heredoc.Doc(example),

		SilenceErrors: true,
		SilenceUsage:  true,

		Args: func(cmd *cobra.Command, args []string) error {
			err := cobra.NoArgs(cmd, args)
			if err != nil {
				cmd.PrintErrln(err)
				_ = cmd.Usage()
			}

			return err
		},
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := flags.toOptions(cmd)
			if err := opts.validate(); err != nil {
				return handleError(cmd, err)
			}

			if err := execute(opts, cmd.Context()); err != nil {
				return handleError(cmd, err)
			}

			return nil
		},
	}

	flags.addFlags(cmd)
	return cmd
}
