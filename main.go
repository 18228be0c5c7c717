// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	internalcmd "github.com/mia-platform/mandrill-webhook/internal/cmd"
	"github.com/mia-platform/mandrill-webhook/internal/info"
	"github.com/mia-platform/mandrill-webhook/internal/logger"
)

var (
	// Version is injected at build time via the Makefile.
	Version = info.Version
	// BuildDate is injected at build time via the Makefile.
	BuildDate = info.BuildDate

	appName      = info.AppName
	versionShort = "Display the " + appName + " version"

	errInvalidLogLevel = errors.New("invalid log level")
)

const (
	appShort = "mandrill-webhook registers a Mandrill webhook and turns its deliveries into event records"
	appLong  = `mandrill-webhook adds a webhook to a Mandrill account, receives the batches
	of events Mandrill delivers to it and sends every event, one record at a time,
	to the selected sink. The webhook is removed when the process stops.

	The default log level can be set with the LOG_LEVEL environment variable.`

	logLevelFlagName      = "log-level"
	logLevelShortFlagName = "v"

	versionCmdName        = "version"
	versionShortFlagName  = "short"
	versionShortFlagUsage = "print only the version number"
)

var (
	allLoggerLevels = []string{
		logger.TRACE.String(),
		logger.DEBUG.String(),
		logger.INFO.String(),
		logger.WARN.String(),
		logger.ERROR.String(),
	}
	logLevelFlagUsage = "set the logging level (possible values: " + strings.Join(allLoggerLevels, ", ") + ")"
)

type rootEnv struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
}

// rootFlags holds the persistent flags shared across the command tree.
type rootFlags struct {
	logLevel string
}

// addFlags registers the persistent CLI flags on cmd, defaults are read from the environment.
func (f *rootFlags) addFlags(cmd *cobra.Command) {
	defaultLevel := logger.INFO.String()
	if parsed, err := env.ParseAs[rootEnv](); err == nil {
		defaultLevel = strings.ToUpper(parsed.LogLevel)
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&f.logLevel, logLevelFlagName, logLevelShortFlagName, defaultLevel, logLevelFlagUsage)
	_ = cmd.RegisterFlagCompletionFunc(logLevelFlagName, cobra.FixedCompletions(allLoggerLevels, cobra.ShellCompDirectiveNoFileComp))
}

func (f *rootFlags) validate() error {
	if !slices.Contains(allLoggerLevels, strings.ToUpper(f.logLevel)) {
		return fmt.Errorf("%w %q, possible values: %s", errInvalidLogLevel, f.logLevel, strings.Join(allLoggerLevels, ", "))
	}
	return nil
}

func main() {
	cmd := rootCmd()
	log := logger.NewLogger(cmd.OutOrStderr())
	ctx := logger.WithContext(context.Background(), log)

	exitCode := 0
	if err := cmd.ExecuteContext(ctx); err != nil {
		exitCode = 1
	}

	os.Exit(exitCode)
}

// rootCmd constructs the root Cobra command with shared configuration.
func rootCmd() *cobra.Command {
	flag := &rootFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: heredoc.Doc(appShort),
		Long:  heredoc.Doc(appLong),

		SilenceErrors: true,
		SilenceUsage:  true,

		ValidArgsFunction: cobra.NoFileCompletions,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := flag.validate(); err != nil {
				cmd.PrintErrln(err)
				return err
			}

			log := logger.FromContext(cmd.Context())
			log.SetLevel(logger.LevelFromString(flag.logLevel))
			return nil
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		c.PrintErrln(err)
		_ = c.Usage()
		return err
	})

	flag.addFlags(cmd)
	cmd.AddCommand(
		internalcmd.RunCmd(),
		internalcmd.RegisterCmd(),
		internalcmd.UnregisterCmd(),
		internalcmd.TranslateCmd(),
		versionCmd(),
	)

	return cmd
}

// versionCmd constructs the Cobra command that prints version information.
func versionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   versionCmdName,
		Short: heredoc.Doc(versionShort),

		Args: func(cmd *cobra.Command, args []string) error {
			err := cobra.NoArgs(cmd, args)
			if err != nil {
				cmd.PrintErrln(err)
				_ = cmd.Usage()
			}

			return err
		},
		ValidArgsFunction: cobra.NoFileCompletions,
		Run: func(cmd *cobra.Command, _ []string) {
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), Version)
				return
			}
			fmt.Fprintln(cmd.OutOrStdout(), versionString(Version, BuildDate, runtime.Version()))
		},
	}

	cmd.Flags().BoolVar(&short, versionShortFlagName, false, versionShortFlagUsage)
	return cmd
}

// versionString formats the version metadata for display.
func versionString(version, buildDate, runtimeVersion string) string {
	outputString := version
	if buildDate != "" {
		outputString += " (" + buildDate + ")"
	}

	return outputString + ", Go Version: " + runtimeVersion
}
