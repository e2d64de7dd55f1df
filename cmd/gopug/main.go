package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	get_diagnostics "github.com/walteh/gopug/cmd/gopug/get-diagnostics"
	get_tokens "github.com/walteh/gopug/cmd/gopug/get-tokens"
	"github.com/walteh/gopug/cmd/gopug/parse"
	gopugdebug "github.com/walteh/gopug/pkg/debug"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "gopug",
		Short: "A parser and checker for pug templates",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(gopugdebug.WithLogger(cmd.Context(), cmd.ErrOrStderr(), gopugdebug.ParseLevel(logLevel)))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "the log level (trace, debug, info, warn, error)")

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)

	rootCmd.AddCommand(parse.NewParseCommand())
	rootCmd.AddCommand(get_diagnostics.NewGetDiagnosticsCommand())
	rootCmd.AddCommand(get_tokens.NewGetTokensCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
