package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"sparkrt/internal/buildinfo"
	"sparkrt/internal/logging"
)

type rootFlags struct {
	logLevel  string
	logFormat string

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:   "rtsim",
		Short: "Run kernel scenarios in virtual time",
		Long: "rtsim executes HCL scenario files on a simulated port. Runs are\n" +
			"deterministic: the same file always produces the same schedule.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(f.logLevel)
			if err != nil {
				return err
			}
			format, err := logging.ParseFormat(f.logFormat)
			if err != nil {
				return err
			}
			f.logger = logging.NewLoggerWithWriter(level, format, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&f.logFormat, "log-format", logging.FormatPlain, "Log format (text, json, plain)")

	root.AddCommand(
		newRunCmd(f),
		newCheckCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("rtsim " + buildinfo.String())
		},
	}
}
