package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/fall-alarm/internal/config"
	"github.com/oshokin/fall-alarm/internal/service/ctl"
	"github.com/oshokin/fall-alarm/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// address overrides the status service address.
	address string
	// wait keeps retrying cancel until a countdown runs.
	wait bool
	// journalFile overrides the configured journal path.
	journalFile string
	// limit caps the journal entries shown.
	limit int

	// rootCmd is the operator tool.
	rootCmd = &cobra.Command{
		Use:   "fall-alarm-ctl",
		Short: "Inspect and control a running wristband.",
		Long: `Talks to the status service of a running fall-alarm daemon.

The device address is read from status.listen_address of the configuration file
unless --address is given.`,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the device state.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return ctl.Status(ctx, options(cmd))
		},
	}

	cancelCmd = &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a running countdown.",
		Long: `Presses the cancel button of the device on behalf of the current user.

Only a running countdown can be cancelled; an alert that was already sent is not
recalled. With --wait the request is repeated every second until a countdown runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return ctl.Cancel(ctx, options(cmd))
		},
	}

	journalCmd = &cobra.Command{
		Use:   "journal",
		Short: "Print the incident journal.",
		Long: `Prints the alerts, calls, cancellations and recoveries recorded by the daemon.

The journal is read from journal_file of the configuration file unless --file
is given. It is read from disk, so the daemon does not need to be running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctl.Journal(cmd.Context(), options(cmd))
		},
	}
)

func options(cmd *cobra.Command) *ctl.Options {
	return &ctl.Options{
		ConfigPath:  cfgPath,
		Address:     address,
		Wait:        wait,
		JournalFile: journalFile,
		Limit:       limit,
		Out:         cmd.OutOrStdout(),
	}
}

// Execute runs the fall-alarm-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to configuration file (default "+config.DefaultConfigFilename+")")
	rootCmd.PersistentFlags().StringVarP(&address, "address", "a", "", "status service address")

	cancelCmd.Flags().BoolVarP(&wait, "wait", "w", false, "retry until a countdown is running")

	journalCmd.Flags().StringVarP(&journalFile, "file", "f", "", "journal file to read")
	journalCmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the last n entries")

	rootCmd.AddCommand(statusCmd, cancelCmd, journalCmd)
}
