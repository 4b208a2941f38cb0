package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/fall-alarm/internal/config"
	"github.com/oshokin/fall-alarm/internal/device/sim"
	"github.com/oshokin/fall-alarm/internal/service/daemon"
	"github.com/oshokin/fall-alarm/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string
	// listenAddress overrides the configured status service address.
	listenAddress string
	// trace is a CSV motion trace to replay.
	trace string
	// loop replays the trace forever.
	loop bool
	// scenario names the simulated motion scenario.
	scenario string
	// messages are delivered to the simulated inbox at start.
	messages []string
	// allowMany skips the single-instance check.
	allowMany bool

	// rootCmd is the wristband daemon.
	rootCmd = &cobra.Command{
		Use:   "fall-alarm",
		Short: "Wearable fall-detection controller.",
		Long: `Runs the wristband control loop: samples motion, detects falls, counts down
so the wearer can cancel a false alarm, texts the configured recipient and accepts
/setnumber and /test commands by SMS.`,
	}

	// runCmd runs the device against the configured modem.
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the wristband.",
		Long: `Runs the wristband with the modem configured in the settings file and the motion
samples of --trace (a CSV file or a pipe fed by the sensor bridge).

When modem.port is empty the in-memory modem is used instead.
Press Enter to cancel a running countdown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return daemon.Run(ctx, &daemon.Options{
				ConfigPath:        configPath,
				LogLevel:          logLevel,
				ListenAddress:     listenAddress,
				Trace:             trace,
				Loop:              loop,
				StdinButton:       true,
				SkipInstanceCheck: allowMany,
				Stdout:            cmd.OutOrStdout(),
			})
		},
	}

	// simulateCmd plays a scripted scenario against the in-memory modem.
	simulateCmd = &cobra.Command{
		Use:   "simulate",
		Short: "Play a motion scenario against a simulated modem.",
		Long: fmt.Sprintf(`Plays a scripted motion scenario (or --trace) against the in-memory modem and
prints every text and call the device made.

Scenarios: %s.
Press Enter to cancel a running countdown.`, strings.Join(sim.Scenarios(), ", ")),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return daemon.Run(ctx, &daemon.Options{
				ConfigPath:        configPath,
				LogLevel:          logLevel,
				ListenAddress:     listenAddress,
				Simulate:          true,
				Scenario:          scenario,
				Trace:             trace,
				Loop:              loop,
				Messages:          messages,
				StdinButton:       true,
				SkipInstanceCheck: allowMany,
				Stdout:            cmd.OutOrStdout(),
			})
		},
	}
)

// Execute runs the fall-alarm CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default "+config.DefaultConfigFilename+")")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "override the configured log level")
	rootCmd.PersistentFlags().StringVar(&listenAddress, "listen", "", "override the status service address")
	rootCmd.PersistentFlags().StringVarP(&trace, "trace", "t", "", "CSV motion trace to replay")
	rootCmd.PersistentFlags().BoolVar(&loop, "loop", false, "replay the trace forever")
	rootCmd.PersistentFlags().BoolVar(&allowMany, "allow-many", false, "skip the single-instance check")

	simulateCmd.Flags().StringVarP(&scenario, "scenario", "s", daemon.DefaultScenario, "motion scenario to play")
	simulateCmd.Flags().StringArrayVarP(&messages, "sms", "m", nil, "text delivered to the simulated inbox before start")

	err := rootCmd.PersistentFlags().MarkHidden("allow-many")
	if err != nil {
		panic(err)
	}

	rootCmd.AddCommand(runCmd, simulateCmd)
}
