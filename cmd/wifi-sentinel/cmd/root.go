package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/wifi-sentinel/internal/capture/live"
	"github.com/oshokin/wifi-sentinel/internal/config"
	"github.com/oshokin/wifi-sentinel/internal/service/sensor"
	"github.com/oshokin/wifi-sentinel/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// replayFile is a capture file replayed instead of live capture.
	replayFile string
	// alarmPin is the GPIO line driving the buzzer.
	alarmPin string
	// dryRun uses a simulated output instead of GPIO.
	dryRun bool
	// queueDepth sets the detection queue size; 0 alerts on the capture path.
	queueDepth int
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd represents the base command for running the sensor.
	rootCmd = &cobra.Command{
		Use:   "wifi-sentinel [interface]",
		Short: "Sound an alarm on deauthentication floods and pixie dust attempts.",
		Long: `Passively watches 802.11 traffic on a monitor-mode interface and sounds
a buzzer wired to a GPIO line when a frame matches a known attack signature:

  - deauthentication frames (deauth floods),
  - reassociation requests (coarse pixie dust heuristic).

Each matching frame produces a one second alarm pulse; pulses never overlap.
The buzzer sounds once at start-up to confirm it is wired correctly, and the
sensor refuses to start when it cannot drive it.

The interface must already be in monitor mode. Use --replay to classify a
pcap or pcapng file instead, and --dry-run to run without GPIO hardware.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &sensor.Options{
				ConfigPath: configPath,
				ReplayFile: replayFile,
				AlarmPin:   alarmPin,
				DryRun:     dryRun,
				LogLevel:   logLevel,
				OpenLive:   live.Open,
			}

			// Interface argument overrides the configured one.
			if len(args) > 0 {
				options.Interface = args[0]
			}

			if cmd.Flags().Changed("queue-depth") {
				options.QueueDepth = &queueDepth
			}

			_, err := sensor.Run(ctx, options)

			return err
		},
	}
)

// Execute runs the wifi-sentinel CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default "+config.DefaultConfigFilename+")")
	rootCmd.Flags().StringVarP(&replayFile, "replay", "r", "", "replay a pcap or pcapng file instead of live capture")
	rootCmd.Flags().StringVarP(&alarmPin, "pin", "p", "", "GPIO line driving the buzzer (default "+config.DefaultAlarmPin+")")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "use a simulated alarm output instead of GPIO")
	rootCmd.Flags().IntVarP(&queueDepth, "queue-depth", "q", config.DefaultQueueDepth, "detections buffered while the alarm sounds, 0 alerts on the capture path")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn or error")
}
