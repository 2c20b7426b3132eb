package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"netspeedtray/internal/app"
	"netspeedtray/internal/config"
	"netspeedtray/internal/logging"
)

var (
	version = "dev"

	globalOpts struct {
		verbose    bool
		configPath string
		logFile    string
	}

	logger    *slog.Logger
	logCloser io.Closer
)

// SetVersion sets the application version (called from main)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "netspeedtray",
	Short: "Network speed overlay for the Windows taskbar",
	Long: `NetSpeedTray shows live upload and download speeds in a small overlay
docked next to the system tray.

Run without a subcommand to start the overlay. The other commands inspect the
taskbar geometry and export the recorded speed history.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if globalOpts.configPath != "" {
			config.SetPath(globalOpts.configPath)
		}

		// The windowed build has no console, so the overlay logs beside
		// its config unless told otherwise.
		logFile := globalOpts.logFile
		if logFile == "" && (!cmd.HasParent() || cmd.Name() == "run") {
			if dir, err := config.Dir(); err == nil {
				logFile = filepath.Join(dir, "netspeedtray.log")
			}
		}

		var err error
		logger, logCloser, err = logging.Setup(logging.Options{
			Verbose: globalOpts.verbose,
			File:    logFile,
		})
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
	RunE: runOverlay,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Config file path (default: %APPDATA%\\NetSpeedTray\\config.json)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.logFile, "log-file", "",
		"Also write logs to this file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(diagCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(iconCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the overlay (default)",
	RunE:  runOverlay,
}

func runOverlay(cmd *cobra.Command, args []string) error {
	logger.Info("starting", "version", version)
	return app.Run(app.Options{Logger: logger})
}
