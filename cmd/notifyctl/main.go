// notifyctl is a CLI for exercising the notification dispatch engine.
//
// Installation:
//
//	go build -o notifyctl ./cmd/notifyctl
//
// Usage:
//
//	notifyctl send --configs channels.yaml --channel slack-ops --title "Disk alert" --text "Disk usage above 90%"
//	notifyctl validate --configs channels.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version      = "dev"
	settingsPath string
	configsPath  string
	outputFmt    string
	verbose      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "notifyctl",
		Short: "Send and inspect notifications",
		Long: `notifyctl drives the notification dispatch engine from the command
line: it resolves channel configs from a YAML file, applies the same
eligibility, quota and transport rules as the embedded engine, and
reports the per-channel delivery statuses.`,
		Version: version,
	}

	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Path to the settings YAML file")
	rootCmd.PersistentFlags().StringVar(&configsPath, "configs", "channels.yaml", "Path to the channel configs YAML file")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the CLI logger. Debug level with --verbose, warnings
// and up otherwise so command output stays clean.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}
