// Package cmd implements the msgauth command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/msgauth/internal/config"
	"github.com/nextlevelbuilder/msgauth/pkg/protocol"
)

var (
	cfgFile string
	verbose bool
)

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "msgauth",
		Short:        "Sign in by sending a message from your phone",
		Long:         "msgauth starts an out-of-band auth request, hands the message off to you, and waits until the service confirms it.",
		Version:      protocol.LibraryVersion,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default $MSGAUTH_CONFIG or ~/.msgauth/config.json5)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(authCmd())
	cmd.AddCommand(sessionCmd())
	cmd.AddCommand(deviceCmd())
	cmd.AddCommand(configCmd())
	cmd.AddCommand(doctorCmd())
	return cmd
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return config.ExpandHome(cfgFile)
	}
	return config.DefaultPath()
}

// setupLogging installs the default slog handler on stderr.
func setupLogging(cfg *config.Config) {
	level := cfg.Log.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Log.Format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
