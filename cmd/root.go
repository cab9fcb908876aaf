package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/kamusis/nlpm/internal/config"
	"github.com/kamusis/nlpm/internal/log"
)

var (
	flagLogLevel  string
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:           "nlpm",
	Short:         "nlpm: install spaCy and compatible language models",
	SilenceUsage:  true, // don't print usage on operational errors
	SilenceErrors: true, // Execute prints the error once
	Long: `nlpm installs the spaCy library and its language models into a private
packages directory (~/.nlpm/packages by default).

It keeps a local cache of the library release feed and the model
compatibility table, so listing and compatibility checks work offline
after one 'nlpm refresh'.`,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Diagnostic log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", log.FormatText, "Diagnostic log format: text or json")
}

// setupLogging resolves the log level (flag, then NLPM_LOG_LEVEL, then
// nlpm.yaml) and stores the logger in the command context.
func setupLogging(cmd *cobra.Command, _ []string) error {
	level := flagLogLevel
	if level == "" {
		v, err := config.GetConfigValue(config.LogLevelKey)
		if err != nil {
			return err
		}
		level = v
	}
	if level == "" {
		if cfg, err := config.Load(); err == nil {
			level = cfg.LogLevel
		}
	}
	logger, err := log.New(cmd.ErrOrStderr(), level, flagLogFormat)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(log.WithLogger(ctx, logger))
	return nil
}

// Execute is called by main.go.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(exitCodeFromError(err))
	}
}
