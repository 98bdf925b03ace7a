package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/gribsync/cmd/gribsync/commands"
	"github.com/walteh/gribsync/cmd/gribsync/opts"
	"github.com/walteh/gribsync/pkg/config"
	"github.com/walteh/gribsync/pkg/log"
	"gitlab.com/tozd/go/errors"
)

var (
	// Flags
	configFile string
	envFile    string
	debugLog   bool
	logLevel   string
	logFormat  string

	rootOpts = &opts.RootOpts{}
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gribsync",
		Short: "Mirror a weather model run from a remote GRIB tree",
		Long: `gribsync lists one model run on a remote file server, groups its files
into batches per variable and copies every batch with rclone into a local
directory named after the run time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupRoot(cmd)
		},
	}

	addRootFlags(cmd)

	cmd.AddCommand(
		commands.NewSyncCmd(rootOpts),
		commands.NewPlanCmd(rootOpts),
		commands.NewListCmd(rootOpts),
		commands.NewHistoryCmd(rootOpts),
		newVersionCmd(),
	)
	return cmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "gribsync.yaml", "config file path (.yaml, .json or .hcl)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with GRIBSYNC_* settings")
	cmd.PersistentFlags().BoolVarP(&debugLog, "debug", "d", false, "enable debug logging (same as --log-level=debug)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", string(log.FormatConsole), "log format: console or json")
}

// setupRoot configures logging and loads the configuration
func setupRoot(cmd *cobra.Command) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	if debugLog {
		level = zerolog.DebugLevel
	}
	logger, err := log.NewStructured(os.Stderr, level, log.Format(logFormat))
	if err != nil {
		return err
	}
	rootOpts.Logger = &logger
	rootOpts.Console = log.New(cmd.OutOrStdout(), &logger)

	ctx := logger.WithContext(cmd.Context())
	cmd.SetContext(ctx)

	if err := config.LoadDotEnv(envFile); err != nil {
		return errors.Errorf("loading env file: %w", err)
	}
	cfg, err := config.LoadConfig(ctx, configFile)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return errors.Errorf("applying environment: %w", err)
	}
	if cfg.Location() == "" {
		logger.Debug().Str("path", configFile).Msg("no config file found, using defaults")
	} else {
		logger.Debug().Str("path", cfg.Location()).Str("hash", cfg.Hash()).Msg("loaded config")
	}
	rootOpts.Config = cfg
	return nil
}
