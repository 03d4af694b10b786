package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/config"
)

var version = "dev"

// globalOptions holds the persistent flags and the settings loaded from
// them before any subcommand runs.
type globalOptions struct {
	envFile  string
	debug    bool
	settings *config.Settings
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "creditscore",
		Short: "Train, select and score credit-risk models",
		Long: `creditscore trains candidate credit-risk classifiers, selects a champion
by a configurable metric policy and scores it on held-out data.

Run the whole workflow from a YAML definition with "run", or invoke the
stages one at a time. Process settings come from the environment and an
optional .env file.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Load environment settings from this file (default .env when present)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		settings, err := config.Load(opts.envFile)
		if err != nil {
			return err
		}
		if opts.debug {
			settings.Logging.Level = "debug"
		}
		slog.SetDefault(newLogger(cmd.ErrOrStderr(), settings.Logging))
		opts.settings = settings
		return nil
	}

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newIngestCommand(opts))
	cmd.AddCommand(newPreprocessCommand(opts))
	cmd.AddCommand(newTrainCommand(opts))
	cmd.AddCommand(newEvaluateCommand(opts))
	cmd.AddCommand(newSelectCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newCurateCommand(opts))
	cmd.AddCommand(newGenerateCommand(opts))

	return cmd
}

// newLogger builds the process logger from the logging settings.
func newLogger(w io.Writer, cfg config.LoggingSettings) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func execute(ctx context.Context) error {
	return newRootCommand().ExecuteContext(ctx)
}
