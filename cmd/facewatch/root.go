package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"facewatch/config"
	"facewatch/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "facewatch",
		Short: "Lock the workstation when nobody is in front of it",
		Long: `facewatch watches keyboard and mouse idle time and, once the user goes quiet,
samples the webcam for a face. When presence evidence decays it locks the session.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath(), "config file (.toml, .json, .yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "override log format: json or text")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newCheckCmd(opts),
		newStatusCmd(opts),
		newEventsCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

// load reads the config file and applies command-line overrides on top
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", o.configPath, err)
	}
	o.override(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (o *rootOptions) override(cfg *config.Config) {
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
}

// newLogger builds the process logger. The returned LevelVar lets a config reload
// change verbosity; the closer releases the log file, if any.
func newLogger(cfg config.LoggingConfig) (*slog.Logger, *slog.LevelVar, io.Closer, error) {
	out, closer, err := logging.OpenOutput(cfg.File)
	if err != nil {
		return nil, nil, nil, err
	}

	level := new(slog.LevelVar)
	level.Set(logging.ParseLevel(cfg.Level))

	logger := logging.NewLogger(logging.LoggerConfig{
		Format: cfg.Format,
		Level:  level,
		Output: out,
	})
	return logger, level, closer, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "facewatch %s\n", version)
		},
	}
}
