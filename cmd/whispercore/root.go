package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/config"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/logging"
	"github.com/Zeffut/BetterFasterWhisper/whisper-core/internal/moduleinfo"
)

// app carries state shared by every subcommand once flags are parsed.
type app struct {
	configFile string
	logLevel   string
	logFormat  string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:               moduleinfo.Info.BinaryName,
		Short:             moduleinfo.Info.Description,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) { _ = a.logger.Sync() },
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "YAML or TOML configuration file (default $"+config.EnvConfigFile+")")
	flags.StringVar(&a.logLevel, "log-level", config.DefaultLogLevel, "debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", config.DefaultLogFormat, "console or json")

	root.AddCommand(
		a.transcribeCommand(),
		a.recordCommand(),
		a.modelsCommand(),
		versionCommand(),
	)
	return root
}

// setup loads configuration and builds the logger. Explicit flags win over
// the file and environment.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Loader{File: a.configFile}.Load()
	if err != nil {
		return err
	}
	if f := cmd.Flag("log-level"); f != nil && f.Changed {
		cfg.LogLevel = a.logLevel
	}
	if f := cmd.Flag("log-format"); f != nil && f.Changed {
		cfg.LogFormat = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.With(zap.String("app", moduleinfo.Info.BinaryName))
	return nil
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the library version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", moduleinfo.Info.Name, moduleinfo.Version())
			return err
		},
	}
}
