// Package cli implements the sparkify command line interface.
package cli

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"go.nownabe.dev/sparkify"
	"go.nownabe.dev/sparkify/config"
)

type options struct {
	configPath  string
	logLevel    string
	pretty      bool
	metricsFile string

	cfg    *config.Config
	output io.Writer
}

// NewRootCmd creates the sparkify command with all sub-commands attached.
func NewRootCmd() *cobra.Command {
	o := &options{output: os.Stderr}

	root := &cobra.Command{
		Use:          "sparkify",
		Short:        "Load song metadata and activity logs into a star schema",
		SilenceUsage: true,
	}

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return o.setup(cmd)
	}

	root.PersistentPostRunE = func(cmd *cobra.Command, _ []string) error {
		if o.metricsFile == "" {
			return nil
		}

		return sparkify.WriteMetrics(o.metricsFile)
	}

	f := root.PersistentFlags()
	f.StringVar(&o.configPath, "config", "", "path to a YAML config file (default $SPARKIFY_CONFIG or ./sparkify.yaml)")
	f.StringVar(&o.logLevel, "log-level", "", "log level: trace, debug, info, warn or error")
	f.BoolVar(&o.pretty, "pretty", false, "print human friendly logs")
	f.StringVar(&o.metricsFile, "metrics-file", "", "write prometheus metrics to this file after a successful run")

	root.AddCommand(
		newCreateTablesCmd(o),
		newETLCmd(o),
		newDWHCmd(o),
		newBQCmd(o),
		newLakeCmd(o),
	)

	return root
}

func (o *options) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.pretty {
		cfg.Log.Pretty = true
	}

	if err := config.Validate(cfg.Log); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return xerrors.Errorf("invalid log level: %w", err)
	}

	var w io.Writer = o.output
	if cfg.Log.Pretty {
		w = zerolog.ConsoleWriter{Out: o.output}
	}
	log.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()

	cmd.SetContext(log.Logger.WithContext(cmd.Context()))
	o.cfg = cfg

	return nil
}

// etlOptions configures a sparkify.ETL like the command's own logger.
func (o *options) etlOptions() []sparkify.Option {
	opts := []sparkify.Option{
		sparkify.WithLogLevel(o.cfg.Log.Level),
		sparkify.WithLogOutput(o.output),
	}

	if o.cfg.Log.Pretty {
		opts = append(opts, sparkify.WithPrettyLogging())
	}

	return opts
}

func (o *options) notifier() sparkify.Notifier {
	if o.cfg.Slack.Token == "" {
		return nil
	}

	return &sparkify.SlackNotifier{
		Token:    o.cfg.Slack.Token,
		Channel:  o.cfg.Slack.Channel,
		Username: "sparkify",
	}
}

func run(cmd *cobra.Command, what string, f func() error) error {
	if err := f(); err != nil {
		return err
	}

	log.Ctx(cmd.Context()).Info().Msgf("%s finished", what)

	return nil
}
