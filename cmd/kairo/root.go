package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oumizumi/Kairo-sub002/config"
	"github.com/oumizumi/Kairo-sub002/internal/app"
)

// cli is the state shared by every subcommand.
type cli struct {
	configPath string
	format     string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:          "kairo",
		Short:        "Plan a term of courses from program curricula and section offerings",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "config file (default ./config.yaml)")
	flags.StringVarP(&c.format, "format", "o", formatText, "output format: text, json or yaml")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newProgramsCmd(c),
		newMatchCmd(c),
		newClassifyCmd(c),
		newGenerateCmd(c),
		newWarmCmd(c),
	)
	return root
}

func (c *cli) init() error {
	if !validFormat(c.format) {
		return fmt.Errorf("unknown format %q (want text, json or yaml)", c.format)
	}

	cfg, err := config.Read(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg

	c.logger = zap.NewNop()
	if c.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		c.logger = logger
	}
	return nil
}

func (c *cli) data(ctx context.Context) (*app.Data, error) {
	return app.OpenData(ctx, c.cfg, c.logger)
}
