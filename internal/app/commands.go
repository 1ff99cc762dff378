package app

import (
	"fmt"
	"path/filepath"

	"github.com/denizgursoy/cukexml/pkg/config"
	"github.com/denizgursoy/cukexml/pkg/console"
	"github.com/denizgursoy/cukexml/pkg/history"
	"github.com/spf13/cobra"
)

func newConfigCommand(global *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the cukexml configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write " + config.FileName + " with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := filepath.Join(global.configDir, config.FileName)
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})
	return cmd
}

type historyFlags struct {
	database string
	limit    int
	feature  string
	scenario string
}

func newHistoryCommand(streams Streams, global *globalFlags) *cobra.Command {
	flags := &historyFlags{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, or the outcomes of one scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, streams, global, flags)
		},
	}
	cmd.Flags().StringVar(&flags.database, "history", "", "SQLite history database, defaults to the configured one")
	cmd.Flags().IntVarP(&flags.limit, "limit", "n", 10, "maximum number of entries")
	cmd.Flags().StringVar(&flags.feature, "feature", "", "feature URI of the scenario to show")
	cmd.Flags().StringVar(&flags.scenario, "scenario", "", "scenario id to show, as written in the report")
	return cmd
}

func runHistory(cmd *cobra.Command, streams Streams, global *globalFlags, flags *historyFlags) error {
	cfg, err := loadConfig(cmd, global, func(cmd *cobra.Command, values *config.FlagValues) {
		values.History = config.StringFlag{Value: flags.database, Set: cmd.Flags().Changed("history")}
	})
	if err != nil {
		return err
	}
	if cfg.History == "" {
		return fmt.Errorf("%w: no history database configured, use --history", config.ErrInvalidConfig)
	}
	if (flags.feature == "") != (flags.scenario == "") {
		return fmt.Errorf("%w: --feature and --scenario must be given together", config.ErrInvalidConfig)
	}

	logger, logCloser := newLogger(cfg, streams.Err)
	defer logCloser.Close()

	store, err := history.Open(cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	printer := console.NewPrinter(streams.Out, useColors(cfg, streams.Out))
	if flags.scenario != "" {
		results, err := store.ScenarioHistory(cmd.Context(), flags.feature, flags.scenario, flags.limit)
		if err != nil {
			return err
		}
		logger.Debug().Int("results", len(results)).Str("scenario", flags.scenario).Msg("scenario history loaded")
		printer.PrintScenarioHistory(results)
		return nil
	}

	runs, err := store.Runs(cmd.Context(), flags.limit)
	if err != nil {
		return err
	}
	logger.Debug().Int("runs", len(runs)).Msg("runs loaded")
	printer.PrintRuns(runs)
	return nil
}
