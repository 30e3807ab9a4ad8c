package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"NewsCrawler/internal/app"
	"NewsCrawler/internal/config"
	"NewsCrawler/internal/domain"
	"NewsCrawler/internal/logging"
)

var errRunFailed = errors.New("one or more sources failed")

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "newscrawler",
		Short:         "Incremental crawler for Brazilian news and fact-check portals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML configuration file (default $NEWS_CRAWLER_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(
		newRunCommand(opts),
		newSourcesCommand(opts),
		newScheduleCommand(opts),
	)
	return root
}

func (o *rootOptions) load() (config.Config, *slog.Logger) {
	cfg := config.LoadPath(o.configPath)
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, logging.New(cfg.Logging)
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	var (
		all    bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "run [source...]",
		Short: "Crawl the named sources once, or every enabled source with --all",
		Args: func(cmd *cobra.Command, args []string) error {
			if all && len(args) > 0 {
				return errors.New("--all does not take source names")
			}
			if !all && len(args) == 0 {
				return errors.New("name at least one source or pass --all")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger := opts.load()

			application, err := app.New(ctx, cfg, logger, app.Options{DryRun: dryRun})
			if err != nil {
				return err
			}
			defer closeApp(application, logger)

			var summaries []domain.RunSummary
			if all {
				summaries = application.RunAll(ctx)
			} else if summaries, err = application.Run(ctx, args); err != nil {
				return err
			}

			renderSummaries(cmd.OutOrStdout(), summaries)
			for _, s := range summaries {
				if !s.OK() {
					return errRunFailed
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "crawl every enabled source")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "keep records in memory instead of the configured store")
	return cmd
}

func newSourcesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _ := opts.load()
			renderSources(cmd.OutOrStdout(), cfg.Sources)
			return nil
		},
	}
}

func newScheduleCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run every enabled source on the configured cron expression",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, logger := opts.load()

			application, err := app.New(ctx, cfg, logger, app.Options{})
			if err != nil {
				return err
			}
			defer closeApp(application, logger)

			logger.Info("scheduler started", "cron", cfg.Scheduler.CronExpression, "sources", application.SourceIDs())
			return application.Schedule(ctx)
		},
	}
}

func closeApp(application *app.Application, logger *slog.Logger) {
	if err := application.Close(context.Background()); err != nil {
		logger.Warn("close storage", "error", err)
	}
}
