package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ArticleEnhancer/internal/app"
	"ArticleEnhancer/internal/config"
	"ArticleEnhancer/internal/logging"
	"ArticleEnhancer/internal/usecase"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "articleenhancer",
		Short:         "Store blog articles and publish reference-backed rewrites of them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("ARTICLE_ENHANCER_CONFIG"), "path to the YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (error|warn|info|debug)")

	root.AddCommand(
		newServeCmd(opts),
		newEnhanceCmd(opts),
		newWatchCmd(opts),
		newSeedCmd(opts),
		newImportCmd(opts),
	)
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the article CRUD API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(application *app.Application, _ *slog.Logger) error {
				return application.Serve(cmd.Context())
			})
		},
	}
}

func newEnhanceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "enhance",
		Short: "Enhance the newest article that has no derivative yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(application *app.Application, logger *slog.Logger) error {
				result, err := application.Enhance(cmd.Context())
				if errors.Is(err, usecase.ErrNothingToEnhance) {
					logger.Info("nothing to enhance")
					return nil
				}
				if err != nil {
					return err
				}
				return printJSON(cmd, result)
			})
		},
	}
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Enhance articles on the scheduler interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(application *app.Application, _ *slog.Logger) error {
				return application.Watch(cmd.Context())
			})
		},
	}
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Scrape the configured sites into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(application *app.Application, _ *slog.Logger) error {
				report, err := application.Seed(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, report)
			})
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Load a scraped_articles.json dump into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(application *app.Application, _ *slog.Logger) error {
				report, err := application.Import(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, report)
			})
		},
	}
}

func withApp(cmd *cobra.Command, opts *rootOptions, run func(*app.Application, *slog.Logger) error) error {
	cfg := config.LoadFrom(opts.configPath)
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	logger := logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	application, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			logger.Warn("close store", "error", cerr)
		}
	}()

	if err := run(application, logger); err != nil {
		logger.Error("command failed", "command", cmd.Name(), "error", err)
		return err
	}
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
