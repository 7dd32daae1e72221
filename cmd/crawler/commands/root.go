// Package commands implements the crawler CLI.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/edgard/what2eat/internal/catalog"
	"github.com/edgard/what2eat/internal/config"
	"github.com/edgard/what2eat/internal/crawler"
	"github.com/edgard/what2eat/internal/crawler/foodpanda"
	"github.com/edgard/what2eat/internal/crawler/ubereats"
	"github.com/edgard/what2eat/internal/logger"
	"github.com/edgard/what2eat/internal/menu"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "crawler",
	Short:         "crawler downloads foodPanda and Uber Eats menus into the restaurant catalog.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config.yaml", "Path to configuration file")
}

// ExecuteContext runs the CLI and exits non-zero on failure.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env is what every subcommand needs.
type env struct {
	cfg        *config.Config
	log        *slog.Logger
	catalog    *catalog.Catalog
	normalizer *menu.Normalizer
}

func setup() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	slog.SetDefault(log)

	dl, err := menu.LoadDenyList(cfg.DenyList)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.New(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, catalog: cat, normalizer: menu.NewNormalizer(dl)}, nil
}

func (e *env) source(p menu.Platform) crawler.Source {
	c := e.cfg.Crawler
	client := func(baseURL string) crawler.ClientOptions {
		return crawler.ClientOptions{
			BaseURL:   baseURL,
			UserAgent: c.UserAgent,
			Timeout:   c.RequestTimeout,
			Retries:   c.Retries,
		}
	}

	if p == menu.PlatformUberEats {
		return ubereats.New(crawler.NewClient(client(c.UberEats.WebURL)), ubereats.Options{
			Locale: c.UberEats.Locale,
			Cities: c.UberEats.Cities,
		})
	}
	return foodpanda.New(
		crawler.NewClient(client(c.FoodPanda.WebURL)),
		crawler.NewClient(client(c.FoodPanda.APIURL)),
		foodpanda.Options{
			WebURL: c.FoodPanda.WebURL,
			APIURL: c.FoodPanda.APIURL,
			APIKey: c.FoodPanda.APIKey,
			Cities: c.FoodPanda.Cities,
		},
	)
}

func (e *env) driver(cmd *cobra.Command, p menu.Platform) *crawler.Driver {
	return crawler.NewDriver(
		e.source(p),
		e.catalog,
		e.normalizer,
		e.cfg.Crawler.MinProducts,
		e.cfg.Crawler.Delay,
		cmd.OutOrStdout(),
		e.log,
	)
}
