package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scrollkit/cardfeed/internal/app"
	"github.com/scrollkit/cardfeed/internal/db"
	"github.com/scrollkit/cardfeed/internal/feed"
	"github.com/scrollkit/cardfeed/internal/warmer"
)

var (
	flagTab   string
	flagQuery string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}

		database, err := db.New(&cfg.Database, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		if err := database.Migrate(); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
		return nil
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print an anonymous feed page as JSON",
	Long: `Build one feed page the way the API would for a signed-out caller.

Only the for-you and trending tabs are available without a user.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tab, err := feed.ParseTab(flagTab)
		if err != nil {
			return err
		}

		cfg, err := setup()
		if err != nil {
			return err
		}
		service, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer service.Close()

		page, err := service.Feed.FetchForFeed(cmd.Context(), nil, tab, flagQuery)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(page)
	},
}

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Run one cache warming pass over the trending topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		service, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer service.Close()

		total := warmer.New(service.Feed, feed.TrendingTopics, cfg.Warmer.Interval).WarmOnce(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "Warmed %d topic(s), %d card(s).\n", len(feed.TrendingTopics), total)
		return nil
	},
}

func init() {
	feedCmd.Flags().StringVar(&flagTab, "tab", string(feed.TabForYou), "feed tab: for-you or trending")
	feedCmd.Flags().StringVar(&flagQuery, "query", "", "search query for the for-you tab")
}
