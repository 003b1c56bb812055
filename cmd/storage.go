package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scipunch/rssmonitor/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, _, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cmd.Context(), conf.DatabasePath, conf.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open store with %w", err)
		}
		defer st.Close()

		stats, err := st.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read stats with %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Store: %s\n", storeLocation(conf.DatabasePath, conf.DatabaseURL))
		fmt.Fprintf(out, "Articles: %d\n", stats.Articles)
		fmt.Fprintf(out, "Digest cache entries: %d\n", stats.AgentEntries)
		if stats.Articles > 0 {
			fmt.Fprintf(out, "Oldest: %s\n", stats.OldestEntry.Format(time.DateTime))
			fmt.Fprintf(out, "Newest: %s\n", stats.NewestEntry.Format(time.DateTime))
		}
		return nil
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove every recorded article and cached digest",
	Long: `Delete all seen-link records and cached digests.

The next polling pass treats the newest entry of every feed as new again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, _, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := store.Open(cmd.Context(), conf.DatabasePath, conf.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open store with %w", err)
		}
		defer st.Close()

		if err := st.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("failed to clear store with %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Store cleared.")
		return nil
	},
}

// storeLocation names the backend without leaking database credentials
func storeLocation(dbPath, databaseURL string) string {
	if store.IsPostgresURL(databaseURL) {
		return "postgres"
	}
	return dbPath
}
