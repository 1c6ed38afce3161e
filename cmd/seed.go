package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/wlcommunity/wlbot/wlbot/knowledge"
)

func init() {
	SeedCMD.Flags().String("db", "wlbot.db", "knowledge database path")
}

// SeedCMD initializes the knowledge database and loads the curated seed
// corpus without starting the server. Safe to re-run, existing entries are
// kept.
var SeedCMD = cobra.Command{
	Use:  "seed",
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		path, _ := cmd.Flags().GetString("db")
		know, err := knowledge.NewService(knowledge.Config{Path: path})
		if err != nil {
			return err
		}
		defer know.Close()

		if err := know.Initialize(ctx); err != nil {
			return err
		}

		stats, err := know.Statistics(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("knowledge base %s ready, %d entries\n", path, stats.TotalEntries)
		return nil
	},
}
