package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mailrake/mailrake/config"
)

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "Extract named entities from PST, mbox and EML archives into a new SQLite database",
	Long: `Scans the source for supported email archives, records a file report for
each one, then streams every message through the named-entity recognition
model and writes the results in batches to a fresh SQLite database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, false)
	},
}

func init() {
	cobra.CheckErr(config.RegisterFlags(entitiesCmd))
	rootCmd.AddCommand(entitiesCmd)
}
