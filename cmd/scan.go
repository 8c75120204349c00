package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mailrake/mailrake/config"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Inventory email archives without extracting entities",
	Long: `Walks the source, checksums every supported archive, counts its messages
and records one file report per archive in a fresh SQLite database. No
model is loaded and no message content is persisted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, true)
	},
}

func init() {
	cobra.CheckErr(config.RegisterFlags(scanCmd))
	rootCmd.AddCommand(scanCmd)
}
