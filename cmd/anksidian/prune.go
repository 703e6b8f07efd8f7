package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	pruneCmd.Flags().BoolVarP(&force, "force", "f", false, "process files unchanged since the last sync")
	pruneCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "delete notes without confirmation")
	rootCmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete notes no longer present in files",
	Long: `Synchronize the whole vault then offer to delete the notes of the configured decks
that were not found in any file.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		CheckConfig()
		report := runSync(cmd, nil, false)
		printReport(os.Stderr, report)
		if report.CountFailedFiles() > 0 {
			// Notes of failed files were not seen
			fmt.Fprintln(os.Stderr, "Some files failed, nothing deleted.")
			exit(1)
		}
		deleteUnseen(cmd, report.Unseen)
		exit(0)
	},
}
