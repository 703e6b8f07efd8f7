package main

import (
	"fmt"
	"os"
	"time"

	"github.com/julien-sobczak/anksidian/internal/core"
	"github.com/spf13/cobra"
)

var debounce time.Duration

func init() {
	watchCmd.Flags().DurationVarP(&debounce, "debounce", "d", core.DefaultDebounce, "delay without changes before synchronizing")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Synchronize files when they change",
	Long:  `Synchronize the whole vault then every modified file until interrupted. Notes are never deleted.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		CheckConfig()
		ctx := cmd.Context()
		repository := core.CurrentRepository()
		if err := repository.CheckConnection(ctx); err != nil {
			fmt.Fprintln(os.Stderr, err)
			exit(1)
		}

		report, err := repository.Sync(ctx, core.SyncOptions{Parallel: parallel})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exit(1)
		}
		printReport(os.Stderr, report)

		err = repository.Watch(ctx, debounce, func(paths []string) {
			report, err := repository.Sync(ctx, core.SyncOptions{
				Paths:    paths,
				Parallel: parallel,
			})
			if err != nil {
				core.CurrentLogger().Error("Sync failed", "err", err)
				return
			}
			printReport(os.Stderr, report)
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exit(1)
		}
		exit(0)
	},
}
