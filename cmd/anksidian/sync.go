package main

import (
	"fmt"
	"os"

	"github.com/julien-sobczak/anksidian/internal/core"
	"github.com/julien-sobczak/anksidian/pkg/console"
	"github.com/spf13/cobra"
)

var dryRun bool
var force bool
var prune bool
var assumeYes bool

func init() {
	syncCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "show changes without updating Anki or files")
	syncCmd.Flags().BoolVarP(&force, "force", "f", false, "process files unchanged since the last sync")
	syncCmd.Flags().BoolVarP(&prune, "prune", "", false, "offer to delete notes no longer present in files")
	syncCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "delete notes without confirmation")
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync [path...]",
	Short: "Synchronize notes with Anki",
	Long: `Create or update an Anki cloze note for every line containing ==highlighted== text.
Identifiers of new notes are inserted in files. Only the given files or directories are processed
when paths are specified.`,
	Run: func(cmd *cobra.Command, args []string) {
		CheckConfig()
		report := runSync(cmd, args, dryRun)

		if dryRun {
			for _, file := range report.Files {
				if file.Changed() {
					printDiff(os.Stdout, file.Diff())
				}
			}
			fmt.Printf("Dry run: %d note(s) would be created, %d updated, %d deleted\n",
				len(report.DryRun.Added), len(report.DryRun.Updated), len(report.Unseen))
		}
		printReport(os.Stderr, report)

		if !dryRun && len(args) == 0 && (prune || core.CurrentConfig().ConfigFile.Prune.Enabled) {
			if report.CountFailedFiles() > 0 {
				fmt.Fprintln(os.Stderr, "Some files failed, nothing deleted.")
			} else {
				deleteUnseen(cmd, report.Unseen)
			}
		}

		if report.CountFailedFiles() > 0 {
			exit(1)
		}
		exit(0)
	},
}

func runSync(cmd *cobra.Command, args []string, dryRun bool) *core.SyncReport {
	repository := core.CurrentRepository()
	if err := repository.CheckConnection(cmd.Context()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exit(1)
	}

	paths := argsToPaths(args)
	options := core.SyncOptions{
		Paths:    paths,
		DryRun:   dryRun,
		Force:    force,
		Parallel: parallel,
	}

	// The log already reports progress in verbose mode
	if !verboseInfo && !verboseDebug && !verboseTrace {
		files, err := repository.Walk(paths...)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exit(1)
		}
		progress := console.NewProgressLog(len(files))
		options.OnFileDone = func(report *core.FileReport) {
			progress.Increment(report.RelativePath)
		}
		defer progress.Clear("")
	}

	report, err := repository.Sync(cmd.Context(), options)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		exit(1)
	}
	return report
}

// deleteUnseen deletes the notes after confirmation.
func deleteUnseen(cmd *cobra.Command, notes []core.KnownNote) {
	if len(notes) == 0 {
		return
	}
	if !assumeYes {
		if !isInteractive() {
			fmt.Fprintf(os.Stderr, "%d note(s) not deleted: confirmation requires a terminal (use --yes)\n", len(notes))
			return
		}
		confirmed, err := ConfirmDeletion(notes)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exit(1)
		}
		if !confirmed {
			return
		}
	}
	if err := core.CurrentRepository().DeleteNotes(cmd.Context(), notes); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exit(1)
	}
	fmt.Printf("%d note(s) deleted\n", len(notes))
}
