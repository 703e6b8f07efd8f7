package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/julien-sobczak/anksidian/internal/core"
)

var verboseInfo bool
var verboseDebug bool
var verboseTrace bool

var parallel int

var rootCmd = &cobra.Command{
	Use:   "anksidian",
	Short: "Anksidian synchronizes cloze notes from Markdown files with Anki",
	Long: `Anksidian turns ==highlighted== text of Markdown files into Anki cloze notes.
Notes are created or updated through AnkiConnect and their identifiers are written back in files.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Enable verbose output. The most verbose level wins when multiple flags are passed.
		if verboseInfo {
			core.CurrentLogger().SetVerboseLevel(core.VerboseInfo)
		}
		if verboseDebug {
			core.CurrentLogger().SetVerboseLevel(core.VerboseDebug)
		}
		if verboseTrace {
			core.CurrentLogger().SetVerboseLevel(core.VerboseTrace)
		}
	},
}

func init() {
	// Use PersistentFlags to make flags accessible to sub-commands
	rootCmd.PersistentFlags().BoolVarP(&verboseInfo, "v", "", false, "enable verbose info output")
	rootCmd.PersistentFlags().BoolVarP(&verboseDebug, "vv", "", false, "enable verbose debug output")
	rootCmd.PersistentFlags().BoolVarP(&verboseTrace, "vvv", "", false, "enable verbose trace output")
	rootCmd.PersistentFlags().IntVarP(&parallel, "parallel", "t", 0, "number of files processed concurrently")
}

// CheckConfig exits when the current directory is not inside a vault.
func CheckConfig() {
	home := os.Getenv(core.EnvHome)
	if home == "" {
		home = mustGetwd()
	}
	config, err := core.ReadConfigFromDirectory(home)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if config == nil {
		fmt.Fprintf(os.Stderr, "fatal: not an anksidian vault (or any of the parent directories): %s\n", core.ConfigDir)
		fmt.Fprintln(os.Stderr, "Run 'anksidian init' first.")
		os.Exit(1)
	}
}

// argsToPaths converts paths relative to the working directory to absolute paths.
func argsToPaths(args []string) []string {
	var result []string
	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		result = append(result, path)
	}
	return result
}

func mustGetwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return cwd
}

// exit releases resources before terminating the process.
func exit(code int) {
	if err := core.CurrentRepository().Close(); err != nil {
		core.CurrentLogger().Warnf("Unable to release resources: %v", err)
	}
	os.Exit(code)
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
