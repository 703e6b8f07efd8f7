package main

import (
	"fmt"
	"os"

	"github.com/julien-sobczak/anksidian/internal/core"
	"github.com/spf13/cobra"
)

var outputFormat string
var jqQuery string

func init() {
	inspectCmd.Flags().StringVarP(&outputFormat, "output", "o", "yaml", "output format (yaml|json)")
	inspectCmd.Flags().StringVarP(&jqQuery, "jq", "q", "", "jq expression to filter the output")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [path...]",
	Short: "Show the notes of files",
	Long:  `Show the notes found in files as they would be sent to Anki, without contacting Anki.`,
	Example: `  anksidian inspect go.md
  anksidian inspect -o json --jq '.[].notes[].contents' languages/`,
	Run: func(cmd *cobra.Command, args []string) {
		CheckConfig()
		repository := core.CurrentRepository()

		paths, err := repository.Walk(argsToPaths(args)...)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			exit(1)
		}

		files := []InspectedFile{}
		for _, path := range paths {
			collected, err := repository.Inspect(cmd.Context(), path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				exit(1)
			}
			deck, _ := repository.Config.ConfigFile.DeckFor(path)
			files = append(files, NewInspectedFile(collected, deck))
		}

		if err := printInspected(os.Stdout, files, outputFormat, jqQuery); err != nil {
			fmt.Fprintln(os.Stderr, err)
			exit(1)
		}
		exit(0)
	},
}
