package main

import (
	"fmt"
	"os"

	"github.com/julien-sobczak/anksidian/internal/core"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Init a vault",
	Long:  `Create the .anksidian configuration directory and a default .ankiignore file.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		config, err := core.InitConfigFromDirectory(mustGetwd())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("Initialized empty vault in %s\n", config.RootDirectory)
		fmt.Println("Edit the [[decks]] section of .anksidian/config to choose the decks of your notes.")
	},
}
