package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plyght/wax/internal/metadata"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh the formula and cask indexes",
	Run: func(cmd *cobra.Command, args []string) {
		client := metadata.NewClient(cfg)

		formulaeChanged, err := client.UpdateFormulae()
		if err != nil {
			handleError(err)
		}
		casksChanged, err := client.UpdateCasks()
		if err != nil {
			handleError(err)
		}

		if !formulaeChanged && !casksChanged {
			fmt.Println("Already up to date.")
			return
		}
		fmt.Println("Updated formula and cask indexes.")
	},
}
