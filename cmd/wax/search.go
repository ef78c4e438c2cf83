package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plyght/wax/internal/metadata"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the formula index by name substring",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := metadata.NewClient(cfg)
		formulae, err := client.LoadFormulae()
		if err != nil {
			handleError(err)
		}

		query := strings.ToLower(args[0])
		var matches []string
		for name := range formulae {
			if strings.Contains(strings.ToLower(name), query) {
				matches = append(matches, name)
			}
		}
		sort.Strings(matches)

		if len(matches) == 0 {
			fmt.Println("No formulae found.")
			return
		}
		for _, name := range matches {
			fmt.Println(name)
		}
	},
}
