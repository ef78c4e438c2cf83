package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/plyght/wax/internal/state"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed formulae",
	Run: func(cmd *cobra.Command, args []string) {
		store := state.New(cfg)
		installed, err := store.List()
		if err != nil {
			handleError(err)
		}

		if len(installed) == 0 {
			fmt.Println("No formulae installed.")
			return
		}

		sort.Slice(installed, func(i, j int) bool { return installed[i].Name < installed[j].Name })
		for _, pkg := range installed {
			fmt.Printf("%s %s (%s)\n", pkg.Name, pkg.Version, pkg.Mode)
		}
	},
}
