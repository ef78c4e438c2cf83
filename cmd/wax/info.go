package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plyght/wax/internal/errs"
	"github.com/plyght/wax/internal/metadata"
)

var infoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show details for a formula",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := metadata.NewClient(cfg)
		formulae, err := client.LoadFormulae()
		if err != nil {
			handleError(err)
		}

		f, ok := formulae[args[0]]
		if !ok {
			handleError(errs.NotFoundFormula(args[0]))
		}

		fmt.Printf("%s: %s\n", f.Name, f.Version)
		if len(f.Dependencies) > 0 {
			fmt.Printf("Dependencies: %s\n", strings.Join(f.Dependencies, ", "))
		}
		var tags []string
		for tag := range f.Bottles {
			tags = append(tags, tag)
		}
		if len(tags) > 0 {
			fmt.Printf("Bottles: %s\n", strings.Join(tags, ", "))
		}
	},
}
