package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plyght/wax/internal/cask"
	"github.com/plyght/wax/internal/orchestrator"
)

var (
	uninstallDryRun bool
	uninstallCask   bool
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <name>",
	Short: "Uninstall a formula",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if uninstallCask {
			if err := cask.RequireSupported(); err != nil {
				handleError(err)
			}
			fmt.Println("cask uninstalls are not yet implemented")
			return
		}

		o := orchestrator.New(cfg)
		dependents, err := o.Uninstall(args[0], uninstallDryRun)
		if err != nil {
			handleError(err)
		}
		if len(dependents) > 0 {
			fmt.Printf("Warning: %s is still required by: %s\n", args[0], strings.Join(dependents, ", "))
		}

		if uninstallDryRun {
			fmt.Printf("Would uninstall %s\n", args[0])
			return
		}
		fmt.Printf("Uninstalled %s\n", args[0])
	},
}

func init() {
	uninstallCmd.Flags().BoolVar(&uninstallDryRun, "dry-run", false, "Print what would be removed without removing it")
	uninstallCmd.Flags().BoolVar(&uninstallCask, "cask", false, "Uninstall a cask instead of a formula")
}
