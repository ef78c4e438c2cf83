package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plyght/wax/internal/orchestrator"
)

var upgradeDryRun bool

var upgradeCmd = &cobra.Command{
	Use:   "upgrade <name>",
	Short: "Upgrade an installed formula to the latest indexed version",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		o := orchestrator.New(cfg)
		msg, err := o.Upgrade(globalCtx, args[0], orchestrator.Options{DryRun: upgradeDryRun})
		if err != nil {
			handleError(err)
		}
		fmt.Println(msg)
	},
}

func init() {
	upgradeCmd.Flags().BoolVar(&upgradeDryRun, "dry-run", false, "Print the upgrade that would happen without applying it")
}
