package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plyght/wax/internal/lockfile"
	"github.com/plyght/wax/internal/orchestrator"
)

const lockfilePath = "wax.lock"

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Write a lockfile pinning every installed package's version",
	Run: func(cmd *cobra.Command, args []string) {
		o := orchestrator.New(cfg)
		lf, err := o.Lock()
		if err != nil {
			handleError(err)
		}
		if err := lockfile.Save(lf, lockfilePath); err != nil {
			handleError(err)
		}
		fmt.Printf("Wrote %s (%d packages)\n", lockfilePath, len(lf.Packages))
	},
}
