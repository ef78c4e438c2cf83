package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plyght/wax/internal/lockfile"
	"github.com/plyght/wax/internal/orchestrator"
)

var syncDryRun bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile installed packages against wax.lock",
	Run: func(cmd *cobra.Command, args []string) {
		lf, err := lockfile.Load(lockfilePath)
		if err != nil {
			handleError(err)
		}

		o := orchestrator.New(cfg)
		if err := o.Sync(globalCtx, lf, orchestrator.Options{DryRun: syncDryRun}); err != nil {
			handleError(err)
		}
		fmt.Println("Synced with wax.lock")
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Print what would change without installing anything")
}
