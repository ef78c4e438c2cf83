package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plyght/wax/internal/cask"
	"github.com/plyght/wax/internal/orchestrator"
	"github.com/plyght/wax/internal/progress"
)

var (
	installDryRun bool
	installUser   bool
	installGlobal bool
	installCask   bool
	installBuild  bool
)

var installCmd = &cobra.Command{
	Use:   "install <name>...",
	Short: "Install one or more formulae",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if installCask {
			if err := cask.RequireSupported(); err != nil {
				handleError(err)
			}
			fmt.Println("cask installs are not yet implemented")
			return
		}

		o := orchestrator.New(cfg)

		var spinner *progress.Spinner
		var onDownload func(name string, err error)
		if !installDryRun {
			spinner = progress.NewSpinner(nil)
			spinner.Start("Resolving and downloading " + strings.Join(args, ", "))
			onDownload = func(name string, err error) {
				if err != nil {
					spinner.SetMessage(fmt.Sprintf("%s failed, continuing with the rest", name))
					return
				}
				spinner.SetMessage(fmt.Sprintf("downloaded %s, extracting remaining packages", name))
			}
		}

		plan, err := o.Install(globalCtx, args, orchestrator.Options{
			DryRun:          installDryRun,
			User:            installUser,
			Global:          installGlobal,
			BuildFromSource: installBuild,
			OnDownload:      onDownload,
		})

		if spinner != nil {
			if err != nil {
				spinner.Stop()
			} else {
				spinner.StopWithMessage("Download and extraction complete")
			}
		}
		if err != nil {
			handleError(err)
		}

		if installDryRun {
			fmt.Println("Would install:")
			for _, step := range plan.Steps {
				fmt.Printf("  %s %s\n", step.Name, step.Version)
			}
			return
		}

		for _, step := range plan.Steps {
			fmt.Printf("Installed %s %s\n", step.Name, step.Version)
		}
	},
}

func init() {
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "Print the install plan without applying it")
	installCmd.Flags().BoolVar(&installUser, "user", false, "Install into the user prefix")
	installCmd.Flags().BoolVar(&installGlobal, "global", false, "Install into the global prefix")
	installCmd.Flags().BoolVar(&installCask, "cask", false, "Install a cask instead of a formula")
	installCmd.Flags().BoolVar(&installBuild, "build-from-source", false, "Build from source instead of fetching a bottle")
}
