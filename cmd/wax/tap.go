package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plyght/wax/internal/tap"
)

var tapCmd = &cobra.Command{
	Use:   "tap",
	Short: "Manage registered taps",
}

var tapAddCmd = &cobra.Command{
	Use:   "add <user/repo>",
	Short: "Register a tap",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := tap.New(cfg).Add(args[0]); err != nil {
			handleError(err)
		}
		fmt.Printf("Tapped %s\n", args[0])
	},
}

var tapRemoveCmd = &cobra.Command{
	Use:   "remove <user/repo>",
	Short: "Unregister a tap",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := tap.New(cfg).Remove(args[0]); err != nil {
			handleError(err)
		}
		fmt.Printf("Untapped %s\n", args[0])
	},
}

var tapListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered taps",
	Run: func(cmd *cobra.Command, args []string) {
		taps, err := tap.New(cfg).List()
		if err != nil {
			handleError(err)
		}
		if len(taps) == 0 {
			fmt.Println("No taps registered.")
			return
		}
		for _, name := range taps {
			fmt.Println(name)
		}
	},
}

var tapUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh registered taps' formulae (not yet implemented)",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("tap update is not yet implemented: registered taps do not contribute formulae to the resolver")
	},
}

func init() {
	tapCmd.AddCommand(tapAddCmd, tapRemoveCmd, tapListCmd, tapUpdateCmd)
}
