package main

import "os"

// Exit codes, per spec §6: success, general failure, usage error.
const (
	ExitSuccess = 0
	ExitGeneral = 1
	ExitUsage   = 2
)

func exitWithCode(code int) {
	os.Exit(code)
}
