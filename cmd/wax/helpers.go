package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/plyght/wax/internal/errs"
)

// printError writes err to stderr, appending a Suggestion when the
// underlying error carries one.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)

	var waxErr *errs.Error
	if errors.As(err, &waxErr) {
		if suggestion := waxErr.Suggestion(); suggestion != "" {
			fmt.Fprintf(os.Stderr, "  %s\n", suggestion)
		}
	}
}

// handleError prints err and exits with the general failure code.
func handleError(err error) {
	printError(err)
	exitWithCode(ExitGeneral)
}
