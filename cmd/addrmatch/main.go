// Package main provides the entry point for the addrmatch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/addrmatch/cmd/addrmatch/cmd"
	amerrors "github.com/Aman-CERP/addrmatch/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, amerrors.FormatForCLI(err))
		os.Exit(1)
	}
}
