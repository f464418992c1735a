package main

import (
	"fmt"
	"os"

	"github.com/temirov/gitlab2github/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main executes the gitlab2github command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
