package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/eniac111/fleetctl/internal/cli"
)

func main() {
	err := cli.NewDefaultCommand().Execute()
	if err == nil {
		return
	}

	code := 1
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.Code
		if exitErr.Err == nil {
			os.Exit(code)
		}
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(code)
}
