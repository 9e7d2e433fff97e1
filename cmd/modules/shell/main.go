// Command shell is a fleetctl module running params["cmd"] with sh -c.
package main

import (
	"os"

	"github.com/eniac111/fleetctl/internal/modules"
	"github.com/eniac111/fleetctl/internal/modules/shell"
)

func main() {
	os.Exit(modules.Serve(shell.Module{}, os.Stdin, os.Stdout))
}
