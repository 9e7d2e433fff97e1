// Command file is a fleetctl module managing files on the host it runs on:
//
//	fleetctl -t web module --module ./bin/file --data file.json
package main

import (
	"os"

	"github.com/eniac111/fleetctl/internal/modules"
	"github.com/eniac111/fleetctl/internal/modules/file"
)

func main() {
	os.Exit(modules.Serve(file.New(), os.Stdin, os.Stdout))
}
