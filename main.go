package main

import (
	"os"

	"github.com/wundergraph/pgfederation/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
