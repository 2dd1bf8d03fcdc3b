package main

import (
	"fmt"
	"os"

	"github.com/joseph-ayodele/lantern/cmd/lantern/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
