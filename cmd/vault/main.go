// Command vault manages a personal finance vault from the terminal.
package main

import (
	"os"

	"github.com/dvloznov/vault/cmd/vault/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
