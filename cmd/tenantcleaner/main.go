package main

import (
	"os"

	"github.com/catherinevee/tenantcleaner/cmd/tenantcleaner/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
