package main

import (
	"os"

	"github.com/tilbudsradar/backend/cmd/pricecheck/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
