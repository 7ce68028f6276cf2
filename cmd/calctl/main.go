package main

import (
	"os"

	"github.com/warp/calendar-engine/cmd/calctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
