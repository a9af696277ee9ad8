package main

import (
	"os"

	"github.com/ybryxcapital/agentcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
