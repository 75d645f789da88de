// Package main is the entry point for the wilayactl operator CLI.
package main

import (
	"os"

	"wilayasapi/cmd/wilayactl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
